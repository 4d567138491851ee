package orchestrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/negotiation/extract"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
	"github.com/go-go-golems/parley/pkg/negotiation/state"
)

// runAllocation drives the N-party loot split. Per-turn rule priority is
// fixed: collapse, then a new distinct proposal, then acceptance, and finally
// the round timeout. Only a collapse cuts the turn short; a withdrawal below
// the threshold leaves the utterance eligible for the remaining rules.
func (o *Orchestrator) runAllocation(ctx context.Context, runID string, logger zerolog.Logger, st *state.State) (*scenario.Outcome, []Turn, error) {
	alloc, _ := o.scenario.(*scenario.Allocation)
	participants := o.scenario.Participants()

	opening := conversation.NewMessage(conversation.RoleUser, o.scenario.OpeningContext())
	for _, name := range participants {
		o.sessions[name].Manager.AppendMessages(opening)
	}

	var turns []Turn
	for round := 1; round <= o.scenario.MaxRounds(); round++ {
		o.publishBlind(events.NewRoundStartedEvent(runID, round))
		logger.Debug().Int("round", round).Msg("round started")

		for turnInRound, name := range participants {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			session := o.sessions[name]
			utterance, err := o.generate(ctx, session)
			if err != nil {
				return nil, nil, err
			}

			signals := extract.Classify(utterance)
			proposal := extract.ParseShares(utterance)
			turn := Turn{
				Round:       round,
				TurnInRound: turnInRound + 1,
				Agent:       name,
				Role:        session.Agent.Role,
				Utterance:   utterance,
				Signals:     signals,
				Proposal:    proposal,
			}

			o.publishBlind(events.NewUtteranceEvent(runID, round, name, utterance))
			if signals.MadeThreat() {
				o.publishBlind(events.NewThreatEvent(runID, round, name, string(signals.ThreatKind)))
			}
			if signals.FormsCoalition() {
				turn.CoalitionWith = o.normalizeCoalitionTarget(signals.CoalitionTarget)
				o.publishBlind(events.NewCoalitionEvent(runID, round, name, turn.CoalitionWith))
			}

			// A withdrawal is recorded first and collapses the run at the
			// threshold, but below it the rest of the utterance still
			// counts: a proposal or acceptance in the same breath is
			// evaluated as usual.
			if signals.Withdrawn {
				turn.Withdrew = true
				count := st.RecordWithdrawal()
				o.publishBlind(events.NewWithdrawalEvent(runID, round, name, count))
				logger.Info().Str("agent", name).Int("withdrawals", count).Msg("withdrawal")

				if alloc != nil && st.Collapsed(alloc.CollapseThreshold()) {
					turns = append(turns, turn)
					o.broadcast(name, utterance)
					return &scenario.Outcome{
						Status: scenario.OutcomeCollapsed,
						Reason: "withdrawal threshold reached",
						Rounds: round,
					}, turns, nil
				}
			}

			active := st.ActiveProposal()
			implicitMatch := proposal != nil && active != nil &&
				extract.ProposalsMatch(active, proposal, o.matchTolerance)

			switch {
			case proposal != nil && len(proposal) >= 2 && !implicitMatch:
				turn.MadeProposal = true
				valid := true
				if alloc != nil {
					validation := alloc.Validate(proposal)
					valid = validation.Valid
					if !valid {
						logger.Debug().
							Str("agent", name).
							Strs("issues", validation.Issues).
							Msg("invalid proposal activated anyway")
					}
				}
				st.SetActiveProposal(proposal, name)
				o.publishBlind(events.NewProposalMadeEvent(runID, round, name, proposal, valid))
				logger.Info().Str("agent", name).Interface("proposal", proposal).Msg("new active proposal")

			case o.scenario.CheckAgreement(active, utterance) || implicitMatch:
				turn.Accepted = true
				turn.AcceptanceType = "explicit"
				if !o.scenario.CheckAgreement(active, utterance) {
					turn.AcceptanceType = "implicit"
				}
				st.Accept(name)
				o.publishBlind(events.NewAcceptanceEvent(runID, round, name, turn.AcceptanceType))
				logger.Info().Str("agent", name).Str("type", turn.AcceptanceType).Msg("acceptance")

				if st.Unanimous(participants) {
					turns = append(turns, turn)
					o.broadcast(name, utterance)
					return &scenario.Outcome{
						Status:           scenario.OutcomeAgreed,
						Reason:           "unanimous acceptance",
						FinalProposal:    st.ActiveProposal().Clone(),
						FinalAcceptances: st.Acceptances(),
						Rounds:           round,
					}, turns, nil
				}
			}

			turns = append(turns, turn)
			o.broadcast(name, utterance)
		}
	}

	return timedOutOutcome(st, o.scenario.MaxRounds()), turns, nil
}
