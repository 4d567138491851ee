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

// runBargain drives the two-party price haggle. The vendor always speaks
// first and the protocol is deliberately asymmetric: only the buyer's
// acceptance closes the deal, and only the buyer can end the negotiation
// with a rejection. A buyer rejection that carries a counter-offer keeps the
// negotiation alive with the counter as the active price.
func (o *Orchestrator) runBargain(ctx context.Context, runID string, logger zerolog.Logger, st *state.State) (*scenario.Outcome, []Turn, error) {
	brg, _ := o.scenario.(*scenario.Bargain)
	participants := o.scenario.Participants()
	vendorName, buyerName := participants[0], participants[1]
	vendor, buyer := o.sessions[vendorName], o.sessions[buyerName]

	vendor.Manager.AppendMessages(conversation.NewMessage(conversation.RoleUser, o.scenario.OpeningContext()))

	var turns []Turn
	lastBuyerMessage := ""

	for round := 1; round <= o.scenario.MaxRounds(); round++ {
		o.publishBlind(events.NewRoundStartedEvent(runID, round))
		logger.Debug().Int("round", round).Msg("round started")

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// Vendor turn, with private per-turn pricing guidance.
		if brg != nil {
			addendum := brg.BuildVendorAddendum(vendorName, lastBuyerMessage)
			if addendum.Text != "" {
				vendor.Manager.AppendMessages(conversation.NewMessage(conversation.RoleUser, addendum.Text))
			}
		}

		vendorUtterance, err := o.generate(ctx, vendor)
		if err != nil {
			return nil, nil, err
		}
		vendorTurn := Turn{
			Round:       round,
			TurnInRound: 1,
			Agent:       vendorName,
			Role:        vendor.Agent.Role,
			Utterance:   vendorUtterance,
			Signals:     extract.Classify(vendorUtterance),
		}
		o.publishBlind(events.NewUtteranceEvent(runID, round, vendorName, vendorUtterance))

		if price := o.parsePrice(brg, vendorUtterance); price != nil {
			vendorTurn.Proposal = price
			vendorTurn.MadeProposal = true
			st.SetActiveProposal(price, vendorName)
			o.publishBlind(events.NewProposalMadeEvent(runID, round, vendorName, price, true))
			logger.Info().Str("agent", vendorName).Interface("price", price).Msg("vendor offer")
		}
		turns = append(turns, vendorTurn)
		o.broadcast(vendorName, vendorUtterance)

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// Buyer turn.
		buyerUtterance, err := o.generate(ctx, buyer)
		if err != nil {
			return nil, nil, err
		}
		lastBuyerMessage = buyerUtterance
		buyerTurn := Turn{
			Round:       round,
			TurnInRound: 2,
			Agent:       buyerName,
			Role:        buyer.Agent.Role,
			Utterance:   buyerUtterance,
			Signals:     extract.Classify(buyerUtterance),
		}
		o.publishBlind(events.NewUtteranceEvent(runID, round, buyerName, buyerUtterance))

		active := st.ActiveProposal()
		counter := o.parsePrice(brg, buyerUtterance)

		switch {
		case o.scenario.CheckAgreement(active, buyerUtterance):
			buyerTurn.Accepted = true
			buyerTurn.AcceptanceType = "explicit"
			st.Accept(buyerName)
			turns = append(turns, buyerTurn)
			o.publishBlind(events.NewAcceptanceEvent(runID, round, buyerName, "explicit"))
			o.broadcast(buyerName, buyerUtterance)
			return &scenario.Outcome{
				Status:           scenario.OutcomeAgreed,
				Reason:           "buyer accepted the price",
				FinalProposal:    active.Clone(),
				FinalAcceptances: st.Acceptances(),
				Rounds:           round,
			}, turns, nil

		case brg != nil && brg.CheckRejection(buyerUtterance):
			if counter == nil {
				turns = append(turns, buyerTurn)
				o.broadcast(buyerName, buyerUtterance)
				logger.Info().Str("agent", buyerName).Msg("buyer walked away")
				return &scenario.Outcome{
					Status:       scenario.OutcomeRejected,
					Reason:       "buyer walked away",
					LastProposal: active.Clone(),
					Rounds:       round,
				}, turns, nil
			}
			// Rejection of the price, not of the negotiation: the counter
			// becomes the active proposal.
			buyerTurn.Proposal = counter
			buyerTurn.MadeProposal = true
			st.SetActiveProposal(counter, buyerName)
			o.publishBlind(events.NewProposalMadeEvent(runID, round, buyerName, counter, true))

		case counter != nil:
			// A counter without a rejection is haggling rhetoric: it is
			// recorded but does not supersede the vendor's standing price.
			buyerTurn.Proposal = counter
			logger.Info().Str("agent", buyerName).Interface("price", counter).Msg("buyer counter")
		}

		turns = append(turns, buyerTurn)
		o.broadcast(buyerName, buyerUtterance)
	}

	return timedOutOutcome(st, o.scenario.MaxRounds()), turns, nil
}

func (o *Orchestrator) parsePrice(brg *scenario.Bargain, utterance string) extract.Proposal {
	if brg == nil {
		return nil
	}
	return brg.ParsePrice(utterance)
}
