package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
)

func newSession(agent scenario.AgentConfig, scn scenario.Scenario, utterances ...string) *Session {
	return &Session{
		Agent:   agent,
		Engine:  engine.NewScriptedEngine(utterances...),
		Manager: conversation.NewManager(conversation.WithSystemPrompt(scn.BuildSystemPrompt(agent))),
	}
}

func crewScenario(t *testing.T, mutate func(*scenario.AllocationConfig)) *scenario.Allocation {
	t.Helper()
	cfg := scenario.DefaultAllocationConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a := scenario.NewAllocation(cfg)
	require.NoError(t, a.SetAgentParams("Viktor", scenario.AgentParams{
		ContributionRole: "mastermind", PerceivedContribution: 35,
		RiskTaken: "moderate", ReservationShare: 20, AspirationShare: 35,
	}))
	require.NoError(t, a.SetAgentParams("Elena", scenario.AgentParams{
		ContributionRole: "financier", PerceivedContribution: 25,
		RiskTaken: "low", ReservationShare: 15, AspirationShare: 30,
	}))
	require.NoError(t, a.SetAgentParams("Marco", scenario.AgentParams{
		ContributionRole: "executor", PerceivedContribution: 35,
		RiskTaken: "extreme", ReservationShare: 20, AspirationShare: 40,
	}))
	return a
}

func crewAgent(name string) scenario.AgentConfig {
	return scenario.AgentConfig{Name: name, Role: "crew", RiskTolerance: 0.5}
}

func TestAllocationUnanimousAgreement(t *testing.T) {
	scn := crewScenario(t, nil)
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "[PROPOSAL] Viktor: 40%, Elena: 30%, Marco: 30%"),
		newSession(crewAgent("Elena"), scn, "[ACCEPT]"),
		newSession(crewAgent("Marco"), scn, "[ACCEPT]"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeAgreed, result.Outcome.Status)
	require.Equal(t, 1, result.Outcome.Rounds)
	require.Len(t, result.Turns, 3)
	require.InDelta(t, 40.0, result.Outcome.FinalProposal["Viktor"], 1e-9)
	require.ElementsMatch(t, []string{"Viktor", "Elena", "Marco"}, result.Outcome.FinalAcceptances)

	// Viktor's share meets his aspiration, so his utility equals the share.
	require.InDelta(t, 40.0, result.Utilities["Viktor"], 1e-9)
}

func TestAllocationImplicitAcceptanceByRestatement(t *testing.T) {
	scn := crewScenario(t, nil)
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "[PROPOSAL] Viktor: 40%, Elena: 30%, Marco: 30%"),
		newSession(crewAgent("Elena"), scn, "Let's do Viktor: 41, Elena: 29, Marco: 30."),
		newSession(crewAgent("Marco"), scn, "[ACCEPT]"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeAgreed, result.Outcome.Status)

	elenaTurn := result.Turns[1]
	require.True(t, elenaTurn.Accepted)
	require.Equal(t, "implicit", elenaTurn.AcceptanceType)
	require.False(t, elenaTurn.MadeProposal)

	// The re-statement never replaces the active proposal.
	require.InDelta(t, 40.0, result.Outcome.FinalProposal["Viktor"], 1e-9)
}

func TestAllocationWithdrawalOutranksProposalAndCollapses(t *testing.T) {
	scn := crewScenario(t, nil)
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "[PROPOSAL] Viktor: 40%, Elena: 30%, Marco: 30%"),
		newSession(crewAgent("Elena"), scn, "[WITHDRAW] This split insults me."),
		newSession(crewAgent("Marco"), scn, "[WITHDRAW] Viktor: 20%, Elena: 20%, Marco: 60%"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeCollapsed, result.Outcome.Status)
	require.Equal(t, 1, result.Outcome.Rounds)
	require.Nil(t, result.Outcome.FinalProposal)

	// Marco's utterance carried a proposal, but withdrawal wins.
	marcoTurn := result.Turns[2]
	require.True(t, marcoTurn.Withdrew)
	require.False(t, marcoTurn.MadeProposal)

	for _, name := range scn.Participants() {
		require.Zero(t, result.Utilities[name])
	}
}

func TestAllocationWithdrawalBelowThresholdKeepsProposalLive(t *testing.T) {
	scn := crewScenario(t, func(cfg *scenario.AllocationConfig) {
		cfg.CollapseThreshold = 3
	})
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "[WITHDRAW] Last chance. Viktor: 40%, Elena: 30%, Marco: 30%"),
		newSession(crewAgent("Elena"), scn, "[ACCEPT]"),
		newSession(crewAgent("Marco"), scn, "[ACCEPT]"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	// One withdrawal out of three is a threat, not a collapse; the split
	// Viktor named in the same breath still becomes the active proposal.
	require.Equal(t, scenario.OutcomeAgreed, result.Outcome.Status)
	require.Equal(t, 1, result.Outcome.Rounds)
	require.InDelta(t, 40.0, result.Outcome.FinalProposal["Viktor"], 1e-9)
	require.ElementsMatch(t, []string{"Viktor", "Elena", "Marco"}, result.Outcome.FinalAcceptances)

	viktorTurn := result.Turns[0]
	require.True(t, viktorTurn.Withdrew)
	require.True(t, viktorTurn.MadeProposal)
}

func TestAllocationTimeoutCarriesLastProposal(t *testing.T) {
	scn := crewScenario(t, func(cfg *scenario.AllocationConfig) {
		cfg.MaxRounds = 1
	})
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "[PROPOSAL] Viktor: 40%, Elena: 30%, Marco: 30%"),
		newSession(crewAgent("Elena"), scn, "[ACCEPT]"),
		newSession(crewAgent("Marco"), scn, "I need more for my effort."),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeTimedOut, result.Outcome.Status)
	require.InDelta(t, 40.0, result.Outcome.LastProposal["Viktor"], 1e-9)
	require.ElementsMatch(t, []string{"Viktor", "Elena"}, result.Outcome.FinalAcceptances)
	require.Nil(t, result.Outcome.FinalProposal)
}

func TestAllocationNewProposalReseedsAcceptances(t *testing.T) {
	scn := crewScenario(t, func(cfg *scenario.AllocationConfig) {
		cfg.MaxRounds = 2
	})
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn,
			"[PROPOSAL] Viktor: 50%, Elena: 25%, Marco: 25%",
			"[ACCEPT]"),
		newSession(crewAgent("Elena"), scn,
			"[ACCEPT]",
			"[ACCEPT]"),
		newSession(crewAgent("Marco"), scn,
			"[PROPOSAL] Viktor: 34%, Elena: 33%, Marco: 33%",
			"[ACCEPT]"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	// Elena's round-1 acceptance applied to Viktor's proposal; Marco's
	// distinct counter reset the set, so agreement lands on his split.
	require.Equal(t, scenario.OutcomeAgreed, result.Outcome.Status)
	require.Equal(t, 2, result.Outcome.Rounds)
	require.InDelta(t, 33.0, result.Outcome.FinalProposal["Marco"], 1e-9)
}

func TestAllocationCoalitionTargetNormalized(t *testing.T) {
	scn := crewScenario(t, func(cfg *scenario.AllocationConfig) {
		cfg.MaxRounds = 1
	})
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "I side with marco on this."),
		newSession(crewAgent("Elena"), scn, ""),
		newSession(crewAgent("Marco"), scn, ""),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Marco", result.Turns[0].CoalitionWith)
}

func soukScenario(t *testing.T, mutate func(*scenario.BargainConfig)) *scenario.Bargain {
	t.Helper()
	cfg := scenario.DefaultBargainConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := scenario.NewBargain(cfg)
	b.RegisterVendor("Hassan", 70)
	b.RegisterBuyer("Sarah", 100)
	return b
}

func TestBargainDealClosedByBuyerAcceptance(t *testing.T) {
	scn := soukScenario(t, nil)
	sessions := []*Session{
		newSession(scenario.AgentConfig{Name: "Hassan", Role: "vendor"}, scn,
			"Welcome my friend! Offer: MAD150 for this handwoven rug.",
			"For you, a special price. Offer: MAD90."),
		newSession(scenario.AgentConfig{Name: "Sarah", Role: "buyer"}, scn,
			"Counter: MAD80, that is all it is worth.",
			"[ACCEPT] MAD90 it is."),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeAgreed, result.Outcome.Status)
	require.Equal(t, 2, result.Outcome.Rounds)

	price, ok := result.Outcome.FinalProposal.Price()
	require.True(t, ok)
	require.InDelta(t, 90.0, price, 1e-9)

	require.InDelta(t, 20.0, result.Utilities["Hassan"], 1e-9)
	require.InDelta(t, 10.0, result.Utilities["Sarah"], 1e-9)

	// The buyer's round-1 counter was rhetoric, not a superseding proposal.
	require.False(t, result.Turns[1].MadeProposal)
}

func TestBargainBuyerWalkAwayRejects(t *testing.T) {
	scn := soukScenario(t, nil)
	sessions := []*Session{
		newSession(scenario.AgentConfig{Name: "Hassan", Role: "vendor"}, scn,
			"Finest leather! Offer: MAD150."),
		newSession(scenario.AgentConfig{Name: "Sarah", Role: "buyer"}, scn,
			"[REJECT] That is robbery, I am walking away."),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeRejected, result.Outcome.Status)
	require.Equal(t, 1, result.Outcome.Rounds)
	require.Nil(t, result.Outcome.FinalProposal)

	lastPrice, ok := result.Outcome.LastProposal.Price()
	require.True(t, ok)
	require.InDelta(t, 150.0, lastPrice, 1e-9)

	require.Zero(t, result.Utilities["Hassan"])
	require.Zero(t, result.Utilities["Sarah"])
}

func TestBargainRejectionWithCounterKeepsNegotiating(t *testing.T) {
	scn := soukScenario(t, func(cfg *scenario.BargainConfig) {
		cfg.MaxRounds = 2
	})
	sessions := []*Session{
		newSession(scenario.AgentConfig{Name: "Hassan", Role: "vendor"}, scn,
			"Offer: MAD150.",
			"You drive a hard bargain."),
		newSession(scenario.AgentConfig{Name: "Sarah", Role: "buyer"}, scn,
			"[REJECT] Counter: MAD85 or nothing.",
			"[ACCEPT]"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeAgreed, result.Outcome.Status)

	// The vendor's round-2 reply carried no price, so the deal closes on
	// the buyer's own rejection counter.
	price, ok := result.Outcome.FinalProposal.Price()
	require.True(t, ok)
	require.InDelta(t, 85.0, price, 1e-9)
}

func TestBargainTimeout(t *testing.T) {
	scn := soukScenario(t, func(cfg *scenario.BargainConfig) {
		cfg.MaxRounds = 2
	})
	sessions := []*Session{
		newSession(scenario.AgentConfig{Name: "Hassan", Role: "vendor"}, scn,
			"Offer: MAD150.", "Offer: MAD140."),
		newSession(scenario.AgentConfig{Name: "Sarah", Role: "buyer"}, scn,
			"Counter: MAD60.", "Counter: MAD65."),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, scenario.OutcomeTimedOut, result.Outcome.Status)
	require.Equal(t, 2, result.Outcome.Rounds)
	require.Len(t, result.Turns, 4)

	lastPrice, ok := result.Outcome.LastProposal.Price()
	require.True(t, ok)
	require.InDelta(t, 140.0, lastPrice, 1e-9)
}

func TestNewRequiresSessionPerParticipant(t *testing.T) {
	scn := soukScenario(t, nil)
	_, err := New(scn, []*Session{
		newSession(scenario.AgentConfig{Name: "Hassan", Role: "vendor"}, scn),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Sarah")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	scn := crewScenario(t, nil)
	sessions := []*Session{
		newSession(crewAgent("Viktor"), scn, "[PROPOSAL] Viktor: 40%, Elena: 30%, Marco: 30%"),
		newSession(crewAgent("Elena"), scn, "[ACCEPT]"),
		newSession(crewAgent("Marco"), scn, "[ACCEPT]"),
	}
	o, err := New(scn, sessions)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
