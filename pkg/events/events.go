// Package events defines the typed notifications emitted while a negotiation
// run progresses, and a publisher manager that fans them out to watermill
// publishers. Event delivery is best-effort: the orchestrator publishes blind
// and never blocks on a slow or failing sink.
package events

import (
	"github.com/go-go-golems/parley/pkg/negotiation/extract"
)

type EventType string

const (
	EventTypeRoundStarted EventType = "round-started"
	EventTypeUtterance    EventType = "utterance"
	EventTypeProposalMade EventType = "proposal-made"
	EventTypeAcceptance   EventType = "acceptance"
	EventTypeWithdrawal   EventType = "withdrawal"
	EventTypeThreat       EventType = "threat"
	EventTypeCoalition    EventType = "coalition"
	EventTypeOutcome      EventType = "outcome"
)

// EventMeta is embedded in every negotiation event and satisfies Event on
// its behalf.
type EventMeta struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`
	Round int       `json:"round"`
}

func (m EventMeta) EventType() EventType { return m.Type }

func (m EventMeta) EventRunID() string { return m.RunID }

type RoundStartedEvent struct {
	EventMeta
}

func NewRoundStartedEvent(runID string, round int) *RoundStartedEvent {
	return &RoundStartedEvent{EventMeta{Type: EventTypeRoundStarted, RunID: runID, Round: round}}
}

type UtteranceEvent struct {
	EventMeta
	Agent string `json:"agent"`
	Text  string `json:"text"`
}

func NewUtteranceEvent(runID string, round int, agent, text string) *UtteranceEvent {
	return &UtteranceEvent{
		EventMeta: EventMeta{Type: EventTypeUtterance, RunID: runID, Round: round},
		Agent:     agent,
		Text:      text,
	}
}

type ProposalMadeEvent struct {
	EventMeta
	Agent    string           `json:"agent"`
	Proposal extract.Proposal `json:"proposal"`
	Valid    bool             `json:"valid"`
}

func NewProposalMadeEvent(runID string, round int, agent string, proposal extract.Proposal, valid bool) *ProposalMadeEvent {
	return &ProposalMadeEvent{
		EventMeta: EventMeta{Type: EventTypeProposalMade, RunID: runID, Round: round},
		Agent:     agent,
		Proposal:  proposal,
		Valid:     valid,
	}
}

type AcceptanceEvent struct {
	EventMeta
	Agent string `json:"agent"`
	// Kind is "explicit" for marker acceptances and "implicit" for
	// re-statements of the active proposal.
	Kind string `json:"kind"`
}

func NewAcceptanceEvent(runID string, round int, agent, kind string) *AcceptanceEvent {
	return &AcceptanceEvent{
		EventMeta: EventMeta{Type: EventTypeAcceptance, RunID: runID, Round: round},
		Agent:     agent,
		Kind:      kind,
	}
}

type WithdrawalEvent struct {
	EventMeta
	Agent string `json:"agent"`
	Count int    `json:"count"`
}

func NewWithdrawalEvent(runID string, round int, agent string, count int) *WithdrawalEvent {
	return &WithdrawalEvent{
		EventMeta: EventMeta{Type: EventTypeWithdrawal, RunID: runID, Round: round},
		Agent:     agent,
		Count:     count,
	}
}

type ThreatEvent struct {
	EventMeta
	Agent string `json:"agent"`
	Kind  string `json:"kind"`
}

func NewThreatEvent(runID string, round int, agent, kind string) *ThreatEvent {
	return &ThreatEvent{
		EventMeta: EventMeta{Type: EventTypeThreat, RunID: runID, Round: round},
		Agent:     agent,
		Kind:      kind,
	}
}

type CoalitionEvent struct {
	EventMeta
	Agent  string `json:"agent"`
	Target string `json:"target"`
}

func NewCoalitionEvent(runID string, round int, agent, target string) *CoalitionEvent {
	return &CoalitionEvent{
		EventMeta: EventMeta{Type: EventTypeCoalition, RunID: runID, Round: round},
		Agent:     agent,
		Target:    target,
	}
}

type OutcomeEvent struct {
	EventMeta
	Status string `json:"status"`
	Reason string `json:"reason"`
	Rounds int    `json:"rounds"`
	Turns  int    `json:"turns"`
}

func NewOutcomeEvent(runID string, round int, status, reason string, rounds, turns int) *OutcomeEvent {
	return &OutcomeEvent{
		EventMeta: EventMeta{Type: EventTypeOutcome, RunID: runID, Round: round},
		Status:    status,
		Reason:    reason,
		Rounds:    rounds,
		Turns:     turns,
	}
}
