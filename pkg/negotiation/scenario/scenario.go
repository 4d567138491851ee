// Package scenario defines the negotiation protocol contract and its two
// implementations: Bargain (vendor/buyer price haggling) and Allocation
// (N-party split of a fixed pot). Scenarios own agreement predicates, prompt
// construction and utility computation; all per-run mutable state lives in
// the state package so scenario instances can be shared across a battery.
package scenario

import (
	"github.com/go-go-golems/parley/pkg/negotiation/extract"
)

type Kind string

const (
	KindBargain    Kind = "bargain"
	KindAllocation Kind = "allocation"
)

// AgentConfig identifies a negotiation participant. Persona traits only
// influence prompt framing; they have no protocol effect.
type AgentConfig struct {
	Name          string   `yaml:"name"`
	Role          string   `yaml:"role"`
	RiskTolerance float64  `yaml:"risk_tolerance"`
	PersonaTraits []string `yaml:"persona_traits"`
}

type OutcomeStatus string

const (
	OutcomeAgreed    OutcomeStatus = "agreed"
	OutcomeRejected  OutcomeStatus = "rejected"
	OutcomeCollapsed OutcomeStatus = "collapsed"
	OutcomeTimedOut  OutcomeStatus = "timed_out"
)

// Outcome is the terminal record of a run, produced exactly once by the
// orchestrator and immutable afterwards.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason"`
	// FinalProposal is set only for agreed outcomes.
	FinalProposal extract.Proposal `json:"final_proposal,omitempty"`
	// LastProposal carries the most recent active proposal for timed-out
	// runs, together with the partial acceptance set.
	LastProposal     extract.Proposal `json:"last_proposal,omitempty"`
	FinalAcceptances []string         `json:"final_acceptances,omitempty"`
	Rounds           int              `json:"rounds"`
}

func (o *Outcome) Agreed() bool {
	return o != nil && o.Status == OutcomeAgreed
}

// Scenario is the protocol contract shared by Bargain and Allocation.
type Scenario interface {
	Kind() Kind
	// Participants returns agent names in turn order.
	Participants() []string
	MaxRounds() int
	// OpeningContext is the system broadcast that starts the negotiation.
	OpeningContext() string
	// BuildSystemPrompt renders the private instructions for one agent.
	BuildSystemPrompt(agent AgentConfig) string
	// CheckAgreement reports whether utterance explicitly accepts the
	// active proposal. With no active proposal there is nothing to accept.
	CheckAgreement(active extract.Proposal, utterance string) bool
	// ComputeUtility scores an agent's payoff for a finalized outcome.
	ComputeUtility(agent AgentConfig, outcome *Outcome) float64
}
