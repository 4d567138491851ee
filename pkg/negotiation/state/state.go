// Package state holds the mutable per-run negotiation state. It is owned by
// a single orchestrator run; batch drivers must give every run a fresh State
// (or call Reset) so withdrawal counters and acceptance sets never leak
// between runs.
package state

import (
	"sort"

	"github.com/go-go-golems/parley/pkg/negotiation/extract"
)

// State tracks the active proposal, who has accepted it, the withdrawal
// counter and the proposal history for one negotiation run.
type State struct {
	activeProposal extract.Proposal
	proposer       string
	acceptances    map[string]bool
	withdrawals    int
	history        []extract.Proposal
	firstProposer  string
}

func New() *State {
	return &State{
		acceptances: map[string]bool{},
	}
}

// SetActiveProposal installs a new active proposal and reseeds the
// acceptance set to the proposer alone.
func (s *State) SetActiveProposal(p extract.Proposal, proposer string) {
	s.activeProposal = p
	s.proposer = proposer
	s.acceptances = map[string]bool{proposer: true}
	s.history = append(s.history, p.Clone())
	if s.firstProposer == "" {
		s.firstProposer = proposer
	}
}

func (s *State) ActiveProposal() extract.Proposal {
	return s.activeProposal
}

func (s *State) Proposer() string {
	return s.proposer
}

func (s *State) FirstProposer() string {
	return s.firstProposer
}

// Accept records name's acceptance of the active proposal.
func (s *State) Accept(name string) {
	s.acceptances[name] = true
}

func (s *State) HasAccepted(name string) bool {
	return s.acceptances[name]
}

// Acceptances returns the acceptance set in sorted order.
func (s *State) Acceptances() []string {
	names := make([]string, 0, len(s.acceptances))
	for name := range s.acceptances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unanimous reports whether every participant has accepted the active
// proposal. False when no proposal is active.
func (s *State) Unanimous(participants []string) bool {
	if s.activeProposal == nil || len(participants) == 0 {
		return false
	}
	for _, name := range participants {
		if !s.acceptances[name] {
			return false
		}
	}
	return true
}

// RecordWithdrawal increments the withdrawal counter and returns its new
// value. Call exactly once per withdrawal-marked utterance.
func (s *State) RecordWithdrawal() int {
	s.withdrawals++
	return s.withdrawals
}

func (s *State) Withdrawals() int {
	return s.withdrawals
}

// Collapsed reports whether accumulated withdrawals reached the threshold.
func (s *State) Collapsed(threshold int) bool {
	return threshold > 0 && s.withdrawals >= threshold
}

func (s *State) ProposalCount() int {
	return len(s.history)
}

// History returns the proposals in the order they became active.
func (s *State) History() []extract.Proposal {
	out := make([]extract.Proposal, len(s.history))
	for i, p := range s.history {
		out[i] = p.Clone()
	}
	return out
}

// Reset clears all per-run state so the instance can host a new negotiation.
func (s *State) Reset() {
	s.activeProposal = nil
	s.proposer = ""
	s.acceptances = map[string]bool{}
	s.withdrawals = 0
	s.history = nil
	s.firstProposer = ""
}
