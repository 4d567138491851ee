package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyAcceptance(t *testing.T) {
	for _, utterance := range []string{
		"[ACCEPT]",
		"Fine, I accept your terms.",
		"That works for me.",
		"We have a deal.",
	} {
		s := Classify(utterance)
		require.True(t, s.Accepted, utterance)
	}
}

func TestClassifyRejection(t *testing.T) {
	s := Classify("No deal. Your price is absurd.")
	require.True(t, s.Rejected)
	require.False(t, s.Withdrawn)
}

func TestClassifyWithdrawal(t *testing.T) {
	for _, utterance := range []string{
		"[WITHDRAW]",
		"I'm out.",
		"I withdraw.",
		"Enough. I am walking away from this table.",
	} {
		s := Classify(utterance)
		require.True(t, s.Withdrawn, utterance)
		require.Equal(t, ThreatWithdrawal, s.ThreatKind, utterance)
	}
}

func TestClassifyThreatKinds(t *testing.T) {
	require.Equal(t, ThreatVeto, Classify("I will not accept less than 40.").ThreatKind)
	require.Equal(t, ThreatRetaliation, Classify("Cross me and there will be consequences.").ThreatKind)
}

func TestClassifyThreatOrderWithdrawalFirst(t *testing.T) {
	// Matches both withdrawal and veto wording; withdrawal wins.
	s := Classify("I refuse, I am walking away.")
	require.Equal(t, ThreatWithdrawal, s.ThreatKind)
}

func TestClassifyContributionAndFairness(t *testing.T) {
	s := Classify("Without me there is no heist, my contribution deserves more.")
	require.True(t, s.MentionsContribution)
	require.True(t, s.AppealsToFairness)
}

func TestClassifyCoalitionTarget(t *testing.T) {
	s := Classify("Marco and I should hold the line here.")
	require.True(t, s.FormsCoalition())
	require.Equal(t, "Marco", s.CoalitionTarget)

	s = Classify("Elena is right about the funding.")
	require.Equal(t, "Elena", s.CoalitionTarget)
}

func TestClassifyNoSignals(t *testing.T) {
	s := Classify("Let me hear the numbers before anything else.")
	require.False(t, s.Accepted)
	require.False(t, s.Rejected)
	require.False(t, s.Withdrawn)
	require.Equal(t, ThreatNone, s.ThreatKind)
	require.False(t, s.MentionsContribution)
	require.False(t, s.AppealsToFairness)
	require.False(t, s.FormsCoalition())
}

func TestClassifyEmptyUtterance(t *testing.T) {
	require.Equal(t, Signals{}, Classify(""))
}
