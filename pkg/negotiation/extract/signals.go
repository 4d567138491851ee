// Package extract turns free-form negotiation utterances into structured
// signals and proposals. Everything in here is approximate natural-language
// matching over ordered pattern lists, not a strict grammar: within each
// category the first matching pattern wins, and text that matches nothing
// simply carries no signal. Classification never fails on malformed input.
package extract

import "regexp"

// ThreatKind classifies the flavor of a detected threat.
type ThreatKind string

const (
	ThreatNone        ThreatKind = ""
	ThreatWithdrawal  ThreatKind = "withdrawal"
	ThreatVeto        ThreatKind = "veto"
	ThreatRetaliation ThreatKind = "retaliation"
)

// Signals is the per-utterance classification result. CoalitionTarget is the
// raw captured ally name; callers must normalize it against the known
// participant set before trusting it.
type Signals struct {
	Accepted             bool       `json:"accepted"`
	Rejected             bool       `json:"rejected"`
	Withdrawn            bool       `json:"withdrawn"`
	ThreatKind           ThreatKind `json:"threat_kind,omitempty"`
	MentionsContribution bool       `json:"mentions_contribution"`
	AppealsToFairness    bool       `json:"appeals_to_fairness"`
	CoalitionTarget      string     `json:"coalition_target,omitempty"`
}

func (s Signals) MadeThreat() bool {
	return s.ThreatKind != ThreatNone
}

func (s Signals) FormsCoalition() bool {
	return s.CoalitionTarget != ""
}

var acceptanceMarkers = compileAll(
	`\[ACCEPT\]`,
	`(?i)i\s+accept`,
	`(?i)agreed`,
	`(?i)deal!?`,
	`(?i)we\s+have\s+a\s+deal`,
	`(?i)i('m|\s+am)\s+in`,
	`(?i)that\s+works\s+for\s+me`,
)

var rejectionMarkers = compileAll(
	`\[REJECT\]`,
	`(?i)no\s+deal`,
	`(?i)walk\s+away`,
)

var withdrawalMarkers = compileAll(
	`\[WITHDRAW\]`,
	`(?i)^i('m|\s+am)\s+out\.?\s*$`,
	`(?i)^i\s+withdraw\.?\s*$`,
	`(?i)i('m|\s+am)\s+walking\s+away`,
	`(?i)i\s+will\s+walk\s+away\s+now`,
)

// Threat detection is ordered: withdrawal outranks veto outranks retaliation
// when a single utterance matches several categories.
var threatPatterns = []struct {
	kind     ThreatKind
	patterns []*regexp.Regexp
}{
	{ThreatWithdrawal, compileAll(
		`\[WITHDRAW\]`,
		`(?i)i.*walk\s*away`,
		`(?i)i.*out`,
		`(?i)leave.*negotiation`,
		`(?i)withdraw`,
	)},
	{ThreatVeto, compileAll(
		`(?i)i.*veto`,
		`(?i)will\s+not\s+accept`,
		`(?i)refuse`,
		`(?i)non.*negotiable`,
		`(?i)never\s+agree`,
	)},
	{ThreatRetaliation, compileAll(
		`(?i)you.*regret`,
		`(?i)consequences`,
		`(?i)remember\s+this`,
		`(?i)pay\s+for`,
		`(?i)won't\s+forget`,
	)},
}

var contributionPatterns = compileAll(
	`(?i)my\s+(?:contribution|role|work|effort)`,
	`(?i)i\s+(?:planned|funded|executed|risked)`,
	`(?i)without\s+me`,
)

var fairnessPatterns = compileAll(
	`(?i)fair`,
	`(?i)equal`,
	`(?i)deserve`,
	`(?i)earned`,
)

var coalitionPatterns = compileAll(
	`(?i)(\w+)\s+and\s+i\s+(?:agree|think|should)`,
	`(?i)(?:with|support)\s+(\w+)`,
	`(?i)(\w+)\s+is\s+right`,
	`(?i)side\s+with\s+(\w+)`,
)

// Classify evaluates every signal category independently on a single
// utterance. It is pure and deterministic; withdrawal counting is the
// caller's responsibility (apply the result exactly once per utterance).
func Classify(utterance string) Signals {
	s := Signals{
		Accepted:             matchesAny(acceptanceMarkers, utterance),
		Rejected:             matchesAny(rejectionMarkers, utterance),
		Withdrawn:            matchesAny(withdrawalMarkers, utterance),
		MentionsContribution: matchesAny(contributionPatterns, utterance),
		AppealsToFairness:    matchesAny(fairnessPatterns, utterance),
	}

	for _, tp := range threatPatterns {
		if matchesAny(tp.patterns, utterance) {
			s.ThreatKind = tp.kind
			break
		}
	}

	for _, p := range coalitionPatterns {
		if m := p.FindStringSubmatch(utterance); m != nil {
			s.CoalitionTarget = m[1]
			break
		}
	}

	return s
}

func compileAll(patterns ...string) []*regexp.Regexp {
	ret := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		ret = append(ret, regexp.MustCompile(p))
	}
	return ret
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
