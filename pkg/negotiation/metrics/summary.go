package metrics

import (
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
)

// AgentAggregate is the cross-run view of one participant.
type AgentAggregate struct {
	AvgUtility   float64 `json:"avg_utility"`
	AvgShare     float64 `json:"avg_share"`
	Proposals    int     `json:"proposals"`
	Threats      int     `json:"threats"`
	Acceptances  int     `json:"acceptances"`
	TimesFirst   int     `json:"times_first_proposer"`
	TimesWinning int     `json:"times_winning_proposer"`
}

// Summary aggregates a battery of runs. All fields are well-defined for an
// empty input.
type Summary struct {
	Runs          int     `json:"runs"`
	Agreements    int     `json:"agreements"`
	AgreementRate float64 `json:"agreement_rate"`
	AvgRounds     float64 `json:"avg_rounds"`
	AvgTurns      float64 `json:"avg_turns"`
	AvgGini       float64 `json:"avg_gini"`

	TerminationCounts map[scenario.OutcomeStatus]int `json:"termination_counts"`
	Agents            map[string]*AgentAggregate     `json:"agents"`
}

// Summarize folds per-run metrics into a battery summary.
func Summarize(runs []RunMetrics) Summary {
	s := Summary{
		TerminationCounts: map[scenario.OutcomeStatus]int{},
		Agents:            map[string]*AgentAggregate{},
	}
	if len(runs) == 0 {
		return s
	}

	s.Runs = len(runs)
	totalRounds := 0
	totalTurns := 0
	giniSum := 0.0
	giniRuns := 0

	agent := func(name string) *AgentAggregate {
		a, ok := s.Agents[name]
		if !ok {
			a = &AgentAggregate{}
			s.Agents[name] = a
		}
		return a
	}

	for _, run := range runs {
		s.TerminationCounts[run.Status]++
		if run.Status == scenario.OutcomeAgreed {
			s.Agreements++
		}
		totalRounds += run.Rounds
		totalTurns += run.Turns

		if len(run.Shares) > 0 {
			giniSum += run.Gini
			giniRuns++
		}

		for name, u := range run.Utilities {
			agent(name).AvgUtility += u
		}
		for name, share := range run.Shares {
			agent(name).AvgShare += share
		}
		for name, n := range run.ProposalsByAgent {
			agent(name).Proposals += n
		}
		for name, n := range run.ThreatsByAgent {
			agent(name).Threats += n
		}
		for name, n := range run.AcceptancesByAgent {
			agent(name).Acceptances += n
		}
		if run.FirstProposer != "" {
			agent(run.FirstProposer).TimesFirst++
		}
		if run.WinningProposer != "" {
			agent(run.WinningProposer).TimesWinning++
		}
	}

	nf := float64(s.Runs)
	s.AgreementRate = float64(s.Agreements) / nf
	s.AvgRounds = float64(totalRounds) / nf
	s.AvgTurns = float64(totalTurns) / nf
	if giniRuns > 0 {
		s.AvgGini = giniSum / float64(giniRuns)
	}

	for _, a := range s.Agents {
		a.AvgUtility /= nf
		a.AvgShare /= nf
	}

	return s
}
