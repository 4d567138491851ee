// Package metrics computes fairness and outcome analytics over finished
// negotiation runs. Everything here is a pure function of run results; no
// metric feeds back into the protocol.
package metrics

import (
	"math"
	"sort"

	"github.com/go-go-golems/parley/pkg/negotiation/orchestrator"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
)

// RunMetrics is the per-run analytics record.
type RunMetrics struct {
	RunID     string                 `json:"run_id"`
	Status    scenario.OutcomeStatus `json:"status"`
	Rounds    int                    `json:"rounds"`
	Turns     int                    `json:"turns"`
	Utilities map[string]float64     `json:"utilities"`
	Shares    map[string]float64     `json:"shares,omitempty"`

	Gini      float64 `json:"gini"`
	MinShare  float64 `json:"min_share"`
	MaxShare  float64 `json:"max_share"`
	MeanShare float64 `json:"mean_share"`
	StdShare  float64 `json:"std_share"`

	ProposalsByAgent   map[string]int `json:"proposals_by_agent"`
	ThreatsByAgent     map[string]int `json:"threats_by_agent"`
	AcceptancesByAgent map[string]int `json:"acceptances_by_agent"`

	FirstProposer   string `json:"first_proposer,omitempty"`
	WinningProposer string `json:"winning_proposer,omitempty"`
}

// Gini computes the Gini coefficient of the given shares using the standard
// cumulative-sum formula over the sorted values. Defined as 0 when the total
// is 0 or fewer than two shares exist.
func Gini(shares []float64) float64 {
	n := len(shares)
	if n < 2 {
		return 0.0
	}

	sorted := append([]float64(nil), shares...)
	sort.Float64s(sorted)

	cumsum := 0.0
	giniSum := 0.0
	for i, v := range sorted {
		cumsum += v
		giniSum += float64(i+1) * v
	}
	if cumsum == 0 {
		return 0.0
	}

	nf := float64(n)
	return (2*giniSum/cumsum - (nf + 1)) / nf
}

// Compute derives the analytics for one finished run.
func Compute(scn scenario.Scenario, result *orchestrator.RunResult) RunMetrics {
	m := RunMetrics{
		RunID:              result.RunID,
		Status:             result.Outcome.Status,
		Rounds:             result.Outcome.Rounds,
		Turns:              len(result.Turns),
		Utilities:          result.Utilities,
		ProposalsByAgent:   map[string]int{},
		ThreatsByAgent:     map[string]int{},
		AcceptancesByAgent: map[string]int{},
	}

	for _, turn := range result.Turns {
		if turn.MadeProposal {
			m.ProposalsByAgent[turn.Agent]++
			if m.FirstProposer == "" {
				m.FirstProposer = turn.Agent
			}
		}
		if turn.Signals.MadeThreat() {
			m.ThreatsByAgent[turn.Agent]++
		}
		if turn.Accepted {
			m.AcceptancesByAgent[turn.Agent]++
		}
	}

	if result.Outcome.Agreed() && result.Outcome.FinalProposal != nil {
		// Walk the turn log backwards to find who owned the winning proposal.
		for i := len(result.Turns) - 1; i >= 0; i-- {
			if result.Turns[i].MadeProposal {
				m.WinningProposer = result.Turns[i].Agent
				break
			}
		}

		if scn.Kind() == scenario.KindAllocation {
			m.Shares = map[string]float64{}
			shares := make([]float64, 0, len(scn.Participants()))
			for _, name := range scn.Participants() {
				share := result.Outcome.FinalProposal[name]
				m.Shares[name] = share
				shares = append(shares, share)
			}
			m.Gini = Gini(shares)
			m.MinShare, m.MaxShare, m.MeanShare, m.StdShare = dispersion(shares)
		}
	}

	return m
}

// dispersion returns min, max, mean and population standard deviation.
func dispersion(values []float64) (min, max, mean, std float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	min = values[0]
	max = values[0]
	sum := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return min, max, mean, math.Sqrt(variance)
}
