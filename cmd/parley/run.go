package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parley/pkg/negotiation/metrics"
	"github.com/go-go-golems/parley/pkg/negotiation/orchestrator"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
	"github.com/go-go-golems/parley/pkg/runlog"
)

// runFactory builds a fresh scenario and session set for one run. Runs are
// independent; nothing mutable may be shared between the values returned for
// different indices.
type runFactory func(runIdx int) (scenario.Scenario, []*orchestrator.Session, error)

// executeRuns drives a batch of independent negotiations, persists each run
// and returns the aggregate summary.
func executeRuns(ctx context.Context, writer *runlog.Writer, factory runFactory, runs, parallel int, scenarioConfig map[string]interface{}) (metrics.Summary, error) {
	if parallel < 1 {
		parallel = 1
	}

	var mu sync.Mutex
	perRun := make([]metrics.RunMetrics, 0, runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i := 0; i < runs; i++ {
		runIdx := i
		g.Go(func() error {
			scn, sessions, err := factory(runIdx)
			if err != nil {
				return err
			}

			o, err := orchestrator.New(scn, sessions,
				orchestrator.WithLogger(log.With().Int("run", runIdx+1).Logger()))
			if err != nil {
				return err
			}

			result, err := o.Run(gctx)
			if err != nil {
				return err
			}
			runMetrics := metrics.Compute(scn, result)

			agents := make([]scenario.AgentConfig, 0, len(sessions))
			for _, s := range sessions {
				agents = append(agents, s.Agent)
			}

			mu.Lock()
			defer mu.Unlock()
			if _, err := writer.WriteRun(agents, scenarioConfig, result, runMetrics); err != nil {
				return err
			}
			perRun = append(perRun, runMetrics)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return metrics.Summary{}, err
	}

	summary := metrics.Summarize(perRun)
	if err := writer.WriteSummary(summary); err != nil {
		return metrics.Summary{}, err
	}
	return summary, nil
}

func printSummary(name string, summary metrics.Summary) {
	event := log.Info().
		Str("experiment", name).
		Int("runs", summary.Runs).
		Float64("agreement_rate", summary.AgreementRate).
		Float64("avg_rounds", summary.AvgRounds)
	if summary.AvgGini > 0 {
		event = event.Float64("avg_gini", summary.AvgGini)
	}
	event.Msg("battery finished")

	for agent, agg := range summary.Agents {
		log.Info().
			Str("agent", agent).
			Float64("avg_utility", agg.AvgUtility).
			Int("proposals", agg.Proposals).
			Int("threats", agg.Threats).
			Msg("agent aggregate")
	}
}
