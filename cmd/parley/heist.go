package main

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/negotiation/orchestrator"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
	"github.com/go-go-golems/parley/pkg/runlog"
)

type heistSettings struct {
	runs       int
	parallel   int
	experiment string
	logDir     string

	cfg scenario.AllocationConfig
}

func newHeistCommand() *cobra.Command {
	settings := &heistSettings{}

	cmd := &cobra.Command{
		Use:   "heist",
		Short: "Run N-party post-heist loot allocation negotiations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeist(cmd, settings)
		},
	}

	cmd.Flags().IntVar(&settings.runs, "runs", 1, "Number of negotiation runs")
	cmd.Flags().IntVar(&settings.parallel, "parallel", 1, "Concurrent runs")
	cmd.Flags().StringVar(&settings.experiment, "experiment", "heist", "Experiment name for the log directory")
	cmd.Flags().StringVar(&settings.logDir, "log-dir", "logs", "Base directory for run logs")

	cmd.Flags().Float64Var(&settings.cfg.TotalLoot, "total-loot", 100.0, "Total loot to divide")
	cmd.Flags().StringVar(&settings.cfg.Currency, "currency", "%", "Unit the loot is divided in")
	cmd.Flags().IntVar(&settings.cfg.MaxRounds, "max-rounds", 10, "Maximum negotiation rounds")
	cmd.Flags().IntVar(&settings.cfg.CollapseThreshold, "collapse-threshold", 2, "Withdrawals before the negotiation collapses")
	cmd.Flags().Float64Var(&settings.cfg.MinimumViableShare, "min-viable-share", 10.0, "Default reservation share")
	cmd.Flags().Float64Var(&settings.cfg.GreedFactor, "greed-factor", 1.0, "Multiplier applied to all aspiration shares")
	cmd.Flags().BoolVar(&settings.cfg.EnableContributionClaims, "contribution-claims", true, "Agents may argue over contributions")
	cmd.Flags().BoolVar(&settings.cfg.EnableCoalitionDynamics, "coalition-dynamics", true, "Agents may form coalitions")
	cmd.Flags().BoolVar(&settings.cfg.EnableWithdrawalThreats, "withdrawal-threats", true, "Agents may threaten withdrawal")

	return cmd
}

// defaultCrew is the standard four-member crew used when no custom crew is
// configured.
func defaultCrew() (map[string]scenario.AgentParams, []scenario.AgentConfig) {
	params := map[string]scenario.AgentParams{
		"Viktor": {
			ContributionRole: "mastermind", PerceivedContribution: 35,
			RiskTaken: "moderate", ReservationShare: 20, AspirationShare: 35,
		},
		"Marco": {
			ContributionRole: "executor", PerceivedContribution: 35,
			RiskTaken: "extreme", ReservationShare: 20, AspirationShare: 40,
		},
		"Elena": {
			ContributionRole: "financier", PerceivedContribution: 25,
			RiskTaken: "low", ReservationShare: 15, AspirationShare: 30,
		},
		"Yuki": {
			ContributionRole: "support", PerceivedContribution: 20,
			RiskTaken: "high", ReservationShare: 12, AspirationShare: 25,
		},
	}
	agents := []scenario.AgentConfig{
		{Name: "Viktor", Role: "crew", RiskTolerance: 0.5, PersonaTraits: []string{"calculating", "persuasive"}},
		{Name: "Marco", Role: "crew", RiskTolerance: 0.8, PersonaTraits: []string{"aggressive", "impatient"}},
		{Name: "Elena", Role: "crew", RiskTolerance: 0.3, PersonaTraits: []string{"cautious", "analytical"}},
		{Name: "Yuki", Role: "crew", RiskTolerance: 0.6, PersonaTraits: []string{"pragmatic", "diplomatic"}},
	}
	return params, agents
}

func runHeist(cmd *cobra.Command, settings *heistSettings) error {
	writer, err := runlog.NewWriter(settings.logDir, settings.experiment)
	if err != nil {
		return err
	}

	crew, agents := defaultCrew()
	scenarioConfig := map[string]interface{}{
		"type":   "allocation",
		"config": settings.cfg,
		"crew":   crew,
	}
	if err := writer.WriteConfig(map[string]interface{}{
		"scenario": scenarioConfig,
		"runs":     settings.runs,
	}); err != nil {
		return err
	}

	factory := func(runIdx int) (scenario.Scenario, []*orchestrator.Session, error) {
		return buildHeistRun(settings.cfg, crew, agents)
	}

	summary, err := executeRuns(cmd.Context(), writer, factory, settings.runs, settings.parallel, scenarioConfig)
	if err != nil {
		return err
	}
	printSummary(settings.experiment, summary)
	return nil
}

func buildHeistRun(cfg scenario.AllocationConfig, crew map[string]scenario.AgentParams, agents []scenario.AgentConfig) (scenario.Scenario, []*orchestrator.Session, error) {
	scn := scenario.NewAllocation(cfg)
	for _, agent := range agents {
		if err := scn.SetAgentParams(agent.Name, crew[agent.Name]); err != nil {
			return nil, nil, err
		}
	}

	sessions := make([]*orchestrator.Session, 0, len(agents))
	for _, agent := range agents {
		eng, err := buildEngine(heistDryRunScripts[agent.Name])
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, &orchestrator.Session{
			Agent:   agent,
			Engine:  eng,
			Manager: conversation.NewManager(conversation.WithSystemPrompt(scn.BuildSystemPrompt(agent))),
		})
	}
	return scn, sessions, nil
}
