package main

import (
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/negotiation/orchestrator"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
	"github.com/go-go-golems/parley/pkg/runlog"
)

type soukSettings struct {
	runs       int
	parallel   int
	experiment string
	logDir     string
	seed       int64

	cfg           scenario.BargainConfig
	vendorMin     float64
	buyerEstimate float64
	buyerProfile  string
}

func newSoukCommand() *cobra.Command {
	settings := &soukSettings{}

	cmd := &cobra.Command{
		Use:   "souk",
		Short: "Run vendor/buyer price negotiations in a souk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSouk(cmd, settings)
		},
	}

	cmd.Flags().IntVar(&settings.runs, "runs", 1, "Number of negotiation runs")
	cmd.Flags().IntVar(&settings.parallel, "parallel", 1, "Concurrent runs")
	cmd.Flags().StringVar(&settings.experiment, "experiment", "souk", "Experiment name for the log directory")
	cmd.Flags().StringVar(&settings.logDir, "log-dir", "logs", "Base directory for run logs")
	cmd.Flags().Int64Var(&settings.seed, "seed", 0, "Base RNG seed for buyer-type noise")

	cmd.Flags().Float64Var(&settings.cfg.TrueMarketValue, "market-value", 120.0, "True market value of the item")
	cmd.Flags().StringVar(&settings.cfg.Currency, "currency", "MAD", "Currency symbol")
	cmd.Flags().IntVar(&settings.cfg.MaxRounds, "max-rounds", 8, "Maximum negotiation rounds")
	cmd.Flags().Float64Var(&settings.vendorMin, "vendor-min", 80.0, "Vendor's minimum acceptable price")
	cmd.Flags().Float64Var(&settings.buyerEstimate, "buyer-estimate", 100.0, "Buyer's private market estimate")
	cmd.Flags().StringVar(&settings.buyerProfile, "buyer-profile", "neutral", "Buyer profile (tourist, local, neutral)")

	cmd.Flags().Float64Var(&settings.cfg.LocalOpeningMarkup, "local-markup", 1.15, "Vendor opening markup for locals")
	cmd.Flags().Float64Var(&settings.cfg.TouristOpeningMarkup, "tourist-markup", 1.35, "Vendor opening markup for tourists")
	cmd.Flags().Float64Var(&settings.cfg.TouristConcessionFactor, "tourist-concession", 0.7, "Vendor concession factor against tourists")
	cmd.Flags().Float64Var(&settings.cfg.BuyerTypeNoise, "buyer-type-noise", 0.0, "Probability of flipping the inferred buyer type")
	cmd.Flags().Float64Var(&settings.cfg.LocalFairnessBand, "local-fairness-band", 0.10, "Local buyer's fair-price band around market value")
	cmd.Flags().Float64Var(&settings.cfg.TouristOverpayTolerance, "tourist-overpay-tolerance", 0.25, "Tourist buyer's overpay tolerance above their estimate")
	cmd.Flags().BoolVar(&settings.cfg.EnableVendorBuyerTypePricing, "vendor-pricing", true, "Vendor adapts pricing to the inferred buyer type")
	cmd.Flags().BoolVar(&settings.cfg.EnableBuyerProfileConstraints, "buyer-constraints", true, "Buyer prompt carries private price constraints")
	cmd.Flags().BoolVar(&settings.cfg.EnableBuyerProtocolGuidance, "buyer-guidance", true, "Buyer prompt carries negotiation discipline rules")

	return cmd
}

func runSouk(cmd *cobra.Command, settings *soukSettings) error {
	writer, err := runlog.NewWriter(settings.logDir, settings.experiment)
	if err != nil {
		return err
	}

	scenarioConfig := map[string]interface{}{
		"type":           "bargain",
		"config":         settings.cfg,
		"vendor_min":     settings.vendorMin,
		"buyer_estimate": settings.buyerEstimate,
		"buyer_profile":  settings.buyerProfile,
	}
	if err := writer.WriteConfig(map[string]interface{}{
		"scenario": scenarioConfig,
		"runs":     settings.runs,
	}); err != nil {
		return err
	}

	factory := func(runIdx int) (scenario.Scenario, []*orchestrator.Session, error) {
		return buildSoukRun(settings.cfg, settings.vendorMin, settings.buyerEstimate,
			settings.buyerProfile, settings.seed+int64(runIdx))
	}

	summary, err := executeRuns(cmd.Context(), writer, factory, settings.runs, settings.parallel, scenarioConfig)
	if err != nil {
		return err
	}
	printSummary(settings.experiment, summary)
	return nil
}

// buildSoukRun assembles one independent souk negotiation: a fresh scenario
// (with its own RNG), fresh conversation histories, and one engine per agent.
func buildSoukRun(cfg scenario.BargainConfig, vendorMin, buyerEstimate float64, buyerProfile string, seed int64) (scenario.Scenario, []*orchestrator.Session, error) {
	scn := scenario.NewBargain(cfg, scenario.WithRand(rand.New(rand.NewSource(seed))))
	scn.RegisterVendor("Vendor", vendorMin)
	scn.RegisterBuyer("Buyer", buyerEstimate)
	if err := scn.SetBuyerProfile("Buyer", buyerProfile); err != nil {
		return nil, nil, err
	}

	agents := []scenario.AgentConfig{
		{Name: "Vendor", Role: "vendor"},
		{Name: "Buyer", Role: "buyer", RiskTolerance: 0.5},
	}

	sessions := make([]*orchestrator.Session, 0, len(agents))
	for _, agent := range agents {
		eng, err := buildEngine(soukDryRunScripts[agent.Name])
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
