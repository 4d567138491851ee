package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/parley/pkg/negotiation/orchestrator"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
	"github.com/go-go-golems/parley/pkg/runlog"
)

// BatteryCondition is one experimental condition in a battery file. Exactly
// one of the bargain/allocation sections must be present.
type BatteryCondition struct {
	Name string `yaml:"name"`

	Bargain       *scenario.BargainConfig `yaml:"bargain,omitempty"`
	VendorMin     float64                 `yaml:"vendor_min"`
	BuyerEstimate float64                 `yaml:"buyer_estimate"`
	BuyerProfile  string                  `yaml:"buyer_profile"`

	Allocation *scenario.AllocationConfig      `yaml:"allocation,omitempty"`
	Crew       map[string]scenario.AgentParams `yaml:"crew,omitempty"`
}

// BatteryFile is the YAML schema of a battery definition.
type BatteryFile struct {
	Experiment string             `yaml:"experiment"`
	Runs       int                `yaml:"runs"`
	Parallel   int                `yaml:"parallel"`
	Seed       int64              `yaml:"seed"`
	Conditions []BatteryCondition `yaml:"conditions"`
}

func newBatteryCommand() *cobra.Command {
	var (
		file     string
		logDir   string
		runs     int
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "battery",
		Short: "Run a battery of experimental conditions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			battery, err := loadBatteryFile(file)
			if err != nil {
				return err
			}
			if runs > 0 {
				battery.Runs = runs
			}
			if parallel > 0 {
				battery.Parallel = parallel
			}
			return runBattery(cmd, battery, logDir)
		},
	}

	cmd.Flags().StringVar(&file, "file", "battery.yaml", "Battery definition file")
	cmd.Flags().StringVar(&logDir, "log-dir", "logs", "Base directory for run logs")
	cmd.Flags().IntVar(&runs, "runs", 0, "Override runs per condition")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Override concurrent runs per condition")

	return cmd
}

func loadBatteryFile(path string) (*BatteryFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read battery file %s", path)
	}

	battery := &BatteryFile{Runs: 12, Parallel: 1}
	if err := yaml.Unmarshal(b, battery); err != nil {
		return nil, errors.Wrapf(err, "could not parse battery file %s", path)
	}
	if battery.Experiment == "" {
		return nil, errors.Errorf("battery file %s has no experiment name", path)
	}
	if len(battery.Conditions) == 0 {
		return nil, errors.Errorf("battery file %s has no conditions", path)
	}
	for _, condition := range battery.Conditions {
		if condition.Name == "" {
			return nil, errors.New("every battery condition needs a name")
		}
		if (condition.Bargain == nil) == (condition.Allocation == nil) {
			return nil, errors.Errorf("condition %s must define exactly one of bargain or allocation", condition.Name)
		}
	}
	return battery, nil
}

func runBattery(cmd *cobra.Command, battery *BatteryFile, logDir string) error {
	for _, condition := range battery.Conditions {
		experiment := fmt.Sprintf("%s_%s", battery.Experiment, condition.Name)
		writer, err := runlog.NewWriter(logDir, experiment)
		if err != nil {
			return err
		}

		factory, scenarioConfig, err := conditionFactory(condition, battery.Seed)
		if err != nil {
			return err
		}

		if err := writer.WriteConfig(map[string]interface{}{
			"condition": condition.Name,
			"scenario":  scenarioConfig,
			"runs":      battery.Runs,
		}); err != nil {
			return err
		}

		summary, err := executeRuns(cmd.Context(), writer, factory, battery.Runs, battery.Parallel, scenarioConfig)
		if err != nil {
			return errors.Wrapf(err, "condition %s failed", condition.Name)
		}
		printSummary(experiment, summary)
	}
	return nil
}

func conditionFactory(condition BatteryCondition, seed int64) (runFactory, map[string]interface{}, error) {
	if condition.Bargain != nil {
		cfg := *condition.Bargain
		vendorMin := condition.VendorMin
		if vendorMin == 0 {
			vendorMin = cfg.TrueMarketValue * 0.6
		}
		buyerEstimate := condition.BuyerEstimate
		if buyerEstimate == 0 {
			buyerEstimate = cfg.TrueMarketValue
		}
		buyerProfile := condition.BuyerProfile
		if buyerProfile == "" {
			buyerProfile = "neutral"
		}

		scenarioConfig := map[string]interface{}{
			"type":           "bargain",
			"config":         cfg,
			"vendor_min":     vendorMin,
			"buyer_estimate": buyerEstimate,
			"buyer_profile":  buyerProfile,
		}
		factory := func(runIdx int) (scenario.Scenario, []*orchestrator.Session, error) {
			return buildSoukRun(cfg, vendorMin, buyerEstimate, buyerProfile, seed+int64(runIdx))
		}
		return factory, scenarioConfig, nil
	}

	cfg := *condition.Allocation
	crew := condition.Crew
	var agents []scenario.AgentConfig
	if len(crew) == 0 {
		crew, agents = defaultCrew()
	} else {
		names := make([]string, 0, len(crew))
		for name := range crew {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			agents = append(agents, scenario.AgentConfig{Name: name, Role: "crew", RiskTolerance: 0.5})
		}
	}

	scenarioConfig := map[string]interface{}{
		"type":   "allocation",
		"config": cfg,
		"crew":   crew,
	}
	factory := func(runIdx int) (scenario.Scenario, []*orchestrator.Session, error) {
		return buildHeistRun(cfg, crew, agents)
	}
	return factory, scenarioConfig, nil
}
