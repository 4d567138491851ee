// Package runlog persists negotiation runs as structured JSON for later
// quantitative and qualitative analysis. Each experiment gets its own
// timestamped directory holding one file per run plus the experiment
// configuration and an aggregate summary.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/parley/pkg/negotiation/metrics"
	"github.com/go-go-golems/parley/pkg/negotiation/orchestrator"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
)

// Record is the on-disk form of one finished run.
type Record struct {
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Scenario  map[string]interface{} `json:"scenario,omitempty"`
	Agents    []scenario.AgentConfig `json:"agents"`
	Outcome   *scenario.Outcome      `json:"outcome"`
	Turns     []orchestrator.Turn    `json:"turns"`
	Utilities map[string]float64     `json:"utilities"`
	Metrics   metrics.RunMetrics     `json:"metrics"`
}

// Writer owns one experiment directory and numbers the runs it receives.
type Writer struct {
	experimentName string
	experimentDir  string
	runCounter     int
	logger         zerolog.Logger
}

type WriterOption func(*Writer)

func WithLogger(logger zerolog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates <baseDir>/<experiment>_<timestamp>/ and returns a writer
// bound to it.
func NewWriter(baseDir, experimentName string, options ...WriterOption) (*Writer, error) {
	timestamp := time.Now().Format("20060102_150405")
	dir := filepath.Join(baseDir, fmt.Sprintf("%s_%s", experimentName, timestamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create experiment directory %s", dir)
	}

	w := &Writer{
		experimentName: experimentName,
		experimentDir:  dir,
		logger:         zerolog.Nop(),
	}
	for _, option := range options {
		option(w)
	}
	return w, nil
}

func (w *Writer) ExperimentDir() string {
	return w.experimentDir
}

// WriteRun persists one run as run_NNN.json and returns the record.
func (w *Writer) WriteRun(agents []scenario.AgentConfig, scenarioConfig map[string]interface{}, result *orchestrator.RunResult, runMetrics metrics.RunMetrics) (*Record, error) {
	w.runCounter++
	record := &Record{
		RunID:     result.RunID,
		Timestamp: time.Now(),
		Scenario:  scenarioConfig,
		Agents:    agents,
		Outcome:   result.Outcome,
		Turns:     result.Turns,
		Utilities: result.Utilities,
		Metrics:   runMetrics,
	}

	filename := filepath.Join(w.experimentDir, fmt.Sprintf("run_%03d.json", w.runCounter))
	if err := writeJSON(filename, record); err != nil {
		return nil, err
	}
	w.logger.Debug().Str("file", filename).Str("run_id", result.RunID).Msg("run persisted")
	return record, nil
}

// WriteConfig persists the experiment configuration as config.json.
func (w *Writer) WriteConfig(config map[string]interface{}) error {
	full := map[string]interface{}{
		"experiment_name": w.experimentName,
		"created_at":      time.Now().Format(time.RFC3339),
	}
	for k, v := range config {
		full[k] = v
	}
	return writeJSON(filepath.Join(w.experimentDir, "config.json"), full)
}

// WriteSummary persists the battery summary as summary.json.
func (w *Writer) WriteSummary(summary metrics.Summary) error {
	payload := struct {
		Experiment  string    `json:"experiment"`
		GeneratedAt time.Time `json:"generated_at"`
		metrics.Summary
	}{
		Experiment:  w.experimentName,
		GeneratedAt: time.Now(),
		Summary:     summary,
	}
	return writeJSON(filepath.Join(w.experimentDir, "summary.json"), payload)
}

func writeJSON(path string, payload interface{}) error {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "could not serialize %s", path)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return nil
}
