// Package orchestrator drives a negotiation run to completion: it sequences
// turns round-robin, feeds each agent its private conversation history,
// extracts signals and proposals from every utterance, and applies the
// scenario's termination rules in a fixed priority order. A run terminates
// deterministically in at most MaxRounds rounds with exactly one outcome.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/negotiation/extract"
	"github.com/go-go-golems/parley/pkg/negotiation/scenario"
	"github.com/go-go-golems/parley/pkg/negotiation/state"
)

// Session binds one participant to its generation backend and its private
// conversation history.
type Session struct {
	Agent   scenario.AgentConfig
	Engine  engine.Engine
	Manager conversation.Manager
}

// Turn is the record of one agent utterance and everything extracted from it.
type Turn struct {
	Round          int              `json:"round"`
	TurnInRound    int              `json:"turn_in_round"`
	Agent          string           `json:"agent"`
	Role           string           `json:"role"`
	Utterance      string           `json:"utterance"`
	Signals        extract.Signals  `json:"signals"`
	Proposal       extract.Proposal `json:"proposal,omitempty"`
	MadeProposal   bool             `json:"made_proposal"`
	Accepted       bool             `json:"accepted"`
	AcceptanceType string           `json:"acceptance_type,omitempty"`
	Withdrew       bool             `json:"withdrew"`
	CoalitionWith  string           `json:"coalition_with,omitempty"`
}

// RunResult is the complete record of one finished negotiation.
type RunResult struct {
	RunID     string             `json:"run_id"`
	Kind      scenario.Kind      `json:"kind"`
	Outcome   *scenario.Outcome  `json:"outcome"`
	Turns     []Turn             `json:"turns"`
	Utilities map[string]float64 `json:"utilities"`
}

// Orchestrator runs one negotiation at a time. Scenario and sessions are
// shared across runs; all mutable run state lives in a fresh state.State per
// Run call.
type Orchestrator struct {
	scenario       scenario.Scenario
	sessions       map[string]*Session
	publisher      *events.PublisherManager
	logger         zerolog.Logger
	matchTolerance float64
}

type Option func(*Orchestrator)

func WithPublisher(pm *events.PublisherManager) Option {
	return func(o *Orchestrator) {
		o.publisher = pm
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMatchTolerance overrides the per-identity tolerance used to detect
// implicit acceptance through proposal re-statement.
func WithMatchTolerance(tolerance float64) Option {
	return func(o *Orchestrator) {
		o.matchTolerance = tolerance
	}
}

func New(scn scenario.Scenario, sessions []*Session, options ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		scenario:       scn,
		sessions:       map[string]*Session{},
		logger:         zerolog.Nop(),
		matchTolerance: extract.DefaultMatchTolerance,
	}
	for _, s := range sessions {
		o.sessions[s.Agent.Name] = s
	}
	for _, name := range scn.Participants() {
		if _, ok := o.sessions[name]; !ok {
			return nil, errors.Errorf("no session for participant %q", name)
		}
	}
	for _, option := range options {
		option(o)
	}
	return o, nil
}

// Run executes one complete negotiation and returns its result. The caller's
// context cancels the run between turns and inside generation calls.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	logger := o.logger.With().Str("run_id", runID).Str("kind", string(o.scenario.Kind())).Logger()
	st := state.New()

	for _, name := range o.scenario.Participants() {
		o.sessions[name].Manager.Reset()
	}

	var outcome *scenario.Outcome
	var turns []Turn
	var err error

	switch o.scenario.Kind() {
	case scenario.KindBargain:
		outcome, turns, err = o.runBargain(ctx, runID, logger, st)
	case scenario.KindAllocation:
		outcome, turns, err = o.runAllocation(ctx, runID, logger, st)
	default:
		return nil, errors.Errorf("unknown scenario kind %q", o.scenario.Kind())
	}
	if err != nil {
		return nil, err
	}

	utilities := map[string]float64{}
	for _, name := range o.scenario.Participants() {
		utilities[name] = o.scenario.ComputeUtility(o.sessions[name].Agent, outcome)
	}

	o.publishBlind(events.NewOutcomeEvent(
		runID, outcome.Rounds, string(outcome.Status), outcome.Reason, outcome.Rounds, len(turns)))
	logger.Info().
		Str("status", string(outcome.Status)).
		Int("rounds", outcome.Rounds).
		Int("turns", len(turns)).
		Msg("negotiation finished")

	return &RunResult{
		RunID:     runID,
		Kind:      o.scenario.Kind(),
		Outcome:   outcome,
		Turns:     turns,
		Utilities: utilities,
	}, nil
}

func (o *Orchestrator) publishBlind(e events.Event) {
	if o.publisher != nil {
		o.publisher.PublishBlind(e)
	}
}

// generate runs one inference call and appends the utterance to the speaking
// agent's own history as an assistant message.
func (o *Orchestrator) generate(ctx context.Context, session *Session) (string, error) {
	utterance, err := session.Engine.RunInference(ctx, session.Manager.GetConversation())
	if err != nil {
		return "", errors.Wrapf(err, "generation failed for %s", session.Agent.Name)
	}
	session.Manager.AppendMessages(conversation.NewMessage(conversation.RoleAssistant, utterance))
	return utterance, nil
}

// broadcast delivers an utterance to every participant except the speaker.
func (o *Orchestrator) broadcast(speaker, utterance string) {
	text := fmt.Sprintf("[%s]: %s", speaker, utterance)
	for _, name := range o.scenario.Participants() {
		if name == speaker {
			continue
		}
		o.sessions[name].Manager.AppendMessages(conversation.NewMessage(conversation.RoleUser, text))
	}
}

// normalizeCoalitionTarget maps a raw coalition mention onto a participant
// name when one matches case-insensitively.
func (o *Orchestrator) normalizeCoalitionTarget(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}
	for _, name := range o.scenario.Participants() {
		if strings.ToLower(name) == lowered {
			return name
		}
	}
	return lowered
}

func timedOutOutcome(st *state.State, rounds int) *scenario.Outcome {
	return &scenario.Outcome{
		Status:           scenario.OutcomeTimedOut,
		Reason:           "maximum rounds reached without agreement",
		LastProposal:     st.ActiveProposal().Clone(),
		FinalAcceptances: st.Acceptances(),
		Rounds:           rounds,
	}
}
