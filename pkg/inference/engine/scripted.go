package engine

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
)

// ScriptedEngine replays a fixed list of utterances, one per call. It is used
// in tests and dry runs where the generation backend is out of scope. Once
// the script is exhausted it keeps returning the empty string, which the
// negotiation loop treats as a signal-free pass.
type ScriptedEngine struct {
	utterances []string
	next       int
}

var _ Engine = (*ScriptedEngine)(nil)

func NewScriptedEngine(utterances ...string) *ScriptedEngine {
	return &ScriptedEngine{utterances: utterances}
}

func (e *ScriptedEngine) RunInference(ctx context.Context, _ conversation.Conversation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.next >= len(e.utterances) {
		return "", nil
	}
	u := e.utterances[e.next]
	e.next++
	return u, nil
}

// Remaining returns how many scripted utterances are left.
func (e *ScriptedEngine) Remaining() int {
	return len(e.utterances) - e.next
}
