package engine

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/rs/zerolog/log"
)

const defaultRetryBackoff = 500 * time.Millisecond

// RetryingEngine wraps an Engine with bounded retries on transient failures
// and empty completions. Exhausting the retry budget yields FailureUtterance
// with a nil error; permanent failures are returned immediately.
type RetryingEngine struct {
	inner    Engine
	attempts int
	backoff  time.Duration
}

var _ Engine = (*RetryingEngine)(nil)

// NewRetryingEngine wraps inner with retryAttempts additional attempts after
// the first one.
func NewRetryingEngine(inner Engine, retryAttempts int) *RetryingEngine {
	if retryAttempts < 0 {
		retryAttempts = 0
	}
	return &RetryingEngine{
		inner:    inner,
		attempts: retryAttempts,
		backoff:  defaultRetryBackoff,
	}
}

func (e *RetryingEngine) RunInference(ctx context.Context, messages conversation.Conversation) (string, error) {
	for attempt := 0; attempt <= e.attempts; attempt++ {
		response, err := e.inner.RunInference(ctx, messages)
		if err == nil {
			if trimmed := strings.TrimSpace(response); trimmed != "" {
				return trimmed, nil
			}
			log.Debug().Int("attempt", attempt).Int("retries", e.attempts).
				Msg("empty completion, retrying")
		} else {
			if !IsTransient(err) {
				return "", err
			}
			log.Warn().Err(err).Int("attempt", attempt).Int("retries", e.attempts).
				Msg("transient inference failure, retrying")
		}

		if attempt < e.attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(e.backoff):
			}
		}
	}

	return FailureUtterance, nil
}
