package engine

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
)

// Engine maps a conversation history to a single generated utterance.
// Implementations handle provider-specific logic (OpenAI-compatible APIs,
// scripted playback, ...). An Engine owns no retry policy; wrap it in a
// RetryingEngine to get bounded retries and the sentinel failure utterance.
type Engine interface {
	// RunInference generates the next utterance for the given history.
	// Transient failures are reported as *TransientError so callers can
	// retry; a permanently unavailable backend reports an error wrapping
	// ErrBackendUnavailable.
	RunInference(ctx context.Context, messages conversation.Conversation) (string, error)
}

// CloseableEngine is implemented by engines that hold releasable resources.
type CloseableEngine interface {
	Engine
	Close() error
}
