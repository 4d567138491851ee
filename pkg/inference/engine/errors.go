package engine

import (
	"github.com/pkg/errors"
)

// ErrBackendUnavailable marks a permanent failure: missing API key, missing
// model artifact, unusable endpoint. Callers must not retry.
var ErrBackendUnavailable = errors.New("inference backend unavailable")

// FailureUtterance is returned by RetryingEngine once transient retries are
// exhausted. The negotiation loop classifies it like any other utterance
// (it carries no signals), so a flaky backend degrades to a no-op turn
// instead of aborting the run.
const FailureUtterance = "[generation failed after retries]"

// TransientError wraps a retryable failure (timeouts, rate limits, empty
// completions).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient inference failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
