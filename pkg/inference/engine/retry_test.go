package engine

import (
	"context"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	text string
	err  error
}

type fakeEngine struct {
	results []fakeResult
	calls   int
}

func (f *fakeEngine) RunInference(_ context.Context, _ conversation.Conversation) (string, error) {
	if f.calls >= len(f.results) {
		f.calls++
		return "", Transient(errors.New("script exhausted"))
	}
	r := f.results[f.calls]
	f.calls++
	return r.text, r.err
}

func TestRetryingEngineReturnsFirstSuccess(t *testing.T) {
	inner := &fakeEngine{results: []fakeResult{{text: "  hello  "}}}
	e := NewRetryingEngine(inner, 2)
	e.backoff = 0

	out, err := e.RunInference(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
	require.Equal(t, 1, inner.calls)
}

func TestRetryingEngineRetriesTransientFailures(t *testing.T) {
	inner := &fakeEngine{results: []fakeResult{
		{err: Transient(errors.New("rate limited"))},
		{text: ""},
		{text: "counter: 90"},
	}}
	e := NewRetryingEngine(inner, 2)
	e.backoff = 0

	out, err := e.RunInference(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "counter: 90", out)
	require.Equal(t, 3, inner.calls)
}

func TestRetryingEngineSentinelAfterExhaustion(t *testing.T) {
	inner := &fakeEngine{}
	e := NewRetryingEngine(inner, 2)
	e.backoff = 0

	out, err := e.RunInference(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, FailureUtterance, out)
	require.Equal(t, 3, inner.calls)
}

func TestRetryingEnginePermanentFailureSurfaces(t *testing.T) {
	inner := &fakeEngine{results: []fakeResult{
		{err: errors.Wrap(ErrBackendUnavailable, "model file missing")},
	}}
	e := NewRetryingEngine(inner, 2)
	e.backoff = 0

	_, err := e.RunInference(context.Background(), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBackendUnavailable)
	require.Equal(t, 1, inner.calls)
}

func TestNewOpenAIEngineRequiresModel(t *testing.T) {
	_, err := NewOpenAIEngine(OpenAISettings{APIKey: "sk-test"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestScriptedEnginePlaysBackInOrder(t *testing.T) {
	e := NewScriptedEngine("a", "b")
	ctx := context.Background()

	out, err := e.RunInference(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "a", out)

	out, err = e.RunInference(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "b", out)

	out, err = e.RunInference(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "", out)
}
