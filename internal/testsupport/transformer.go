package testsupport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"loom/internal/media"
)

// CountingTransformer returns a fixed result and records how many times it
// was invoked. Safe for concurrent use.
type CountingTransformer struct {
	Result media.RawResult
	calls  atomic.Int64
}

func (t *CountingTransformer) Transform(context.Context, media.Request) (*media.RawResult, error) {
	t.calls.Add(1)
	out := t.Result
	return &out, nil
}

// Calls reports how many invocations the transformer has served.
func (t *CountingTransformer) Calls() int64 {
	return t.calls.Load()
}

// ScriptedTransformer serves canned outcomes in invocation order, then
// repeats the last one. A nil result in the script produces an error.
type ScriptedTransformer struct {
	Script []*media.RawResult

	mu    sync.Mutex
	index int
	calls int
}

func (t *ScriptedTransformer) Transform(context.Context, media.Request) (*media.RawResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if len(t.Script) == 0 {
		return nil, errors.New("scripted transformer: empty script")
	}
	step := t.Script[t.index]
	if t.index < len(t.Script)-1 {
		t.index++
	}
	if step == nil {
		return nil, errors.New("scripted transformer: scripted failure")
	}
	out := *step
	return &out, nil
}

// Calls reports how many invocations the transformer has served.
func (t *ScriptedTransformer) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
