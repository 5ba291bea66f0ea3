package testutil

import (
	"context"
	"sync"

	"github.com/roach88/sap/internal/model"
)

// FetchStep is one scripted fetch outcome.
type FetchStep struct {
	Objects []model.Object
	Err     error

	// Panic, if non-nil, is raised instead of returning.
	Panic any
}

// ScriptedFetch is a fetch function that replays FetchSteps in order. Once
// the script is exhausted the last step repeats; an empty script yields no
// objects.
//
// A gated ScriptedFetch holds every call open until Release is called, which
// lets a test observe a cycle while it is in flight.
type ScriptedFetch struct {
	mu    sync.Mutex
	steps []FetchStep
	calls int
	gate  chan struct{}

	started chan int
}

// NewScriptedFetch creates a fetch function replaying steps.
func NewScriptedFetch(steps ...FetchStep) *ScriptedFetch {
	return &ScriptedFetch{
		steps:   steps,
		started: make(chan int, 64),
	}
}

// Gated makes every subsequent call block until Release.
func (f *ScriptedFetch) Gated() *ScriptedFetch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f
}

// Release lets one blocked call proceed. It blocks until a call is waiting.
func (f *ScriptedFetch) Release() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// Started delivers the zero-based index of each call as it begins.
func (f *ScriptedFetch) Started() <-chan int {
	return f.started
}

// Calls returns how many times Fetch has been called.
func (f *ScriptedFetch) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Fetch has the signature of runner.FetchFunc.
func (f *ScriptedFetch) Fetch(ctx context.Context) ([]model.Object, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	var step FetchStep
	if len(f.steps) > 0 {
		step = f.steps[min(idx, len(f.steps)-1)]
	}
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.started <- idx:
	default:
	}

	if gate != nil {
		<-gate
	}
	if step.Panic != nil {
		panic(step.Panic)
	}
	return step.Objects, step.Err
}
