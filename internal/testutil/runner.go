package testutil

import (
	"context"
	"sync"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/runner"
)

// FakeRunner returns canned results per command and records every call.
type FakeRunner struct {
	mu      sync.Mutex
	results map[string]runner.Result
	errs    map[string]error
	calls   []string
	onRun   func(command string)
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		results: make(map[string]runner.Result),
		errs:    make(map[string]error),
	}
}

// SetResult sets the result for command. Unknown commands exit 0.
func (r *FakeRunner) SetResult(command string, res runner.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[command] = res
}

// SetError makes command fail to start.
func (r *FakeRunner) SetError(command string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[command] = err
}

// OnRun registers a hook invoked at the start of every call.
func (r *FakeRunner) OnRun(fn func(command string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRun = fn
}

// Calls returns the commands run so far, in order.
func (r *FakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *FakeRunner) Run(ctx context.Context, command, workdir string) (runner.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, command)
	hook := r.onRun
	res, err := r.results[command], r.errs[command]
	r.mu.Unlock()

	if hook != nil {
		hook(command)
	}
	return res, err
}
