// Package testhelper provides shared test doubles for cvs-release packages.
package testhelper

import (
	"context"
	"sync"

	"github.com/shinji-kodama/cvs-release/internal/command"
	"github.com/shinji-kodama/cvs-release/internal/model"
)

// Handler is invoked by FakeExecutor for every command it receives.
// It may create files to simulate side effects, and returns the result
// and error the fake should report.
type Handler func(cmd command.Command) (command.Result, error)

// FakeExecutor records every command and delegates to per-program
// handlers. Commands without a handler succeed with empty output.
type FakeExecutor struct {
	mu       sync.Mutex
	calls    []command.Command
	handlers map[string]Handler
}

// NewFakeExecutor creates an empty FakeExecutor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{handlers: make(map[string]Handler)}
}

// On registers h for commands whose Name equals name.
func (f *FakeExecutor) On(name string, h Handler) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// FailOn makes every command named name exit with the given status.
func (f *FakeExecutor) FailOn(name string, exitCode int, stderr string) *FakeExecutor {
	return f.On(name, func(cmd command.Command) (command.Result, error) {
		return command.Result{Stderr: stderr, ExitCode: exitCode}, &model.CommandError{
			Name:     cmd.Name,
			Args:     cmd.Args,
			Dir:      cmd.Dir,
			ExitCode: exitCode,
			Stderr:   stderr,
		}
	})
}

// Run implements command.Executor.
func (f *FakeExecutor) Run(_ context.Context, cmd command.Command) (command.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	h := f.handlers[cmd.Name]
	f.mu.Unlock()

	if h == nil {
		return command.Result{}, nil
	}
	return h(cmd)
}

// Calls returns a copy of all recorded commands in invocation order.
func (f *FakeExecutor) Calls() []command.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded commands whose Name equals name.
func (f *FakeExecutor) CallsTo(name string) []command.Command {
	var out []command.Command
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
