package toolexec

import (
	"context"
	"fmt"
	"sync"
)

// Handler produces the outcome of a faked invocation.
type Handler func(ctx context.Context, cmd Command) (Result, error)

// FakeRunner is an in-memory Runner for tests. Tools are registered by
// name; unregistered tools behave as missing from PATH.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Command
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]Handler)}
}

// Handle registers h for the tool name.
func (f *FakeRunner) Handle(name string, h Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// Output registers a tool that always succeeds with the given stdout.
func (f *FakeRunner) Output(name, stdout string) *FakeRunner {
	return f.Handle(name, func(context.Context, Command) (Result, error) {
		return Result{Stdout: stdout}, nil
	})
}

// Fail registers a tool that always exits with code and output.
func (f *FakeRunner) Fail(name string, code int, output string) *FakeRunner {
	return f.Handle(name, func(_ context.Context, cmd Command) (Result, error) {
		return Result{Stdout: output, ExitCode: code}, &ExitError{Command: cmd.String(), ExitCode: code, Output: output}
	})
}

// LookPath reports registered tools under a fake /usr/bin prefix.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.handlers[name]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return "/usr/bin/" + name, nil
}

// Run records the call and dispatches to the registered handler.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	h, ok := f.handlers[cmd.Name]
	f.mu.Unlock()
	if !ok {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s", ErrNotFound, cmd.Name)
	}
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}
	return h(ctx, cmd)
}

// Calls returns a copy of every recorded invocation in order.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallNames returns the tool name of every recorded invocation.
func (f *FakeRunner) CallNames() []string {
	calls := f.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}
