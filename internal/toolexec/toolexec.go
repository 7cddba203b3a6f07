// Package toolexec runs the external programs texbuilder orchestrates
// (typesetting engine, bibliography processor, version probes) and
// captures their output.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the program is not on PATH.
	ErrNotFound = errors.New("executable not found")
	// ErrTimeout is returned when the program outlives Command.Timeout.
	ErrTimeout = errors.New("execution timed out")
)

// Command describes a single external invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration // zero means no per-call limit
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output returns stdout followed by stderr.
func (r Result) Output() string {
	return combine(r.Stdout, r.Stderr)
}

// ExitError reports a non-zero exit status. Output is the verbatim
// combined stdout and stderr of the program.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

// Runner executes external programs. Implementations must block until the
// program exits or the timeout elapses.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

// NewExecRunner returns the default Runner.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// LookPath resolves name on PATH.
func (ExecRunner) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
	}
	return p, nil
}

// Run executes cmd and waits for it to finish.
func (r ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	path, err := r.LookPath(cmd.Name)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	// #nosec G204 -- path comes from exec.LookPath and args are built by texbuilder
	c := exec.CommandContext(runCtx, path, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err = c.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd, cmd.Timeout)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", cmd.Name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Command: cmd.String(), ExitCode: exitErr.ExitCode(), Output: res.Output()}
	}
	return res, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
}

func combine(stdout, stderr string) string {
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	}
	if !strings.HasSuffix(stdout, "\n") {
		stdout += "\n"
	}
	return stdout + stderr
}
