package supervision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds every external call that has no deadline of its own.
const DefaultCommandTimeout = 10 * time.Second

// Runner executes host commands as argument vectors. No shell is involved, so
// caller-supplied values cannot be reinterpreted as syntax.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// CombinedOutput runs the command and returns stdout and stderr interleaved.
	CombinedOutput(ctx context.Context, name string, args ...string) (string, error)
	// StartDetached launches the command in its own process group with standard
	// streams on the null device and does not wait for it.
	StartDetached(name string, args ...string) error
}

// CommandError describes a failed external call.
type CommandError struct {
	Command  string
	ExitCode int // -1 when the process did not exit on its own
	TimedOut bool
	Timeout  time.Duration
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
	case e.ExitCode >= 0:
		return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec under a bounded timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given default timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	return r.run(ctx, false, name, args)
}

func (r *ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) (string, error) {
	return r.run(ctx, true, name, args)
}

// bound derives the context a command runs under. The caller's cancellation is
// not propagated: a started command finishes or hits its deadline.
func (r *ExecRunner) bound(ctx context.Context) (context.Context, context.CancelFunc, time.Duration) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		c, cancel := context.WithDeadline(detached, deadline)
		return c, cancel, time.Until(deadline).Round(time.Second)
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	c, cancel := context.WithTimeout(detached, timeout)
	return c, cancel, timeout
}

func (r *ExecRunner) run(ctx context.Context, combined bool, name string, args []string) (string, error) {
	ctx, cancel, timeout := r.bound(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	if combined {
		cmd.Stderr = &out
	}

	err := cmd.Run()
	if err == nil {
		return out.String(), nil
	}

	cerr := &CommandError{
		Command:  describe(name, args),
		ExitCode: -1,
		Output:   out.String(),
		Err:      err,
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cerr.TimedOut = true
		cerr.Timeout = timeout
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		}
	}
	return out.String(), cerr
}

func (r *ExecRunner) StartDetached(name string, args ...string) error {
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	cmd := exec.Command(name, args...)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return err
	}
	// reap the child if this process outlives it
	go cmd.Wait()
	return nil
}

// describe names a command for messages: the program, plus its subcommand
// when the first argument is one. For sudo the elevated program is named.
func describe(name string, args []string) string {
	if filepath.Base(name) == "sudo" {
		for _, a := range args {
			if !strings.HasPrefix(a, "-") {
				return name + " " + a
			}
		}
		return name
	}
	if len(args) > 0 && args[0] != "" && !strings.HasPrefix(args[0], "-") {
		return name + " " + args[0]
	}
	return name
}
