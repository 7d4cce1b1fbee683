package migrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Executor runs an external tool to completion and returns its exit status.
// An error means the tool could not be run at all.
type Executor interface {
	Run(ctx context.Context, c Command) (int, error)
}

// ProcessExecutor spawns tools as child processes and waits for them.
type ProcessExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (e ProcessExecutor) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return -1, fmt.Errorf("run %s: %w", c.Path, err)
}

// ExitError reports a tool that finished with a nonzero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// run executes c and folds a nonzero status into an *ExitError.
func run(ctx context.Context, ex Executor, c Command) (int, error) {
	code, err := ex.Run(ctx, c)
	if err != nil {
		return code, err
	}
	if code != 0 {
		return code, &ExitError{Code: code}
	}
	return 0, nil
}
