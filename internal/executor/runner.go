package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs one scheduler command to completion. A non-zero exit is
// reported through exitCode with a nil error; err is set only when the
// command could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// pipeWaitDelay bounds how long Run waits for grandchildren that inherited
// the output pipes after the command itself exited.
const pipeWaitDelay = 10 * time.Second

type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	var stdout, stderr strings.Builder
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeWaitDelay

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return stdout.String(), stderr.String(), 0, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	default:
		return stdout.String(), stderr.String(), -1, err
	}
}
