package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/me/slurmgo/pkg/model"
)

// AcceptedMarker starts the submission command's output when a job was queued.
const AcceptedMarker = "Submitted batch job"

// StateField is the show-job field holding the scheduler state.
const StateField = "JobState"

// SlurmCommands names the scheduler binaries.
type SlurmCommands struct {
	Submit string `yaml:"submit"`
	Show   string `yaml:"show"`
	Cancel string `yaml:"cancel"`
}

// DefaultSlurmCommands returns the stock SLURM command names.
func DefaultSlurmCommands() SlurmCommands {
	return SlurmCommands{Submit: "sbatch", Show: "scontrol", Cancel: "scancel"}
}

// SlurmExecutor submits, inspects and cancels scheduler jobs through the
// SLURM command-line tools.
type SlurmExecutor struct {
	cmds   SlurmCommands
	logger *slog.Logger
	runner CommandRunner
}

// NewSlurmExecutor creates a SlurmExecutor. Empty command names fall back
// to DefaultSlurmCommands.
func NewSlurmExecutor(cmds SlurmCommands, logger *slog.Logger) *SlurmExecutor {
	return newSlurmExecutorWithRunner(cmds, logger, &osCommandRunner{})
}

// newSlurmExecutorWithRunner is used by tests to inject a mock CommandRunner.
func newSlurmExecutorWithRunner(cmds SlurmCommands, logger *slog.Logger, runner CommandRunner) *SlurmExecutor {
	def := DefaultSlurmCommands()
	if cmds.Submit == "" {
		cmds.Submit = def.Submit
	}
	if cmds.Show == "" {
		cmds.Show = def.Show
	}
	if cmds.Cancel == "" {
		cmds.Cancel = def.Cancel
	}
	return &SlurmExecutor{
		cmds:   cmds,
		logger: logger.With("component", "slurm-executor"),
		runner: runner,
	}
}

// Kind returns model.HandleScheduler.
func (e *SlurmExecutor) Kind() model.HandleKind {
	return model.HandleScheduler
}

// Submit queues scriptPath, adding --dependency when dependency is not
// empty. A command that ran but did not accept the job yields a
// *model.RejectedError; a command that could not be started yields a
// plain error.
func (e *SlurmExecutor) Submit(ctx context.Context, scriptPath, dependency string) (int64, error) {
	var args []string
	if dependency != "" {
		args = append(args, "--dependency="+dependency)
	}
	args = append(args, scriptPath)

	stdout, stderr, exitCode, err := e.runner.Run(ctx, e.cmds.Submit, args...)
	if err != nil {
		return 0, fmt.Errorf("run %s: %w", e.cmds.Submit, err)
	}
	e.logger.Info("submit output", "script", scriptPath, "dependency", dependency,
		"exit_code", exitCode, "stdout", strings.TrimSpace(stdout))

	if exitCode != 0 {
		return 0, &model.RejectedError{Output: strings.TrimSpace(stdout + stderr)}
	}
	id, ok := ParseSubmitOutput(stdout)
	if !ok {
		return 0, &model.RejectedError{Output: strings.TrimSpace(stdout)}
	}
	return id, nil
}

// ParseSubmitOutput extracts the job id from accepted submission output.
// The id is the last whitespace-delimited token.
func ParseSubmitOutput(stdout string) (int64, bool) {
	out := strings.TrimSpace(stdout)
	if !strings.HasPrefix(out, AcceptedMarker) {
		return 0, false
	}
	fields := strings.Fields(out)
	id, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Show returns the detailed record of job id as a field map.
func (e *SlurmExecutor) Show(ctx context.Context, id int64) (map[string]string, error) {
	stdout, stderr, exitCode, err := e.runner.Run(ctx, e.cmds.Show, "-d", "-o", "show", "job", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, &model.QueryError{JobID: id, Err: fmt.Errorf("run %s: %w", e.cmds.Show, err)}
	}
	if exitCode != 0 {
		return nil, &model.QueryError{JobID: id, Err: fmt.Errorf("%s exited with code %d: %s", e.cmds.Show, exitCode, strings.TrimSpace(stderr))}
	}
	fields := ParseShowOutput(stdout)
	if len(fields) == 0 {
		return nil, &model.QueryError{JobID: id, Err: errors.New("no fields in output")}
	}
	return fields, nil
}

// ParseShowOutput splits one-line show-job output into key=value pairs.
// Tokens without '=' are skipped.
func ParseShowOutput(stdout string) map[string]string {
	fields := make(map[string]string)
	for _, tok := range strings.Fields(stdout) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			continue
		}
		fields[k] = v
	}
	return fields
}

// Running reports whether the job's state is one of the active states.
func (e *SlurmExecutor) Running(ctx context.Context, h model.JobHandle) bool {
	if h.Kind() != model.HandleScheduler {
		return false
	}
	fields, err := e.Show(ctx, h.JobID())
	if err != nil {
		e.logger.Debug("state lookup failed", "job_id", h.JobID(), "error", err)
		return false
	}
	return model.JobState(fields[StateField]).IsActive()
}

// Kill cancels the job. It reports whether the cancel command succeeded.
func (e *SlurmExecutor) Kill(ctx context.Context, h model.JobHandle) bool {
	if h.Kind() != model.HandleScheduler {
		return false
	}
	id := strconv.FormatInt(h.JobID(), 10)
	_, stderr, exitCode, err := e.runner.Run(ctx, e.cmds.Cancel, id)
	if err != nil {
		e.logger.Warn("cancel failed", "job_id", id, "error", err)
		return false
	}
	if exitCode != 0 {
		e.logger.Info("cancel refused", "job_id", id, "exit_code", exitCode, "stderr", strings.TrimSpace(stderr))
		return false
	}
	e.logger.Info("job cancelled", "job_id", id)
	return true
}
