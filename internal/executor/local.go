package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/me/slurmgo/pkg/model"
)

// killWait bounds how long Kill waits for a child it spawned to be reaped.
const killWait = 5 * time.Second

// LocalExecutor runs scripts as background processes on this host.
type LocalExecutor struct {
	shell  string
	logger *slog.Logger

	mu sync.Mutex
	// children holds unreaped processes started by Start, keyed by pid.
	children map[int]chan struct{}
}

// NewLocalExecutor creates a LocalExecutor that runs scripts with shell.
// If shell is empty, "bash" is used.
func NewLocalExecutor(shell string, logger *slog.Logger) *LocalExecutor {
	if shell == "" {
		shell = "bash"
	}
	return &LocalExecutor{
		shell:    shell,
		logger:   logger.With("component", "local-executor"),
		children: make(map[int]chan struct{}),
	}
}

// Kind returns model.HandleLocal.
func (e *LocalExecutor) Kind() model.HandleKind {
	return model.HandleLocal
}

// Start launches scriptPath in its own process group with stdout and
// stderr appended to logPath, and returns the pid without waiting.
func (e *LocalExecutor) Start(scriptPath, logPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open local log %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command(e.shell, scriptPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s %s: %w", e.shell, scriptPath, err)
	}

	pid := cmd.Process.Pid
	done := make(chan struct{})
	e.mu.Lock()
	e.children[pid] = done
	e.mu.Unlock()

	go func() {
		err := cmd.Wait()
		e.logger.Debug("local job exited", "pid", pid, "error", err)
		close(done)
		e.mu.Lock()
		if e.children[pid] == done {
			delete(e.children, pid)
		}
		e.mu.Unlock()
	}()

	e.logger.Info("local job started", "pid", pid, "script", scriptPath, "log", logPath)
	return pid, nil
}

// Running reports whether the process exists and is not a zombie.
func (e *LocalExecutor) Running(ctx context.Context, h model.JobHandle) bool {
	pid := h.PID()
	if pid <= 0 {
		return false
	}
	if done, ok := e.child(pid); ok {
		select {
		case <-done:
			return false
		default:
		}
	}

	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return false
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		// The process may have vanished between the two lookups.
		return exists
	}
	return !slices.Contains(status, process.Zombie)
}

// Kill sends SIGKILL to the process group led by the handle's pid, or to
// the pid alone when it leads no group.
func (e *LocalExecutor) Kill(ctx context.Context, h model.JobHandle) bool {
	pid := h.PID()
	if pid <= 1 {
		return false
	}

	err := unix.Kill(-pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		err = unix.Kill(pid, unix.SIGKILL)
	}
	if err != nil {
		e.logger.Debug("kill failed", "pid", pid, "error", err)
		return false
	}

	if done, ok := e.child(pid); ok {
		select {
		case <-done:
		case <-ctx.Done():
		case <-time.After(killWait):
			e.logger.Warn("killed process not reaped", "pid", pid)
		}
	}
	e.logger.Info("local job killed", "pid", pid)
	return true
}

func (e *LocalExecutor) child(pid int) (chan struct{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	done, ok := e.children[pid]
	return done, ok
}
