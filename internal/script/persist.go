package script

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/me/slurmgo/pkg/model"
)

// Persister writes rendered scripts to disk. Scripts for specs without a
// scripts directory go to private temp files, removed by Cleanup.
type Persister struct {
	mu     sync.Mutex
	temps  map[string]struct{}
	logger *slog.Logger
}

// NewPersister creates a Persister.
func NewPersister(logger *slog.Logger) *Persister {
	return &Persister{
		temps:  make(map[string]struct{}),
		logger: logger.With("component", "script-persister"),
	}
}

// Write stores text as the script for the submission named name and
// returns its path. The log directory is created as well.
func (p *Persister) Write(spec *model.JobSpec, name, text string) (string, error) {
	if err := EnsureDir(spec.LogDir); err != nil {
		return "", err
	}

	if spec.ScriptsDir == "" {
		return p.writeTemp(name, text)
	}

	if err := EnsureDir(spec.ScriptsDir); err != nil {
		return "", err
	}
	path := ScriptPath(spec.ScriptsDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write script %s: %w", path, err)
	}
	p.logger.Debug("script written", "path", path)
	return path, nil
}

func (p *Persister) writeTemp(name, text string) (string, error) {
	f, err := os.CreateTemp("", name+"-*.sh")
	if err != nil {
		return "", fmt.Errorf("create temp script: %w", err)
	}
	path := f.Name()
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp script %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp script %s: %w", path, err)
	}

	p.mu.Lock()
	p.temps[path] = struct{}{}
	p.mu.Unlock()

	p.logger.Debug("temp script written", "path", path)
	return path, nil
}

// Release stops tracking a temp script so Cleanup leaves it in place.
func (p *Persister) Release(path string) {
	p.mu.Lock()
	delete(p.temps, path)
	p.mu.Unlock()
}

// Cleanup removes every tracked temp script.
func (p *Persister) Cleanup() error {
	p.mu.Lock()
	paths := make([]string, 0, len(p.temps))
	for path := range p.temps {
		paths = append(paths, path)
	}
	p.temps = make(map[string]struct{})
	p.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ScriptPath returns the deterministic script location inside dir.
func ScriptPath(dir, name string) string {
	return filepath.Join(dir, name+".sh")
}

// EnsureDir creates dir if it does not exist yet.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
