package executor

import (
	"fmt"
	"log/slog"

	"github.com/me/slurmgo/pkg/model"
)

// Registry maps handle kinds to their Backend implementations.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	backends map[model.HandleKind]Backend
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		backends: make(map[model.HandleKind]Backend),
		logger:   logger.With("component", "executor-registry"),
	}
}

// Register adds a Backend to the registry, keyed by its Kind().
func (r *Registry) Register(b Backend) {
	k := b.Kind()
	r.backends[k] = b
	r.logger.Debug("executor registered", "kind", k)
}

// Get returns the Backend for the given kind or an error if none is registered.
func (r *Registry) Get(k model.HandleKind) (Backend, error) {
	b, ok := r.backends[k]
	if !ok {
		return nil, fmt.Errorf("no executor registered for %s handles", k)
	}
	return b, nil
}
