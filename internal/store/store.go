package store

import (
	"context"

	"github.com/me/slurmgo/pkg/model"
)

// Store persists the submission ledger.
type Store interface {
	// RecordSubmission inserts a ledger entry. An empty ID is assigned.
	RecordSubmission(ctx context.Context, sub *model.Submission) error
	// GetSubmission returns the entry with the given id, or nil if absent.
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	// FindByHandle returns the newest entry for a handle, or nil if absent.
	FindByHandle(ctx context.Context, h model.JobHandle) (*model.Submission, error)
	// ListSubmissions returns the newest entries first. limit <= 0 means
	// DefaultListLimit.
	ListSubmissions(ctx context.Context, limit int) ([]*model.Submission, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// DefaultListLimit caps ListSubmissions when no limit is given.
const DefaultListLimit = 50
