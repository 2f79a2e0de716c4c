package executor

import (
	"context"

	"github.com/me/slurmgo/pkg/model"
)

// Backend controls jobs identified by one kind of JobHandle.
type Backend interface {
	// Kind returns the handle kind this backend serves.
	Kind() model.HandleKind

	// Running reports whether the job is still live. Lookup failures count
	// as not running.
	Running(ctx context.Context, h model.JobHandle) bool

	// Kill terminates the job. It reports false when nothing was
	// terminated, including targets that already finished.
	Kill(ctx context.Context, h model.JobHandle) bool
}
