package engine

import (
	"context"
	"errors"

	"github.com/me/slurmgo/pkg/model"
)

var errFieldMissing = errors.New("field not present")

// Query returns every field of the scheduler's record for jobID. On failure
// the policy decides between returning the error and returning no data.
func (e *Engine) Query(ctx context.Context, jobID int64, policy model.FailurePolicy) (map[string]string, error) {
	fields, err := e.scheduler.Show(ctx, jobID)
	if err != nil {
		return nil, e.queryFailed(err, policy)
	}
	return fields, nil
}

// QueryField returns one field of the scheduler's record for jobID. ok is
// false when no data is available and the policy suppressed the failure.
func (e *Engine) QueryField(ctx context.Context, jobID int64, field string, policy model.FailurePolicy) (value string, ok bool, err error) {
	fields, err := e.scheduler.Show(ctx, jobID)
	if err != nil {
		return "", false, e.queryFailed(err, policy)
	}
	value, ok = fields[field]
	if !ok {
		return "", false, e.queryFailed(&model.QueryError{JobID: jobID, Field: field, Err: errFieldMissing}, policy)
	}
	return value, true, nil
}

func (e *Engine) queryFailed(err error, policy model.FailurePolicy) error {
	switch policy {
	case model.OnFailureWarn:
		e.logger.Warn("scheduler query failed", "error", err)
		return nil
	case model.OnFailureSilent:
		return nil
	default:
		return err
	}
}

// StillRunning reports whether the job behind h is live. It never fails:
// unknown handles and lookup errors count as not running.
func (e *Engine) StillRunning(ctx context.Context, h model.JobHandle) bool {
	if h.IsZero() {
		return false
	}
	b, err := e.registry.Get(h.Kind())
	if err != nil {
		e.logger.Debug("no backend", "handle", h, "error", err)
		return false
	}
	return b.Running(ctx, h)
}

// Kill terminates the job behind h and reports whether anything was
// terminated.
func (e *Engine) Kill(ctx context.Context, h model.JobHandle) bool {
	if h.IsZero() {
		return false
	}
	b, err := e.registry.Get(h.Kind())
	if err != nil {
		e.logger.Debug("no backend", "handle", h, "error", err)
		return false
	}
	return b.Kill(ctx, h)
}
