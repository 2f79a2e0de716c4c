package model

import "strings"

// JobState is the JobState field reported by `scontrol show job`.
type JobState string

const (
	JobStatePending     JobState = "PENDING"
	JobStateRunning     JobState = "RUNNING"
	JobStateSuspended   JobState = "SUSPENDED"
	JobStateConfiguring JobState = "CONFIGURING"
	JobStateCompleting  JobState = "COMPLETING"
	JobStateCompleted   JobState = "COMPLETED"
	JobStateFailed      JobState = "FAILED"
	JobStateCancelled   JobState = "CANCELLED"
	JobStateTimeout     JobState = "TIMEOUT"
	JobStateNodeFail    JobState = "NODE_FAIL"
	JobStatePreempted   JobState = "PREEMPTED"
	JobStateOutOfMemory JobState = "OUT_OF_MEMORY"
	JobStateBootFail    JobState = "BOOT_FAIL"
	JobStateDeadline    JobState = "DEADLINE"
)

// String returns the string representation of the job state.
func (s JobState) String() string {
	return string(s)
}

// IsActive returns true if the scheduler still considers the job live.
// COMPLETING is not active: the batch script has already exited.
func (s JobState) IsActive() bool {
	switch s {
	case JobStatePending, JobStateRunning, JobStateSuspended, JobStateConfiguring:
		return true
	}
	return false
}

// FailurePolicy controls how a failed scheduler query is surfaced.
type FailurePolicy string

const (
	OnFailureError  FailurePolicy = "error"
	OnFailureWarn   FailurePolicy = "warn"
	OnFailureSilent FailurePolicy = "silent"
)

// ParseFailurePolicy converts a policy name to a FailurePolicy.
// The empty string and "exception" both select OnFailureError.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error", "exception":
		return OnFailureError, nil
	case "warn", "warning":
		return OnFailureWarn, nil
	case "silent":
		return OnFailureSilent, nil
	}
	return "", &ConfigError{Field: "on_failure", Message: "unknown policy " + quote(s) + " (want error, warn or silent)"}
}
