package model

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrConfig marks configuration problems detected before any external call.
	ErrConfig = errors.New("invalid configuration")

	// ErrSubmissionRejected marks a submission whose output lacked the accepted marker.
	ErrSubmissionRejected = errors.New("submission rejected")

	// ErrQueryFailed marks a scheduler status query that produced no usable data.
	ErrQueryFailed = errors.New("scheduler query failed")
)

// ConfigError describes an invalid job configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// RejectedError is returned when the submission command ran but did not
// accept the job. Submitted lists job ids accepted by earlier attempts of the
// same call, which the caller may want to cancel.
type RejectedError struct {
	Attempt   int
	Output    string
	Submitted []int64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission rejected on attempt %d: %q", e.Attempt, e.Output)
}

// Is reports whether target is ErrSubmissionRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

// QueryError wraps the cause of a failed scheduler status query.
type QueryError struct {
	JobID int64
	Field string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("query job %d field %s: %v", e.JobID, e.Field, e.Err)
	}
	return fmt.Sprintf("query job %d: %v", e.JobID, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrQueryFailed.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

func quote(s string) string {
	return strconv.Quote(s)
}
