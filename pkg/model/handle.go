package model

import (
	"fmt"
	"strconv"
	"strings"
)

// HandleKind tags a JobHandle with the backend that owns it.
type HandleKind int

const (
	HandleNone HandleKind = iota
	HandleLocal
	HandleScheduler
)

// String returns the kind name used in logs and the ledger.
func (k HandleKind) String() string {
	switch k {
	case HandleLocal:
		return "local"
	case HandleScheduler:
		return "scheduler"
	}
	return "none"
}

// JobHandle identifies a submitted job: either a locally spawned process or
// a scheduler-assigned job id. The zero value identifies nothing.
type JobHandle struct {
	kind HandleKind
	id   int64
}

// LocalProcess returns a handle for a process spawned on this host.
func LocalProcess(pid int) JobHandle {
	return JobHandle{kind: HandleLocal, id: int64(pid)}
}

// SchedulerJob returns a handle for a job id assigned by the scheduler.
func SchedulerJob(id int64) JobHandle {
	return JobHandle{kind: HandleScheduler, id: id}
}

// Kind returns the handle's tag.
func (h JobHandle) Kind() HandleKind { return h.kind }

// ID returns the pid or job id.
func (h JobHandle) ID() int64 { return h.id }

// PID returns the process id of a local handle, or 0 for any other kind.
func (h JobHandle) PID() int {
	if h.kind != HandleLocal {
		return 0
	}
	return int(h.id)
}

// JobID returns the scheduler job id, or 0 for any other kind.
func (h JobHandle) JobID() int64 {
	if h.kind != HandleScheduler {
		return 0
	}
	return h.id
}

// IsZero reports whether the handle identifies nothing.
func (h JobHandle) IsZero() bool {
	return h.kind == HandleNone
}

// String renders the handle as "pid:<n>" or "job:<n>".
func (h JobHandle) String() string {
	switch h.kind {
	case HandleLocal:
		return "pid:" + strconv.FormatInt(h.id, 10)
	case HandleScheduler:
		return "job:" + strconv.FormatInt(h.id, 10)
	}
	return ""
}

// ParseHandle parses the output of String. A bare number is a scheduler job id.
func ParseHandle(s string) (JobHandle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return JobHandle{}, nil
	}
	kind := HandleScheduler
	num := s
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		switch prefix {
		case "pid":
			kind = HandleLocal
		case "job":
			kind = HandleScheduler
		default:
			return JobHandle{}, fmt.Errorf("parse handle %q: unknown prefix %q", s, prefix)
		}
		num = rest
	}
	id, err := strconv.ParseInt(num, 10, 64)
	if err != nil || id <= 0 {
		return JobHandle{}, fmt.Errorf("parse handle %q: invalid id", s)
	}
	return JobHandle{kind: kind, id: id}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (h JobHandle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *JobHandle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
