package model

import "time"

// Submission is a ledger entry for one successful run of the submission engine.
type Submission struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ScriptPath string    `json:"script_path"`
	Handle     JobHandle `json:"handle"`
	// JobIDs holds every attempt's scheduler job id in submission order.
	// Handle always refers to the first.
	JobIDs     []int64 `json:"job_ids,omitempty"`
	Dependency string  `json:"dependency,omitempty"`
	Tries      int     `json:"tries"`
	// Host is where the submission ran; local pids are only meaningful there.
	Host      string    `json:"host,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
