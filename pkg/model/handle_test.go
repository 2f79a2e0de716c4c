package model

import (
	"encoding/json"
	"testing"
)

func TestJobHandle_Constructors(t *testing.T) {
	local := LocalProcess(4242)
	if local.Kind() != HandleLocal {
		t.Errorf("LocalProcess kind = %v, want local", local.Kind())
	}
	if local.PID() != 4242 {
		t.Errorf("PID() = %d, want 4242", local.PID())
	}
	if local.JobID() != 0 {
		t.Errorf("local JobID() = %d, want 0", local.JobID())
	}

	job := SchedulerJob(4242)
	if job.Kind() != HandleScheduler {
		t.Errorf("SchedulerJob kind = %v, want scheduler", job.Kind())
	}
	if job.PID() != 0 {
		t.Errorf("scheduler PID() = %d, want 0", job.PID())
	}
	if local == job {
		t.Error("local and scheduler handles with the same number must differ")
	}

	var zero JobHandle
	if !zero.IsZero() || zero.String() != "" {
		t.Errorf("zero handle: IsZero=%v String=%q", zero.IsZero(), zero.String())
	}
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		input   string
		want    JobHandle
		wantErr bool
	}{
		{"pid:12", LocalProcess(12), false},
		{"job:100", SchedulerJob(100), false},
		{"100", SchedulerJob(100), false},
		{" job:7 ", SchedulerJob(7), false},
		{"", JobHandle{}, false},
		{"pid#12", JobHandle{}, true},
		{"task:1", JobHandle{}, true},
		{"job:abc", JobHandle{}, true},
		{"job:-3", JobHandle{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHandle(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHandle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHandle(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestJobHandle_JSON(t *testing.T) {
	in := struct {
		Handle JobHandle `json:"handle"`
	}{Handle: LocalProcess(99)}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"handle":"pid:99"}` {
		t.Errorf("marshal = %s", data)
	}

	var out struct {
		Handle JobHandle `json:"handle"`
	}
	if err := json.Unmarshal([]byte(`{"handle":"job:55"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Handle != SchedulerJob(55) {
		t.Errorf("unmarshal = %v, want job:55", out.Handle)
	}
}
