package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/me/slurmgo/internal/executor"
	"github.com/me/slurmgo/internal/script"
	"github.com/me/slurmgo/internal/store"
	"github.com/me/slurmgo/pkg/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScheduler hands out canned job ids and records every submission.
type fakeScheduler struct {
	ids      []int64
	rejectAt int
	exprs    []string
	scripts  []string
	fields   map[int64]map[string]string
	killed   []int64
}

func (f *fakeScheduler) Kind() model.HandleKind { return model.HandleScheduler }

func (f *fakeScheduler) Submit(_ context.Context, scriptPath, dependency string) (int64, error) {
	f.exprs = append(f.exprs, dependency)
	f.scripts = append(f.scripts, scriptPath)
	n := len(f.exprs)
	if n == f.rejectAt {
		return 0, &model.RejectedError{Output: "sbatch: error: Batch job submission failed"}
	}
	return f.ids[n-1], nil
}

func (f *fakeScheduler) Show(_ context.Context, id int64) (map[string]string, error) {
	fields, ok := f.fields[id]
	if !ok {
		return nil, &model.QueryError{JobID: id, Err: errors.New("Invalid job id specified")}
	}
	return fields, nil
}

func (f *fakeScheduler) Running(_ context.Context, h model.JobHandle) bool {
	return model.JobState(f.fields[h.JobID()]["JobState"]).IsActive()
}

func (f *fakeScheduler) Kill(_ context.Context, h model.JobHandle) bool {
	f.killed = append(f.killed, h.JobID())
	return true
}

func testSpec(t *testing.T) *model.JobSpec {
	t.Helper()
	dir := t.TempDir()
	return &model.JobSpec{
		Name:       "job",
		Options:    model.Options{}.Set("partition", "x"),
		ScriptsDir: filepath.Join(dir, "scripts"),
		LogDir:     filepath.Join(dir, "logs"),
		BashStrict: true,
	}
}

func testEngine(t *testing.T, sched *fakeScheduler, ledger store.Store) *Engine {
	t.Helper()
	e, err := New(Config{}, sched, executor.NewLocalExecutor("bash", newTestLogger()), ledger, newTestLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestRun_SingleAttempt(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{500}}
	e := testEngine(t, sched, nil)
	spec := testSpec(t)

	res, err := e.Run(context.Background(), spec, Request{Command: "echo hi", NameAddition: "step"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Handle != model.SchedulerJob(500) {
		t.Errorf("Handle = %s, want job:500", res.Handle)
	}
	if res.Name != "job-step" {
		t.Errorf("Name = %q, want job-step", res.Name)
	}
	if want := filepath.Join(spec.ScriptsDir, "job-step.sh"); res.ScriptPath != want || sched.scripts[0] != want {
		t.Errorf("ScriptPath = %q, submitted %q, want %q", res.ScriptPath, sched.scripts[0], want)
	}
	if len(sched.exprs) != 1 || sched.exprs[0] != "" {
		t.Errorf("exprs = %q, want one empty expression", sched.exprs)
	}
	if spec.Name != "job" {
		t.Errorf("spec.Name changed to %q", spec.Name)
	}

	data, err := os.ReadFile(res.ScriptPath)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	for _, want := range []string{"#SBATCH -J job-step", "#SBATCH --partition=x", "###\necho hi\n"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("script missing %q:\n%s", want, data)
		}
	}
}

func TestRun_DependsOn(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{43}}
	e := testEngine(t, sched, nil)

	_, err := e.Run(context.Background(), testSpec(t), Request{
		Command:    "ls",
		DependsOn:  []int64{42},
		DependsHow: "afterok",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.exprs[0] != "afterok:42" {
		t.Errorf("expression = %q, want afterok:42", sched.exprs[0])
	}
}

func TestRun_DependsOnAndAfter(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{9}}
	e := testEngine(t, sched, nil)

	_, err := e.Run(context.Background(), testSpec(t), Request{
		Command:    "ls",
		DependsOn:  []int64{1, 2},
		DependsHow: "afterany",
		After:      []int64{3},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.exprs[0] != "afterany:1:2,after:3" {
		t.Errorf("expression = %q", sched.exprs[0])
	}
}

func TestRun_RetryChaining(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{100, 101, 102}}
	e := testEngine(t, sched, nil)

	res, err := e.Run(context.Background(), testSpec(t), Request{Command: "flaky", Tries: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"", "afternotok:100", "afternotok:101"}
	if strings.Join(sched.exprs, "|") != strings.Join(want, "|") {
		t.Errorf("exprs = %q, want %q", sched.exprs, want)
	}
	if res.Handle != model.SchedulerJob(100) {
		t.Errorf("Handle = %s, want job:100", res.Handle)
	}
	if len(res.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(res.Attempts))
	}
	if res.Attempts[0].PriorJobID != nil {
		t.Errorf("attempt 1 prior = %d, want none", *res.Attempts[0].PriorJobID)
	}
	for i, prior := range []int64{100, 101} {
		a := res.Attempts[i+1]
		if a.Number != i+2 || a.PriorJobID == nil || *a.PriorJobID != prior {
			t.Errorf("attempt %d = %+v, want prior %d", i+2, a, prior)
		}
	}
	for _, s := range sched.scripts {
		if s != res.ScriptPath {
			t.Errorf("attempt submitted %q, want the same script %q", s, res.ScriptPath)
		}
	}
}

func TestRun_RetryKeepsExternalDependencies(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{100, 101}}
	e := testEngine(t, sched, nil)

	_, err := e.Run(context.Background(), testSpec(t), Request{Command: "x", DependsOn: []int64{42}, Tries: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.exprs[0] != "afterok:42" || sched.exprs[1] != "afterok:42,afternotok:100" {
		t.Errorf("exprs = %q", sched.exprs)
	}
}

func TestRun_DefaultTriesFromConfig(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{7, 8}}
	e, err := New(Config{Tries: 2}, sched, executor.NewLocalExecutor("", newTestLogger()), nil, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, err := e.Run(context.Background(), testSpec(t), Request{Command: "x"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sched.exprs) != 2 {
		t.Errorf("submissions = %d, want 2", len(sched.exprs))
	}
}

func TestRun_Rejected(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{100, 101, 102}, rejectAt: 2}
	e := testEngine(t, sched, nil)

	res, err := e.Run(context.Background(), testSpec(t), Request{Command: "x", Tries: 3})
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, model.ErrSubmissionRejected) {
		t.Fatalf("error = %v, want ErrSubmissionRejected", err)
	}
	var rejected *model.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error %T is not *RejectedError", err)
	}
	if rejected.Attempt != 2 || len(rejected.Submitted) != 1 || rejected.Submitted[0] != 100 {
		t.Errorf("rejected = %+v, want attempt 2 after job 100", rejected)
	}
	if len(sched.exprs) != 2 {
		t.Errorf("submissions = %d, want the loop to stop at 2", len(sched.exprs))
	}
}

func TestRun_ConfigErrorsBeforeSubmission(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		mutate func(*model.JobSpec)
	}{
		{"unknown kind", Request{Command: "x", DependsOn: []int64{1}, DependsHow: "whenever"}, nil},
		{"bad job id", Request{Command: "x", DependsOn: []int64{0}}, nil},
		{"negative tries", Request{Command: "x", Tries: -1}, nil},
		{"bad env key", Request{Command: "x", Env: map[string]string{"1X": "y"}}, nil},
		{"multi-line option", Request{Command: "x"}, func(s *model.JobSpec) {
			s.Options = s.Options.Set("partition", "x\nrm -rf /tmp/nothing").SetFlag("exclusive")
		}},
		{"multi-line log dir", Request{Command: "x"}, func(s *model.JobSpec) {
			s.LogDir += "\necho injected"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &fakeScheduler{ids: []int64{1}}
			e := testEngine(t, sched, nil)
			spec := testSpec(t)
			if tt.mutate != nil {
				tt.mutate(spec)
			}

			_, err := e.Run(context.Background(), spec, tt.req)
			if !errors.Is(err, model.ErrConfig) {
				t.Fatalf("error = %v, want ErrConfig", err)
			}
			if len(sched.exprs) != 0 {
				t.Errorf("scheduler called %d times", len(sched.exprs))
			}
			if _, err := os.Stat(spec.ScriptsDir); !os.IsNotExist(err) {
				t.Errorf("scripts dir created before validation: %v", err)
			}
		})
	}
}

func TestRun_RecordsLedger(t *testing.T) {
	ledger, err := store.NewSQLiteStore(":memory:", newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	if err := ledger.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	sched := &fakeScheduler{ids: []int64{100, 101}}
	e := testEngine(t, sched, ledger)

	res, err := e.Run(context.Background(), testSpec(t), Request{Command: "x", DependsOn: []int64{5}, Tries: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SubmissionID == "" {
		t.Fatal("SubmissionID not set")
	}

	sub, err := ledger.GetSubmission(context.Background(), res.SubmissionID)
	if err != nil || sub == nil {
		t.Fatalf("GetSubmission = %v, %v", sub, err)
	}
	if sub.Handle != res.Handle || sub.Tries != 2 || sub.Dependency != "afterok:5" {
		t.Errorf("ledger entry = %+v", sub)
	}
	if len(sub.JobIDs) != 2 || sub.JobIDs[1] != 101 {
		t.Errorf("JobIDs = %v, want [100 101]", sub.JobIDs)
	}
}

func TestRender_DoesNotWrite(t *testing.T) {
	sched := &fakeScheduler{}
	e := testEngine(t, sched, nil)
	spec := testSpec(t)

	name, text, err := e.Render(spec, Request{Command: "hostname", NameAddition: script.NoAddition})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if name != "job" || !strings.HasSuffix(text, "###\nhostname\n") {
		t.Errorf("Render = %q, %q", name, text)
	}
	if _, err := os.Stat(spec.ScriptsDir); !os.IsNotExist(err) {
		t.Errorf("Render created the scripts dir: %v", err)
	}
}

func TestRun_DateInName(t *testing.T) {
	sched := &fakeScheduler{ids: []int64{1}}
	now := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	e, err := New(Config{Now: func() time.Time { return now }}, sched,
		executor.NewLocalExecutor("", newTestLogger()), nil, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	spec := testSpec(t)
	spec.DateInName = true
	res, err := e.Run(context.Background(), spec, Request{Command: "x", NameAddition: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "job-a-2024-05-01T08-30-00" {
		t.Errorf("Name = %q", res.Name)
	}
}

func TestNew_BadTemplate(t *testing.T) {
	_, err := New(Config{Template: "{{ .Nope"}, &fakeScheduler{}, executor.NewLocalExecutor("", newTestLogger()), nil, newTestLogger())
	if !errors.Is(err, model.ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}
