// Package engine renders, submits and tracks jobs. It owns the retry loop
// that chains attempts through afternotok dependencies and dispatches
// lifecycle calls to the backend matching a handle's kind.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/me/slurmgo/internal/dependency"
	"github.com/me/slurmgo/internal/executor"
	"github.com/me/slurmgo/internal/script"
	"github.com/me/slurmgo/internal/store"
	"github.com/me/slurmgo/pkg/model"
)

// Scheduler is the batch-system backend.
type Scheduler interface {
	executor.Backend
	Submit(ctx context.Context, scriptPath, dependency string) (int64, error)
	Show(ctx context.Context, id int64) (map[string]string, error)
}

// Launcher starts scripts as local background processes.
type Launcher interface {
	executor.Backend
	Start(scriptPath, logPath string) (int, error)
}

// Config holds engine-wide settings.
type Config struct {
	// Tries is used when a Request leaves Tries at zero.
	Tries int
	// Template overrides script.DefaultTemplate.
	Template string
	// CheckSyntax parses commands as bash before rendering.
	CheckSyntax bool
	// Now stamps submission names; defaults to time.Now.
	Now func() time.Time
}

// Request describes one run of a command under a JobSpec.
type Request struct {
	Command string
	// NameAddition is appended to the job name. Empty means a hash of
	// Command; script.NoAddition means nothing.
	NameAddition string
	Env          map[string]string
	DependsOn    []int64
	DependsHow   string
	// After lists jobs that only need to have started.
	After []int64
	Tries int
	Local bool
}

// Attempt records one submission of a multi-try run.
type Attempt struct {
	Number     int
	PriorJobID *int64
	Expression string
	JobID      int64
}

// Result is what a successful Run returns. Handle is the first attempt's
// job, which later jobs should depend on.
type Result struct {
	Handle       model.JobHandle
	Name         string
	ScriptPath   string
	Attempts     []Attempt
	SubmissionID string
}

// Engine submits jobs and answers lifecycle calls.
type Engine struct {
	cfg       Config
	renderer  *script.Renderer
	persister *script.Persister
	scheduler Scheduler
	local     Launcher
	registry  *executor.Registry
	ledger    store.Store
	host      string
	logger    *slog.Logger
}

// New creates an Engine. ledger may be nil.
func New(cfg Config, scheduler Scheduler, local Launcher, ledger store.Store, logger *slog.Logger) (*Engine, error) {
	if cfg.Tries < 1 {
		cfg.Tries = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	renderer, err := script.NewRenderer(cfg.Template, cfg.CheckSyntax)
	if err != nil {
		return nil, err
	}

	registry := executor.NewRegistry(logger)
	registry.Register(scheduler)
	registry.Register(local)

	host, _ := os.Hostname()
	return &Engine{
		cfg:       cfg,
		renderer:  renderer,
		persister: script.NewPersister(logger),
		scheduler: scheduler,
		local:     local,
		registry:  registry,
		ledger:    ledger,
		host:      host,
		logger:    logger.With("component", "engine"),
	}, nil
}

// Close removes temporary scripts written by Run.
func (e *Engine) Close() error {
	return e.persister.Cleanup()
}

// Render returns the submission name and script text Run would use,
// without writing or submitting anything.
func (e *Engine) Render(spec *model.JobSpec, req Request) (name, text string, err error) {
	name = script.SubmissionName(spec.Name, req.NameAddition, req.Command, spec.DateInName, e.cfg.Now())
	text, err = e.renderer.Render(spec, name, req.Command, req.Env)
	return name, text, err
}

func (e *Engine) dependencies(req Request) ([]dependency.Spec, error) {
	kind, err := dependency.ParseKind(req.DependsHow)
	if err != nil {
		return nil, err
	}
	specs := []dependency.Spec{
		{Kind: kind, JobIDs: req.DependsOn},
		{Kind: dependency.After, JobIDs: req.After},
	}
	if err := dependency.ValidateAll(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// Run renders the script once, then submits it. Scheduler runs make
// req.Tries attempts; attempt n > 1 also depends on attempt n-1 failing.
// Configuration errors are reported before anything is written or run.
func (e *Engine) Run(ctx context.Context, spec *model.JobSpec, req Request) (*Result, error) {
	tries := req.Tries
	if tries == 0 {
		tries = e.cfg.Tries
	}
	if tries < 1 {
		return nil, &model.ConfigError{Field: "tries", Message: fmt.Sprintf("%d is less than 1", tries)}
	}
	specs, err := e.dependencies(req)
	if err != nil {
		return nil, err
	}

	name, text, err := e.Render(spec, req)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("script rendered", "name", name, "options", spec.Options.Keys())
	path, err := e.persister.Write(spec, name, text)
	if err != nil {
		return nil, err
	}

	res := &Result{Name: name, ScriptPath: path}
	if req.Local {
		err = e.runLocal(spec, req, res)
	} else {
		err = e.runScheduler(ctx, specs, tries, res)
	}
	if err != nil {
		return nil, err
	}

	e.record(ctx, spec, res, tries)
	return res, nil
}

func (e *Engine) runLocal(spec *model.JobSpec, req Request, res *Result) error {
	if len(req.DependsOn) > 0 || len(req.After) > 0 || req.Tries > 1 {
		e.logger.Warn("dependencies and retries are ignored for local runs", "name", res.Name)
	}
	logPath := filepath.Join(spec.LogDir, res.Name+".local.log")
	pid, err := e.local.Start(res.ScriptPath, logPath)
	if err != nil {
		return err
	}
	// The child reads the script after we return.
	e.persister.Release(res.ScriptPath)
	res.Handle = model.LocalProcess(pid)
	return nil
}

func (e *Engine) runScheduler(ctx context.Context, specs []dependency.Spec, tries int, res *Result) error {
	var submitted []int64
	var prior *int64
	for n := 1; n <= tries; n++ {
		expr := dependency.Compose(specs, prior)
		id, err := e.scheduler.Submit(ctx, res.ScriptPath, expr)
		if err != nil {
			var rejected *model.RejectedError
			if errors.As(err, &rejected) {
				rejected.Attempt = n
				rejected.Submitted = slices.Clone(submitted)
			}
			e.logger.Error("submission failed", "name", res.Name, "attempt", n, "submitted", submitted, "error", err)
			return err
		}

		e.logger.Info("job submitted", "name", res.Name, "attempt", n, "job_id", id, "dependency", expr)
		res.Attempts = append(res.Attempts, Attempt{Number: n, PriorJobID: prior, Expression: expr, JobID: id})
		submitted = append(submitted, id)
		prior = &id
	}
	res.Handle = model.SchedulerJob(submitted[0])
	return nil
}

func (e *Engine) record(ctx context.Context, spec *model.JobSpec, res *Result, tries int) {
	if e.ledger == nil {
		return
	}
	sub := &model.Submission{
		Name:       res.Name,
		ScriptPath: res.ScriptPath,
		Handle:     res.Handle,
		Tries:      1,
		Host:       e.host,
		CreatedAt:  e.cfg.Now().UTC(),
	}
	if spec.ScriptsDir == "" && res.Handle.Kind() == model.HandleScheduler {
		// Temp scripts are gone after Close.
		sub.ScriptPath = ""
	}
	for _, a := range res.Attempts {
		sub.JobIDs = append(sub.JobIDs, a.JobID)
	}
	if len(res.Attempts) > 0 {
		sub.Dependency = res.Attempts[0].Expression
		sub.Tries = tries
	}
	if err := e.ledger.RecordSubmission(ctx, sub); err != nil {
		e.logger.Warn("record submission failed", "name", res.Name, "handle", res.Handle, "error", err)
		return
	}
	res.SubmissionID = sub.ID
}
