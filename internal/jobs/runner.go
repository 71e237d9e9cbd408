package jobs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/koopa0/runbook/internal/audit"
	"github.com/koopa0/runbook/internal/log"
)

// DefaultWorkers bounds per-job concurrency across input files.
const DefaultWorkers = 4

// ToolExecutor runs one named tool, optionally with extra arguments
// appended to its command. It is the engine's Execute method.
type ToolExecutor interface {
	Execute(ctx context.Context, toolName string, args ...string) (audit.Record, error)
}

// Runner queues background jobs and drives each through the
// queued -> running -> completed/failed lifecycle. There is no
// mid-flight cancellation; a running job always reaches a terminal
// state.
type Runner struct {
	dir     string
	workers int
	exec    ToolExecutor
	logger  log.Logger

	wg sync.WaitGroup
}

// NewRunner creates the jobs directory if needed. workers <= 0 falls
// back to DefaultWorkers.
func NewRunner(dir string, workers int, exec ToolExecutor, logger log.Logger) (*Runner, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create jobs directory: %w", err)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{dir: dir, workers: workers, exec: exec, logger: logger}, nil
}

// Queue records a new job in the queued state and hands it to a
// background worker. The returned id can be polled with Get
// immediately; the caller never waits for execution.
//
// ctx governs only the queueing step. The background work runs on its
// own context so an expired request context cannot abort a job that
// was already accepted.
func (r *Runner) Queue(ctx context.Context, toolName string, files []string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	job := Job{
		ID:        uuid.New(),
		ToolName:  toolName,
		Files:     files,
		Timestamp: time.Now().UTC(),
		Status:    StatusQueued,
	}
	if err := writeJob(r.dir, job); err != nil {
		return uuid.Nil, err
	}

	r.logger.Info("job queued", "job_id", job.ID, "tool", toolName, "files", len(files))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(job)
	}()
	return job.ID, nil
}

// Get returns the current status record for id.
func (r *Runner) Get(id uuid.UUID) (Job, error) {
	return readJob(r.dir, id)
}

// Wait blocks until every queued job has reached a terminal state.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(job Job) {
	job.Status = StatusRunning
	if err := r.transition(job); err != nil {
		return
	}

	if err := r.runFiles(job); err != nil {
		job.Status = StatusFailed
		job.Details = err.Error()
	} else {
		job.Status = StatusCompleted
		job.Details = fmt.Sprintf("%d file(s) processed", len(job.Files))
	}
	_ = r.transition(job)
}

// runFiles executes the tool once per input file, bounded by the
// worker limit. A job with no files runs the tool exactly once.
func (r *Runner) runFiles(job Job) error {
	ctx := context.Background()

	if len(job.Files) == 0 {
		rec, err := r.exec.Execute(ctx, job.ToolName)
		return outcome(rec, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, file := range job.Files {
		g.Go(func() error {
			rec, err := r.exec.Execute(ctx, job.ToolName, file)
			if err := outcome(rec, err); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// outcome folds an execution record into the job's pass/fail view.
func outcome(rec audit.Record, err error) error {
	if err != nil {
		return err
	}
	if rec.Success {
		return nil
	}
	if rec.ErrorMessage != nil {
		return fmt.Errorf("%s", *rec.ErrorMessage)
	}
	if rec.ReturnCode != nil {
		return fmt.Errorf("command exited with code %d", *rec.ReturnCode)
	}
	return fmt.Errorf("execution failed")
}

// transition persists a state change. A failed write is logged and,
// for the running transition, aborts the job so pollers never observe
// work happening under a stale queued record.
func (r *Runner) transition(job Job) error {
	if err := writeJob(r.dir, job); err != nil {
		r.logger.Error("failed to persist job transition",
			"job_id", job.ID, "status", job.Status, "error", err)
		return err
	}
	r.logger.Debug("job transition", "job_id", job.ID, "status", job.Status)
	return nil
}
