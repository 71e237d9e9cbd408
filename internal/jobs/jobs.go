// Package jobs runs long-lived tool work in the background, tracking
// each job through an explicit state machine persisted as one status
// file per job id.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status is a job's position in its lifecycle. queued and the two
// terminal states are stable; only running has outgoing transitions.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound indicates no job exists with the given id.
var ErrNotFound = errors.New("job not found")

// Job is the single status record for one background job. Each state
// transition rewrites the whole record; pollers always see the latest
// state, never a partial one.
type Job struct {
	ID        uuid.UUID `json:"job_id"`
	ToolName  string    `json:"tool_name"`
	Files     []string  `json:"files"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Details   string    `json:"details,omitempty"`
}

func jobPath(dir string, id uuid.UUID) string {
	return filepath.Join(dir, id.String()+".json")
}

// writeJob replaces the job's status file atomically. The temp file
// lives in the same directory so the rename never crosses filesystems.
func writeJob(dir string, job Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	tmp, err := os.CreateTemp(dir, ".job-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp job file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp job file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp job file: %w", err)
	}

	if err := os.Rename(tmpName, jobPath(dir, job.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace job file: %w", err)
	}
	return nil
}

// readJob loads the current status record for id.
func readJob(dir string, id uuid.UUID) (Job, error) {
	data, err := os.ReadFile(jobPath(dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Job{}, fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode job file for %s: %w", id, err)
	}
	return job, nil
}
