// Package executor runs resolved commands as OS processes under resource
// limits. Every command runs in its own process group so that the timeout
// watchdog can terminate the whole subtree, not just the immediate shell.
//
// The executor owns process lifecycle only: it does not validate commands
// (internal/security) and does not persist outcomes (internal/audit).
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a run when the caller does not set one.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxOutputBytes caps combined captured stdout+stderr.
	DefaultMaxOutputBytes = 1 << 20 // 1 MiB

	// killGrace is how long the watchdog waits after SIGTERM before
	// escalating to SIGKILL on the process group.
	killGrace = 2 * time.Second
)

// allowedEnv lists the only environment variables a command inherits.
// Everything else in the caller's environment, credentials included,
// never reaches the child process.
var allowedEnv = []string{"PATH", "HOME", "LANG", "LC_ALL", "TZ", "TMPDIR"}

// Options control a single run.
type Options struct {
	// Timeout is the wall-clock limit. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps combined captured output. Zero means
	// DefaultMaxOutputBytes.
	MaxOutputBytes int

	// Dir overrides the per-run scratch subdirectory when non-empty.
	Dir string
}

// Result is the structured outcome of one run.
//
// Exactly one of the failure signals applies: SpawnErr when the process
// never started, TimedOut when the watchdog killed the group, Canceled
// when the caller's context ended the run, otherwise ReturnCode carries
// the exit status. ReturnCode is nil whenever the process did not exit
// on its own.
type Result struct {
	ReturnCode      *int
	Stdout          string
	Stderr          string
	StdoutTruncated bool
	StderrTruncated bool
	Duration        time.Duration
	TimedOut        bool
	Canceled        bool
	SpawnErr        error
}

// Success reports whether the process started, finished within its
// timeout, and exited zero.
func (r Result) Success() bool {
	return r.SpawnErr == nil && !r.TimedOut && !r.Canceled &&
		r.ReturnCode != nil && *r.ReturnCode == 0
}

// Runner executes commands under a scratch directory. Safe for
// concurrent use: each run gets its own process and working directory.
//
// A successful run removes its scratch subdirectory. Failed, timed-out
// and canceled runs leave theirs in place for inspection; retention of
// those is the operator's concern, like the audit files.
type Runner struct {
	scratchDir string
	logger     *slog.Logger
}

// New creates a Runner rooted at scratchDir, creating it if needed.
func New(scratchDir string, logger *slog.Logger) (*Runner, error) {
	if scratchDir == "" {
		return nil, errors.New("scratch directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(scratchDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &Runner{scratchDir: scratchDir, logger: logger}, nil
}

// Run executes command via /bin/sh -c in a fresh process group and blocks
// until the process exits, the timeout watchdog kills it, or ctx is done.
// Run never returns an error: every failure mode is encoded in Result.
func (r *Runner) Run(ctx context.Context, command string, opts Options) Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := opts.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	dir := opts.Dir
	createdDir := false
	if dir == "" {
		// Unique per run so concurrent executions never collide.
		dir = filepath.Join(r.scratchDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8]))
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Result{SpawnErr: fmt.Errorf("creating working directory: %w", err)}
		}
		createdDir = true
	}

	stdout, stderr := newCapturePair(maxOutput)

	cmd := exec.Command("/bin/sh", "-c", command) // #nosec G204 -- screened by internal/security before it gets here
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = passEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		r.logger.Warn("spawn failed", "error", err)
		return Result{SpawnErr: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		waitErr  error
		timedOut bool
		canceled bool
	)

	select {
	case waitErr = <-done:
	case <-timer.C:
		timedOut = true
		waitErr = r.killGroup(cmd, done)
	case <-ctx.Done():
		canceled = true
		waitErr = r.killGroup(cmd, done)
	}

	res := Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
		Duration:        time.Since(start),
		TimedOut:        timedOut,
		Canceled:        canceled,
	}

	if !timedOut && !canceled {
		code := 0
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else if waitErr != nil {
			// Wait failed for a non-exit reason; treat as not started cleanly.
			return Result{SpawnErr: waitErr, Duration: res.Duration}
		}
		res.ReturnCode = &code
	}

	if createdDir && res.Success() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("scratch directory cleanup failed", "dir", dir, "error", err)
		}
	}

	return res
}

// killGroup terminates the whole process group: SIGTERM first, SIGKILL
// after the grace period. It always reaps the process before returning.
func (r *Runner) killGroup(cmd *exec.Cmd, done <-chan error) error {
	pgid := cmd.Process.Pid
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case err := <-done:
		return err
	case <-time.After(killGrace):
	}

	_ = syscall.Kill(-pgid, syscall.SIGKILL)
	r.logger.Warn("process group force-killed", "pgid", pgid)
	return <-done
}

// passEnv builds the child environment from the allow-list.
func passEnv() []string {
	env := make([]string, 0, len(allowedEnv))
	for _, key := range allowedEnv {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}
