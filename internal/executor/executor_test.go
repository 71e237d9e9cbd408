package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/koopa0/runbook/internal/log"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := New(t.TempDir(), log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return r
}

func TestRunner_Run_Success(t *testing.T) {
	r := newTestRunner(t)

	res := r.Run(context.Background(), "echo hello && date", Options{Timeout: 10 * time.Second})

	if !res.Success() {
		t.Fatalf("Run() = %+v, want success", res)
	}
	if res.ReturnCode == nil || *res.ReturnCode != 0 {
		t.Errorf("ReturnCode = %v, want 0", res.ReturnCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want to contain hello", res.Stdout)
	}
	if res.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", res.Duration)
	}
}

func TestRunner_Run_NonzeroExit(t *testing.T) {
	r := newTestRunner(t)

	res := r.Run(context.Background(), "exit 3", Options{Timeout: 10 * time.Second})

	if res.Success() {
		t.Fatal("Run(exit 3) reported success")
	}
	if res.ReturnCode == nil || *res.ReturnCode != 3 {
		t.Errorf("ReturnCode = %v, want 3", res.ReturnCode)
	}
	if res.TimedOut || res.SpawnErr != nil {
		t.Errorf("unexpected failure class: %+v", res)
	}
}

func TestRunner_Run_StderrCaptured(t *testing.T) {
	r := newTestRunner(t)

	res := r.Run(context.Background(), "echo oops 1>&2", Options{Timeout: 10 * time.Second})

	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("Stderr = %q, want to contain oops", res.Stderr)
	}
}

func TestRunner_Run_Timeout(t *testing.T) {
	r := newTestRunner(t)

	start := time.Now()
	res := r.Run(context.Background(), "echo partial && sleep 10", Options{Timeout: time.Second})
	elapsed := time.Since(start)

	if !res.TimedOut {
		t.Fatalf("Run() = %+v, want TimedOut", res)
	}
	if res.Success() {
		t.Error("timed-out run reported success")
	}
	if res.ReturnCode != nil {
		t.Errorf("ReturnCode = %d, want nil after timeout", *res.ReturnCode)
	}
	if !strings.Contains(res.Stdout, "partial") {
		t.Errorf("Stdout = %q, want partial output captured before timeout", res.Stdout)
	}
	// Timeout plus at most the SIGTERM grace period, with slack for the runtime.
	if elapsed > 4*time.Second {
		t.Errorf("run took %v, watchdog did not fire in time", elapsed)
	}
}

func TestRunner_Run_KillsProcessGroup(t *testing.T) {
	r := newTestRunner(t)

	// The shell forks a backgrounded child; only group termination reaps it.
	res := r.Run(context.Background(), "sleep 30 & sleep 30", Options{Timeout: time.Second})

	if !res.TimedOut {
		t.Fatalf("Run() = %+v, want TimedOut", res)
	}
	if res.Duration > 4*time.Second {
		t.Errorf("Duration = %v, group was not killed promptly", res.Duration)
	}
}

func TestRunner_Run_OutputCapped(t *testing.T) {
	r := newTestRunner(t)

	res := r.Run(context.Background(), "head -c 100000 /dev/zero | tr '\\0' 'a'", Options{
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1024,
	})

	if !res.Success() {
		t.Fatalf("Run() = %+v, want success despite capped output", res)
	}
	if len(res.Stdout) != 1024 {
		t.Errorf("len(Stdout) = %d, want 1024", len(res.Stdout))
	}
	if !res.StdoutTruncated {
		t.Error("StdoutTruncated = false, want true")
	}
}

func TestRunner_Run_SpawnFailure(t *testing.T) {
	r := newTestRunner(t)

	res := r.Run(context.Background(), "echo never", Options{
		Timeout: 10 * time.Second,
		Dir:     filepath.Join(t.TempDir(), "does", "not", "exist"),
	})

	if res.SpawnErr == nil {
		t.Fatalf("Run() = %+v, want SpawnErr", res)
	}
	if res.Success() {
		t.Error("spawn failure reported success")
	}
	if res.ReturnCode != nil {
		t.Errorf("ReturnCode = %v, want nil when never started", res.ReturnCode)
	}
}

func TestRunner_Run_EnvAllowList(t *testing.T) {
	r := newTestRunner(t)

	t.Setenv("RUNBOOK_TEST_SECRET_TOKEN", "hunter2")

	res := r.Run(context.Background(), "env", Options{Timeout: 10 * time.Second})

	if !res.Success() {
		t.Fatalf("Run(env) = %+v", res)
	}
	if strings.Contains(res.Stdout, "RUNBOOK_TEST_SECRET_TOKEN") {
		t.Error("secret environment variable leaked into the child process")
	}
	if !strings.Contains(res.Stdout, "PATH=") {
		t.Error("allow-listed PATH missing from child environment")
	}
}

func TestRunner_Run_ContextCanceled(t *testing.T) {
	r := newTestRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	res := r.Run(ctx, "sleep 30", Options{Timeout: time.Minute})

	if !res.Canceled {
		t.Fatalf("Run() = %+v, want Canceled", res)
	}
	if res.Success() {
		t.Error("canceled run reported success")
	}
}

func TestRunner_Run_ScratchCleanup(t *testing.T) {
	scratch := t.TempDir()
	r, err := New(scratch, log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	res := r.Run(context.Background(), "echo ok > artifact.txt", Options{Timeout: 10 * time.Second})
	if !res.Success() {
		t.Fatalf("Run() = %+v, want success", res)
	}
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("ReadDir() = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root has %d entries after a successful run, want 0", len(entries))
	}

	// A failed run keeps its working directory for inspection.
	res = r.Run(context.Background(), "echo broken > artifact.txt && exit 1", Options{Timeout: 10 * time.Second})
	if res.Success() {
		t.Fatal("Run(exit 1) reported success")
	}
	entries, err = os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("ReadDir() = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("scratch root has %d entries after a failed run, want 1", len(entries))
	}
	if _, err := os.Stat(filepath.Join(scratch, entries[0].Name(), "artifact.txt")); err != nil {
		t.Errorf("failed run's artifact missing: %v", err)
	}
}

func TestRunner_Run_UniqueWorkingDirs(t *testing.T) {
	r := newTestRunner(t)

	first := r.Run(context.Background(), "pwd", Options{Timeout: 10 * time.Second})
	second := r.Run(context.Background(), "pwd", Options{Timeout: 10 * time.Second})

	if !first.Success() || !second.Success() {
		t.Fatalf("pwd runs failed: %+v / %+v", first, second)
	}
	if strings.TrimSpace(first.Stdout) == strings.TrimSpace(second.Stdout) {
		t.Errorf("both runs shared working dir %q", strings.TrimSpace(first.Stdout))
	}
}
