// Package audit owns the engine's only shared mutable state: the bounded,
// FIFO-evicted history of execution records, plus the durable per-execution
// files written alongside it.
package audit

import "time"

// Record is the immutable outcome of one attempt to run a tool. Every
// attempt produces exactly one Record, whether it was rejected by
// validation, failed to spawn, timed out, exited nonzero, or succeeded.
//
// Field semantics:
//   - ReturnCode is nil when the process never exited on its own
//     (validation rejection, spawn failure, timeout).
//   - Success is true iff the process started, finished within its
//     timeout, and exited zero.
//   - SecurityCheckPassed false implies the process was never spawned.
//   - ErrorMessage is non-nil on any failure that was not a plain
//     nonzero exit: validation rejection, timeout, spawn failure.
//   - LogFile references the durable per-execution file, when written.
type Record struct {
	ToolName            string    `json:"tool_name"`
	Command             string    `json:"command"`
	Timestamp           time.Time `json:"timestamp"`
	ReturnCode          *int      `json:"returncode"`
	Stdout              string    `json:"stdout"`
	Stderr              string    `json:"stderr"`
	ExecutionTime       float64   `json:"execution_time"`
	Success             bool      `json:"success"`
	ErrorMessage        *string   `json:"error_message"`
	SecurityCheckPassed bool      `json:"security_check_passed"`
	LogFile             *string   `json:"log_file"`
}
