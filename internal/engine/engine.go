// Package engine composes the validator, tool store, executor and audit
// logger into the single entry point callers use to run a named tool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/koopa0/runbook/internal/audit"
	"github.com/koopa0/runbook/internal/executor"
	"github.com/koopa0/runbook/internal/log"
	"github.com/koopa0/runbook/internal/security"
	"github.com/koopa0/runbook/internal/tool"
)

// Defaults for the per-tool token bucket.
const (
	DefaultRate  = 5.0
	DefaultBurst = 10
)

// Config carries the per-run limits every execution inherits.
type Config struct {
	Timeout        time.Duration
	MaxOutputBytes int
	Rate           float64
	Burst          int
}

// Engine runs named tools. Every attempt, including ones rejected
// before a process is spawned, produces exactly one audit record.
type Engine struct {
	tools     *tool.Store
	validator *security.Validator
	runner    *executor.Runner
	auditLog  *audit.Logger
	cfg       Config
	logger    log.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New wires an Engine. Zero Config fields fall back to package
// defaults.
func New(tools *tool.Store, validator *security.Validator, runner *executor.Runner, auditLog *audit.Logger, cfg Config, logger log.Logger) *Engine {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	return &Engine{
		tools:     tools,
		validator: validator,
		runner:    runner,
		auditLog:  auditLog,
		cfg:       cfg,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Execute runs toolName with extra arguments appended to its command.
// The returned record is the authoritative outcome: validation
// rejections, rate limiting, timeouts and nonzero exits all surface
// there, not in the error. The error is non-nil only when the request
// never became an attempt (context already done).
func (e *Engine) Execute(ctx context.Context, toolName string, args ...string) (audit.Record, error) {
	if err := ctx.Err(); err != nil {
		return audit.Record{}, err
	}

	rec := audit.Record{
		ToolName:  toolName,
		Timestamp: time.Now().UTC(),
	}

	t, err := e.tools.Get(toolName)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			return e.reject(ctx, rec, fmt.Sprintf("unknown tool: %q", toolName)), nil
		}
		return audit.Record{}, err
	}

	rec.Command = buildCommand(t.Command, args)

	// Re-check at execution time even though definitions were
	// validated at load. Auto tools additionally must be free of
	// interactive prompts.
	verr := e.validator.Validate(rec.Command)
	if verr == nil && t.Auto {
		verr = e.validator.ValidateForAuto(rec.Command)
	}
	if verr != nil {
		return e.reject(ctx, rec, verr.Error()), nil
	}
	rec.SecurityCheckPassed = true

	if !e.limiter(toolName).Allow() {
		msg := fmt.Sprintf("rate limited: tool %q exceeded %.3g executions/s (burst %d)",
			toolName, e.cfg.Rate, e.cfg.Burst)
		rec.ErrorMessage = &msg
		e.logger.Warn("execution rate limited", "tool", toolName)
		return e.auditLog.Record(ctx, rec), nil
	}

	res := e.runner.Run(ctx, rec.Command, executor.Options{
		Timeout:        e.cfg.Timeout,
		MaxOutputBytes: e.cfg.MaxOutputBytes,
	})

	rec.ReturnCode = res.ReturnCode
	rec.Stdout = res.Stdout
	rec.Stderr = res.Stderr
	rec.Success = res.Success()
	if res.SpawnErr == nil {
		rec.ExecutionTime = res.Duration.Seconds()
	}

	switch {
	case res.SpawnErr != nil:
		msg := fmt.Sprintf("failed to spawn process: %v", res.SpawnErr)
		rec.ErrorMessage = &msg
	case res.TimedOut:
		timeout := e.cfg.Timeout
		if timeout <= 0 {
			timeout = executor.DefaultTimeout
		}
		msg := fmt.Sprintf("execution timed out after %gs", timeout.Seconds())
		rec.ErrorMessage = &msg
	case res.Canceled:
		msg := "execution canceled"
		rec.ErrorMessage = &msg
	}

	return e.auditLog.Record(ctx, rec), nil
}

// History returns up to limit records for toolName (empty matches
// all), most recent first.
func (e *Engine) History(limit int, toolName string) []audit.Record {
	return e.auditLog.History(limit, toolName)
}

// Stats aggregates the bounded history.
func (e *Engine) Stats() audit.Stats {
	return e.auditLog.Stats()
}

// Tools lists every known definition.
func (e *Engine) Tools() []tool.Tool {
	return e.tools.All()
}

// reject logs and records an attempt that never spawned a process.
func (e *Engine) reject(ctx context.Context, rec audit.Record, msg string) audit.Record {
	rec.ErrorMessage = &msg
	e.logger.Warn("execution rejected", "tool", rec.ToolName, "reason", msg)
	return e.auditLog.Record(ctx, rec)
}

func (e *Engine) limiter(toolName string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limiters[toolName]
	if !ok {
		l = rate.NewLimiter(rate.Limit(e.cfg.Rate), e.cfg.Burst)
		e.limiters[toolName] = l
	}
	return l
}

// buildCommand appends shell-quoted arguments to a tool's command.
func buildCommand(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	var b strings.Builder
	b.WriteString(command)
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(quoteArg(arg))
	}
	return b.String()
}

// quoteArg single-quotes an argument for /bin/sh, escaping embedded
// single quotes.
func quoteArg(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
