package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/koopa0/runbook/internal/archive"
	"github.com/koopa0/runbook/internal/audit"
	"github.com/koopa0/runbook/internal/config"
	"github.com/koopa0/runbook/internal/engine"
	"github.com/koopa0/runbook/internal/executor"
	"github.com/koopa0/runbook/internal/jobs"
	"github.com/koopa0/runbook/internal/log"
	"github.com/koopa0/runbook/internal/security"
	"github.com/koopa0/runbook/internal/tool"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   log.Logger
	engine   *engine.Engine
	jobs     *jobs.Runner
	auditLog *audit.Logger
	archive  *archive.Store
}

// setup loads configuration and wires the engine. Call close when done.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	validator := security.New(logger.With("component", "security"))

	tools, err := tool.Load(cfg.ToolsFile, validator, logger.With("component", "tools"))
	if err != nil {
		return nil, fmt.Errorf("loading tool definitions from %s: %w", cfg.ToolsFile, err)
	}

	var archiver audit.Archiver
	var store *archive.Store
	if cfg.ArchiveEnabled {
		store, err = archive.Open(ctx, cfg.PostgresURL(), logger.With("component", "archive"))
		if err != nil {
			return nil, err
		}
		archiver = store
	}

	auditLog, err := audit.NewLogger(cfg.AuditDir, cfg.MaxHistory, archiver, logger.With("component", "audit"))
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	runner, err := executor.New(cfg.ScratchDir, logger.With("component", "executor"))
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	eng := engine.New(tools, validator, runner, auditLog, engine.Config{
		Timeout:        time.Duration(cfg.TimeoutSeconds * float64(time.Second)),
		MaxOutputBytes: cfg.MaxOutputBytes,
		Rate:           cfg.RatePerSecond,
		Burst:          cfg.RateBurst,
	}, logger.With("component", "engine"))

	jobRunner, err := jobs.NewRunner(cfg.JobsDir, cfg.JobWorkers, eng, logger.With("component", "jobs"))
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		engine:   eng,
		jobs:     jobRunner,
		auditLog: auditLog,
		archive:  store,
	}, nil
}

// close flushes the history snapshot and releases the archive pool.
// It does not wait for background jobs; commands that queue work wait
// explicitly.
func (a *app) close() {
	if err := a.auditLog.Close(); err != nil {
		a.logger.Warn("failed to save history snapshot", "error", err)
	}
	if a.archive != nil {
		a.archive.Close()
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
