// Package archive persists execution records to PostgreSQL for
// retention beyond the bounded in-memory history. The archive is
// optional; the engine runs fully without it.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/runbook/internal/audit"
	"github.com/koopa0/runbook/internal/log"
)

// Store writes execution records to the executions table.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// Open connects to PostgreSQL, verifies the connection, and applies
// pending migrations. connURL must be a postgres:// URL.
func Open(ctx context.Context, connURL string, logger log.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("parse archive database URL: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create archive connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	if err := Migrate(connURL, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("execution archive connected")
	return &Store{pool: pool, logger: logger}, nil
}

// NewStore wraps an existing pool. The caller owns migrations.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Insert archives one execution record.
func (s *Store) Insert(ctx context.Context, rec audit.Record) error {
	const query = `
		INSERT INTO executions (
			tool_name, command, executed_at, returncode,
			stdout, stderr, execution_time, success,
			error_message, security_check_passed, log_file
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		rec.ToolName, rec.Command, rec.Timestamp, rec.ReturnCode,
		rec.Stdout, rec.Stderr, rec.ExecutionTime, rec.Success,
		rec.ErrorMessage, rec.SecurityCheckPassed, rec.LogFile,
	)
	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// RecentByTool returns up to limit archived records for one tool,
// most recent first. An empty toolName matches every tool.
func (s *Store) RecentByTool(ctx context.Context, toolName string, limit int) ([]audit.Record, error) {
	const query = `
		SELECT tool_name, command, executed_at, returncode,
		       stdout, stderr, execution_time, success,
		       error_message, security_check_passed, log_file
		FROM executions
		WHERE ($1 = '' OR tool_name = $1)
		ORDER BY executed_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, toolName, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived executions: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var rec audit.Record
		if err := rows.Scan(
			&rec.ToolName, &rec.Command, &rec.Timestamp, &rec.ReturnCode,
			&rec.Stdout, &rec.Stderr, &rec.ExecutionTime, &rec.Success,
			&rec.ErrorMessage, &rec.SecurityCheckPassed, &rec.LogFile,
		); err != nil {
			return nil, fmt.Errorf("scan archived execution: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived executions: %w", err)
	}
	return records, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
