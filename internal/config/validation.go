package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPath indicates a required path setting is empty.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidMaxHistory indicates the history bound is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidTimeout indicates the execution timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidOutputCap indicates the output cap is out of range.
	ErrInvalidOutputCap = errors.New("invalid output cap")

	// ErrInvalidRateLimit indicates the rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidJobWorkers indicates the job worker count is out of range.
	ErrInvalidJobWorkers = errors.New("invalid job workers")

	// ErrInvalidPostgres indicates the archive connection settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	for name, path := range map[string]string{
		"tools_file":  c.ToolsFile,
		"audit_dir":   c.AuditDir,
		"jobs_dir":    c.JobsDir,
		"scratch_dir": c.ScratchDir,
	} {
		if path == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidPath, name)
		}
	}

	if c.MaxHistory < 1 || c.MaxHistory > 1_000_000 {
		return fmt.Errorf("%w: must be between 1 and 1,000,000, got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}

	if c.TimeoutSeconds <= 0 || c.TimeoutSeconds > 86400 {
		return fmt.Errorf("%w: must be between 0 and 86,400 seconds, got %.1f", ErrInvalidTimeout, c.TimeoutSeconds)
	}

	if c.MaxOutputBytes < 1024 {
		return fmt.Errorf("%w: must be at least 1024 bytes, got %d", ErrInvalidOutputCap, c.MaxOutputBytes)
	}

	if c.RatePerSecond <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("%w: rate %.2f/s burst %d", ErrInvalidRateLimit, c.RatePerSecond, c.RateBurst)
	}

	if c.JobWorkers < 1 || c.JobWorkers > 256 {
		return fmt.Errorf("%w: must be between 1 and 256, got %d", ErrInvalidJobWorkers, c.JobWorkers)
	}

	// Archive settings matter only when the archive is enabled.
	if c.ArchiveEnabled {
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgres)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgres, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgres)
		}
		if c.PostgresPassword == "" {
			return fmt.Errorf("%w: postgres_password must be set when the archive is enabled", ErrInvalidPostgres)
		}
	}

	return nil
}
