// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.runbook/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Paths: tool definitions file, audit/jobs/scratch directories
//   - Limits: history bound, execution timeout, output cap, rate limit
//   - Archive: optional PostgreSQL long-term audit archive (see storage.go)
//
// Validation is fail-fast with sentinel errors (validation.go); sensitive
// values (the archive password) are masked when the config is printed.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxHistory bounds the in-memory execution history.
	DefaultMaxHistory = 1000

	// DefaultTimeoutSeconds bounds a single execution's wall clock.
	DefaultTimeoutSeconds = 60.0

	// DefaultMaxOutputBytes caps captured stdout+stderr per execution.
	DefaultMaxOutputBytes = 1 << 20

	// DefaultRatePerSecond / DefaultRateBurst throttle per-tool executions.
	DefaultRatePerSecond = 5.0
	DefaultRateBurst     = 10

	// DefaultJobWorkers bounds concurrent file processing inside one job.
	DefaultJobWorkers = 4
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// Paths
	ToolsFile  string `mapstructure:"tools_file" json:"tools_file"`
	AuditDir   string `mapstructure:"audit_dir" json:"audit_dir"`
	JobsDir    string `mapstructure:"jobs_dir" json:"jobs_dir"`
	ScratchDir string `mapstructure:"scratch_dir" json:"scratch_dir"`

	// Execution limits
	MaxHistory     int     `mapstructure:"max_history" json:"max_history"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	MaxOutputBytes int     `mapstructure:"max_output_bytes" json:"max_output_bytes"`
	RatePerSecond  float64 `mapstructure:"rate_per_second" json:"rate_per_second"`
	RateBurst      int     `mapstructure:"rate_burst" json:"rate_burst"`
	JobWorkers     int     `mapstructure:"job_workers" json:"job_workers"`

	// Archive configuration (see storage.go)
	ArchiveEnabled   bool   `mapstructure:"archive_enabled" json:"archive_enabled"`
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".runbook")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("tools_file", filepath.Join(configDir, "tools.yaml"))
	viper.SetDefault("audit_dir", filepath.Join(configDir, "audit"))
	viper.SetDefault("jobs_dir", filepath.Join(configDir, "jobs"))
	viper.SetDefault("scratch_dir", filepath.Join(os.TempDir(), "runbook"))

	viper.SetDefault("max_history", DefaultMaxHistory)
	viper.SetDefault("timeout_seconds", DefaultTimeoutSeconds)
	viper.SetDefault("max_output_bytes", DefaultMaxOutputBytes)
	viper.SetDefault("rate_per_second", DefaultRatePerSecond)
	viper.SetDefault("rate_burst", DefaultRateBurst)
	viper.SetDefault("job_workers", DefaultJobWorkers)

	viper.SetDefault("archive_enabled", false)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "runbook")
	viper.SetDefault("postgres_db_name", "runbook")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("tools_file", "RUNBOOK_TOOLS_FILE")
	mustBind("audit_dir", "RUNBOOK_AUDIT_DIR")
	mustBind("jobs_dir", "RUNBOOK_JOBS_DIR")
	mustBind("scratch_dir", "RUNBOOK_SCRATCH_DIR")
	mustBind("timeout_seconds", "RUNBOOK_TIMEOUT_SECONDS")
	mustBind("archive_enabled", "RUNBOOK_ARCHIVE_ENABLED")
	mustBind("postgres_password", "RUNBOOK_POSTGRES_PASSWORD")
	mustBind("log_level", "RUNBOOK_LOG_LEVEL")
	mustBind("log_json", "RUNBOOK_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// MarshalJSON implements json.Marshaler with explicit masking of the
// archive password. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	if a.PostgresPassword != "" {
		a.PostgresPassword = maskedValue
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
