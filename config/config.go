/*
config.go - Service configuration

PURPOSE:
  Loads the settings of the server, the scheduler and the engine host from
  a YAML file, then applies environment overrides. A .env file in the
  working directory is loaded into the environment first.

EXAMPLE (workentry.yaml):
  server:
    port: 8080
    cors_origins: ["http://localhost:5173"]
  database:
    path: ~/.workentry/data.db
  scheduler:
    enabled: true
    interval: 1h
  engine:
    bypass_codes: [LEAVE_HOLIDAY]
    default_attendance_type: WORK100
    default_leave_type: LEAVE100
    source_fields: [attendance_ids, leave_ids]
    strict_timezones: false
  log:
    level: info
    format: text

ENVIRONMENT:
  WORKENTRY_PORT                server.port
  WORKENTRY_DB                  database.path
  WORKENTRY_LOG_LEVEL           log.level
  WORKENTRY_SCHEDULER_ENABLED   scheduler.enabled
  WORKENTRY_SCHEDULER_INTERVAL  scheduler.interval
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/warp/workentry-engine/generic"
	"github.com/warp/workentry-engine/store/sqlite"
	"github.com/warp/workentry-engine/workentry"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Engine    EngineConfig    `yaml:"engine"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// EngineConfig holds the host answers that are not stored in tables.
// Empty values keep the store's defaults.
type EngineConfig struct {
	BypassCodes           []string `yaml:"bypass_codes"`
	DefaultAttendanceType string   `yaml:"default_attendance_type"`
	DefaultLeaveType      string   `yaml:"default_leave_type"`
	SourceFields          []string `yaml:"source_fields"`
	StrictTimezones       bool     `yaml:"strict_timezones"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Database:  DatabaseConfig{Path: "workentry.db"},
		Scheduler: SchedulerConfig{Enabled: true, Interval: time.Hour},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (defaults only when path is empty), applies the
// environment and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Expand ~ in database path
	if strings.HasPrefix(cfg.Database.Path, "~/") {
		home, _ := os.UserHomeDir()
		cfg.Database.Path = filepath.Join(home, cfg.Database.Path[2:])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("WORKENTRY_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: "WORKENTRY_PORT", Message: fmt.Sprintf("not a number: %q", v)}
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("WORKENTRY_DB"); ok {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv("WORKENTRY_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("WORKENTRY_SCHEDULER_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Field: "WORKENTRY_SCHEDULER_ENABLED", Message: fmt.Sprintf("not a boolean: %q", v)}
		}
		c.Scheduler.Enabled = enabled
	}
	if v, ok := os.LookupEnv("WORKENTRY_SCHEDULER_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ValidationError{Field: "WORKENTRY_SCHEDULER_INTERVAL", Message: fmt.Sprintf("not a duration: %q", v)}
		}
		c.Scheduler.Interval = d
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

var knownSourceFields = map[string]bool{
	generic.RefAttendance.SourceField(): true,
	generic.RefLeave.SourceField():      true,
	generic.RefSlot.SourceField():       true,
}

// Validate checks the configuration for common issues
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: fmt.Sprintf("%d is not a TCP port", c.Server.Port)}
	}
	if c.Database.Path == "" {
		return &ValidationError{Field: "database.path", Message: "Database path is required"}
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return &ValidationError{Field: "scheduler.interval", Message: "Interval must be at least one minute"}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Message: err.Error()}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return &ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q, want text or json", c.Log.Format)}
	}
	for _, f := range c.Engine.SourceFields {
		if !knownSourceFields[f] {
			return &ValidationError{Field: "engine.source_fields", Message: fmt.Sprintf("unknown source field %q", f)}
		}
	}
	return nil
}

// =============================================================================
// WIRING
// =============================================================================

// NewLogger builds the logrus logger described by the log section.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger, nil
}

// Settings converts the engine section for the SQLite host.
func (c EngineConfig) Settings() sqlite.Settings {
	return sqlite.Settings{
		SourceFields:      c.SourceFields,
		DefaultAttendance: workentry.WorkEntryTypeID(c.DefaultAttendanceType),
		DefaultLeave:      workentry.WorkEntryTypeID(c.DefaultLeaveType),
		BypassCodes:       c.BypassCodes,
	}
}

// Options returns the engine options of the section.
func (c EngineConfig) Options() []workentry.Option {
	var opts []workentry.Option
	if c.StrictTimezones {
		opts = append(opts, workentry.WithStrictTimezones())
	}
	return opts
}
