package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workentry-engine/workentry"
)

const sampleYAML = `
server:
  port: 9090
  cors_origins: ["https://hr.example.com"]
database:
  path: /var/lib/workentry/data.db
scheduler:
  enabled: true
  interval: 30m
engine:
  bypass_codes: [LEAVE_HOLIDAY, LEAVE_CLOSURE]
  default_leave_type: LEAVE90
  source_fields: [leave_ids]
  strict_timezones: true
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "workentry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://hr.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/var/lib/workentry/data.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, []string{"LEAVE_HOLIDAY", "LEAVE_CLOSURE"}, cfg.Engine.BypassCodes)
	assert.True(t, cfg.Engine.StrictTimezones)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 7000\n"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "workentry.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("WORKENTRY_PORT", "8181")
	t.Setenv("WORKENTRY_DB", "/tmp/other.db")
	t.Setenv("WORKENTRY_LOG_LEVEL", "warn")
	t.Setenv("WORKENTRY_SCHEDULER_ENABLED", "false")
	t.Setenv("WORKENTRY_SCHEDULER_INTERVAL", "5m")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("WORKENTRY_PORT", "eighty")
	_, err = Load("")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "WORKENTRY_PORT", ve.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"interval", func(c *Config) { c.Scheduler.Interval = time.Second }, "scheduler.interval"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"source field", func(c *Config) { c.Engine.SourceFields = []string{"shift_ids"} }, "engine.source_fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	// A disabled scheduler may have any interval.
	cfg := Default()
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.Interval = 0
	assert.NoError(t, cfg.Validate())
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger, err = LogConfig{Level: "info", Format: "text"}.NewLogger()
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestEngineConfig_Wiring(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	settings := cfg.Engine.Settings()
	assert.Equal(t, workentry.WorkEntryTypeID("LEAVE90"), settings.DefaultLeave)
	assert.Empty(t, settings.DefaultAttendance)
	assert.Equal(t, []string{"leave_ids"}, settings.SourceFields)
	assert.Len(t, cfg.Engine.Options(), 1)
	assert.Empty(t, Default().Engine.Options())
}
