package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitkit/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "git", cfg.Git.Binary)
	assert.Equal(t, time.Minute, cfg.Git.Timeout)
	assert.Equal(t, 100, cfg.Diff.MaxFiles)
	assert.Equal(t, 5000, cfg.Diff.MaxFileLines)
	assert.Equal(t, 500, cfg.Diff.MaxLineChars)
	assert.Zero(t, cfg.Pool.MaxConcurrency)
	assert.Equal(t, ".", cfg.Repos.Root)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
git:
  binary: /usr/bin/git
  timeout: 5s
  env:
    GIT_CONFIG_NOSYSTEM: "1"
diff:
  max_files: 10
  max_file_lines: 0
pool:
  max_concurrency: 4
repos:
  root: /srv/git
server:
  port: 9000
  mode: debug
logging:
  level: debug
  format: json
  output: file
  file:
    path: /var/log/gitkit.log
    max_backups: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/git", cfg.Git.Binary)
	assert.Equal(t, 5*time.Second, cfg.Git.Timeout)
	assert.Equal(t, map[string]string{"GIT_CONFIG_NOSYSTEM": "1"}, cfg.Git.Environment())
	assert.Equal(t, 10, cfg.Diff.MaxFiles)
	assert.Zero(t, cfg.Diff.MaxFileLines)
	assert.Equal(t, 500, cfg.Diff.MaxLineChars)
	assert.Equal(t, 4, cfg.Pool.MaxConcurrency)
	assert.Equal(t, "/srv/git", cfg.Repos.Root)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/log/gitkit.log", cfg.Logging.File.Path)
	assert.Equal(t, 2, cfg.Logging.File.MaxBackups)
	assert.Equal(t, 100, cfg.Logging.File.MaxSizeMB)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("GITKIT_SERVER_PORT", "9100")
	t.Setenv("GITKIT_GIT_TIMEOUT", "250ms")
	t.Setenv("GITKIT_TELEMETRY_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SERVICE_NAME", "gitkit-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Git.Timeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, "gitkit-test", cfg.Telemetry.ServiceName)
}

func TestLoadPrefixedEnvWinsOverOtelEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GITKIT_TELEMETRY_ENDPOINT", "mine:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "other:4317")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mine:4317", cfg.Telemetry.Endpoint)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigError)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty binary", mutate: func(c *Config) { c.Git.Binary = " " }},
		{name: "negative timeout", mutate: func(c *Config) { c.Git.Timeout = -time.Second }},
		{name: "negative diff limit", mutate: func(c *Config) { c.Diff.MaxLineChars = -1 }},
		{name: "negative pool", mutate: func(c *Config) { c.Pool.MaxConcurrency = -2 }},
		{name: "no repos root", mutate: func(c *Config) { c.Repos.Root = "" }},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "bad output", mutate: func(c *Config) { c.Logging.Output = "syslog" }},
		{name: "file without path", mutate: func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.File.Path = ""
		}},
		{name: "otel without telemetry", mutate: func(c *Config) { c.Logging.Output = "otel" }},
		{name: "telemetry without endpoint", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfigError)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeConfig(t, "diff:\n  max_files: -1\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigError)
}
