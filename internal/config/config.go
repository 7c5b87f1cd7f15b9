package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bravo68web/gitkit/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. GITKIT_GIT_TIMEOUT.
const EnvPrefix = "GITKIT"

// Config represents the complete application configuration
type Config struct {
	Git       GitConfig       `mapstructure:"git"`
	Diff      DiffConfig      `mapstructure:"diff"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Repos     ReposConfig     `mapstructure:"repos"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GitConfig controls how the git binary is invoked
type GitConfig struct {
	Binary  string            `mapstructure:"binary"`
	Timeout time.Duration     `mapstructure:"timeout"` // 0 disables the kill deadline
	Env     map[string]string `mapstructure:"env"`
}

// Environment returns Env with upper-cased names. Viper folds map keys to
// lower case but environment variable names are case-sensitive.
func (g GitConfig) Environment() map[string]string {
	env := make(map[string]string, len(g.Env))
	for k, v := range g.Env {
		env[strings.ToUpper(k)] = v
	}
	return env
}

// DiffConfig holds the default diff parser limits. 0 means unlimited.
type DiffConfig struct {
	MaxFiles     int `mapstructure:"max_files"`
	MaxFileLines int `mapstructure:"max_file_lines"`
	MaxLineChars int `mapstructure:"max_line_chars"`
}

// PoolConfig sizes the worker pool of batch lookups
type PoolConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"` // 0 means one worker per CPU
}

// ReposConfig locates the repositories served by name
type ReposConfig struct {
	Root string `mapstructure:"root"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // console, otel, file

	File LogFileConfig `mapstructure:"file"`
}

// LogFileConfig holds the rotation settings of the file output
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TelemetryConfig holds the OTLP log exporter configuration
type TelemetryConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	Endpoint    string            `mapstructure:"endpoint"`
	UseHTTP     bool              `mapstructure:"use_http"`
	Insecure    bool              `mapstructure:"insecure"`
	ServiceName string            `mapstructure:"service_name"`
	Headers     map[string]string `mapstructure:"headers"`
}

// Load reads configuration from file and environment variables.
// Sources, lowest precedence first:
// 1. Built-in defaults
// 2. The explicit file path, or config.yaml in ., ./configs or /etc/gitkit
// 3. GITKIT_* environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(errors.ErrConfigError, "failed to read config file %s: %v", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/gitkit")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrapf(errors.ErrConfigError, "failed to read config file: %v", err)
			}
			// Config file not found; rely on defaults and env vars
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrConfigError, "failed to unmarshal config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Git defaults
	v.SetDefault("git.binary", "git")
	v.SetDefault("git.timeout", time.Minute)
	v.SetDefault("git.env", map[string]string{})

	// Diff defaults
	v.SetDefault("diff.max_files", 100)
	v.SetDefault("diff.max_file_lines", 5000)
	v.SetDefault("diff.max_line_chars", 500)

	// Pool defaults
	v.SetDefault("pool.max_concurrency", 0)

	// Repository defaults
	v.SetDefault("repos.root", ".")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "console")
	v.SetDefault("logging.file.path", "logs/gitkit.log")
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 30)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.use_http", false)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "gitkit")
}

// overrideFromEnv applies the standard OpenTelemetry variables when the
// GITKIT_ ones are not set
func overrideFromEnv(v *viper.Viper) {
	if _, ok := os.LookupEnv(EnvPrefix + "_TELEMETRY_ENDPOINT"); !ok {
		if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
			v.Set("telemetry.endpoint", endpoint)
		}
	}
	if _, ok := os.LookupEnv(EnvPrefix + "_TELEMETRY_SERVICE_NAME"); !ok {
		if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
			v.Set("telemetry.service_name", name)
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(errors.ErrConfigError, format, args...)
	}

	if strings.TrimSpace(c.Git.Binary) == "" {
		return invalid("git binary is required")
	}
	if c.Git.Timeout < 0 {
		return invalid("git timeout must not be negative: %s", c.Git.Timeout)
	}

	if c.Diff.MaxFiles < 0 || c.Diff.MaxFileLines < 0 || c.Diff.MaxLineChars < 0 {
		return invalid("diff limits must not be negative")
	}

	if c.Pool.MaxConcurrency < 0 {
		return invalid("pool max concurrency must not be negative: %d", c.Pool.MaxConcurrency)
	}

	if c.Repos.Root == "" {
		return invalid("repos root is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Output {
	case "console", "otel":
	case "file":
		if c.Logging.File.Path == "" {
			return invalid("logging output file requires logging.file.path")
		}
	default:
		return invalid("invalid logging output: %s", c.Logging.Output)
	}
	if c.Logging.Output == "otel" && !c.Telemetry.Enabled {
		return invalid("logging output otel requires telemetry to be enabled")
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return invalid("telemetry endpoint is required when telemetry is enabled")
	}

	return nil
}

// ServerAddress returns the HTTP server address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug" || c.Server.Mode == "development"
}
