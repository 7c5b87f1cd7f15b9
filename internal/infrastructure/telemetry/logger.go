package telemetry

import (
	"context"
	"io"

	"github.com/bravo68web/gitkit/internal/config"
	"github.com/bravo68web/gitkit/pkg/logger"
)

// NewLogger builds the application logger. Output "file" writes to a
// rotating file instead of w. With output "otel" every entry goes to w and
// is also exported through a Provider that is shut down when the logger is
// closed.
func NewLogger(ctx context.Context, logCfg config.LoggingConfig, telCfg config.TelemetryConfig, w io.Writer, opts ...ProviderOption) (*logger.Logger, error) {
	cfg := logger.DefaultConfig()
	cfg.Level = logCfg.Level
	cfg.Format = logCfg.Format
	cfg.Output = logger.OutputType(logCfg.Output)
	cfg.Writer = w
	cfg.File = logger.FileConfig{
		Path:       logCfg.File.Path,
		MaxSizeMB:  logCfg.File.MaxSizeMB,
		MaxBackups: logCfg.File.MaxBackups,
		MaxAgeDays: logCfg.File.MaxAgeDays,
	}

	if cfg.Output != logger.OutputOTEL {
		return logger.New(cfg)
	}

	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(ctx, telCfg, opts...)
	if err != nil {
		return nil, err
	}

	core := NewCombinedCore(logger.ConsoleCore(cfg, level), provider, level)
	return logger.NewWithCore(cfg, core, provider), nil
}
