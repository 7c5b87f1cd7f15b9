package logger

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// OutputType defines where log entries are written
type OutputType string

const (
	// OutputConsole writes entries to stderr so stdout stays free for command output
	OutputConsole OutputType = "console"
	// OutputOTEL ships entries to an OpenTelemetry collector in addition to the console
	OutputOTEL OutputType = "otel"
	// OutputFile appends entries to a size-rotated file
	OutputFile OutputType = "file"
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string

	// Output defines where logs should be written (console, otel, file)
	Output OutputType

	// File configures OutputFile
	File FileConfig

	// Format defines the console encoding (json, console)
	Format string

	// Development enables development mode (colored levels, stacktraces on warn)
	Development bool

	// AddCaller adds caller information to log entries
	AddCaller bool

	// CallerSkip is the number of stack frames to skip when recording caller info
	CallerSkip int

	// Writer overrides the console destination. Defaults to os.Stderr.
	Writer io.Writer
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Output:     OutputConsole,
		Format:     "console",
		AddCaller:  true,
		CallerSkip: 1,
	}
}

// Logger wraps zap.Logger with trace-aware helpers
type Logger struct {
	*zap.Logger
	closers []io.Closer
	mu      sync.Mutex
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// New creates a console or file Logger from cfg. OTEL output is assembled
// by the telemetry package through NewWithCore.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.Output == OutputFile {
		fw, err := newFileWriter(cfg.File)
		if err != nil {
			return nil, err
		}
		fileCfg := *cfg
		fileCfg.Writer = fw
		return NewWithCore(cfg, ConsoleCore(&fileCfg, level), fw), nil
	}

	core := ConsoleCore(cfg, level)
	return NewWithCore(cfg, core), nil
}

// NewWithCore creates a new Logger with a custom zapcore.Core
func NewWithCore(cfg *Config, core zapcore.Core, closers ...io.Closer) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	zapLogger := zap.New(core, buildZapOptions(cfg)...)
	return &Logger{
		Logger:  zapLogger,
		closers: closers,
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger: zap.NewNop(),
	}
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Get returns the global logger, creating a default one on first use
func Get() *Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l = NewNop()
		}
		globalLogger = l
	}

	return globalLogger
}

func (l *Logger) derive(z *zap.Logger) *Logger {
	return &Logger{
		Logger:  z,
		closers: l.closers,
	}
}

// WithContext returns a logger carrying the trace and span IDs of ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return l
	}

	return l.derive(l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	))
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return l.derive(l.With(fields...))
}

// Named returns a logger for the given component
func (l *Logger) Named(name string) *Logger {
	return l.derive(l.Logger.Named(name))
}

// Close flushes buffered entries and releases exporters
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.Logger.Sync()

	var lastErr error
	for _, closer := range l.closers {
		if err := closer.Close(); err != nil {
			lastErr = err
		}
	}
	l.closers = nil

	return lastErr
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}

// ParseLevel converts a string level to zapcore.Level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(level))
	return lvl, err
}

// EncoderConfig returns the encoder configuration shared by all cores
func EncoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		config := zap.NewDevelopmentEncoderConfig()
		config.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncodeTime = zapcore.ISO8601TimeEncoder
		return config
	}

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.TimeKey = "timestamp"
	config.MessageKey = "message"
	config.LevelKey = "level"
	config.CallerKey = "caller"
	config.StacktraceKey = "stacktrace"
	return config
}

// ConsoleCore creates the core used for console output
func ConsoleCore(cfg *Config, level zapcore.Level) zapcore.Core {
	encoderConfig := EncoderConfig(cfg.Development)

	var encoder zapcore.Encoder
	if cfg.Format == "console" || cfg.Development {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var w io.Writer = os.Stderr
	if cfg.Writer != nil {
		w = cfg.Writer
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(w), level)
}

func buildZapOptions(cfg *Config) []zap.Option {
	var opts []zap.Option

	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
		if cfg.CallerSkip > 0 {
			opts = append(opts, zap.AddCallerSkip(cfg.CallerSkip))
		}
	}

	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return opts
}
