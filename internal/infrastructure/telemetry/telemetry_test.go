package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitkit/internal/config"
	"github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/logger"
)

type memExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memExporter) Shutdown(context.Context) error   { return nil }
func (e *memExporter) ForceFlush(context.Context) error { return nil }

func (e *memExporter) snapshot() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

func attrs(r sdklog.Record) map[string]log.Value {
	out := make(map[string]log.Value)
	r.WalkAttributes(func(kv log.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func enabledTelemetry() config.TelemetryConfig {
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	return cfg
}

func TestNewProviderDisabled(t *testing.T) {
	_, err := NewProvider(context.Background(), config.Default().Telemetry)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigError)
}

func TestNewLoggerExportsRecords(t *testing.T) {
	exp := &memExporter{}
	var console bytes.Buffer

	l, err := NewLogger(context.Background(),
		config.LoggingConfig{Level: "info", Format: "json", Output: "otel"},
		enabledTelemetry(), &console, WithExporter(exp))
	require.NoError(t, err)

	l.Named("git").Info("process finished",
		logger.Command("git rev-parse HEAD"),
		logger.Int("exit_code", 0),
		logger.Duration("duration", 1500*time.Millisecond),
		logger.Bool("cached", true),
		zap.Float64("ratio", 0.5),
		zap.Namespace("repo"),
		logger.String("name", "demo"),
	)
	l.Debug("filtered out")
	require.NoError(t, l.Close())

	records := exp.snapshot()
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "process finished", r.Body().AsString())
	assert.Equal(t, log.SeverityInfo, r.Severity())

	a := attrs(r)
	assert.Equal(t, "git", a["logger"].AsString())
	assert.Equal(t, "git rev-parse HEAD", a["command"].AsString())
	assert.Equal(t, int64(0), a["exit_code"].AsInt64())
	assert.Equal(t, "1.5s", a["duration"].AsString())
	assert.True(t, a["cached"].AsBool())
	assert.Equal(t, 0.5, a["ratio"].AsFloat64())

	repo := a["repo"].AsMap()
	require.Len(t, repo, 1)
	assert.Equal(t, "name", repo[0].Key)
	assert.Equal(t, "demo", repo[0].Value.AsString())

	assert.Contains(t, console.String(), `"message":"process finished"`)
	assert.NotContains(t, console.String(), "filtered out")
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	l, err := NewLogger(context.Background(),
		config.LoggingConfig{Level: "debug", Format: "json", Output: "console"},
		config.Default().Telemetry, &console)
	require.NoError(t, err)

	l.Debug("hello", logger.Revision("main"))
	require.NoError(t, l.Sync())
	assert.Contains(t, console.String(), `"revision":"main"`)
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, err := NewLogger(context.Background(),
		config.LoggingConfig{Level: "loud", Output: "otel"},
		enabledTelemetry(), &bytes.Buffer{}, WithExporter(&memExporter{}))
	assert.Error(t, err)
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, log.SeverityDebug, severity(zapcore.DebugLevel))
	assert.Equal(t, log.SeverityWarn, severity(zapcore.WarnLevel))
	assert.Equal(t, log.SeverityError, severity(zapcore.DPanicLevel))
	assert.Equal(t, log.SeverityFatal, severity(zapcore.FatalLevel))
}
