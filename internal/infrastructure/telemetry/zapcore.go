package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// ZapCore is a zapcore.Core that emits entries as OpenTelemetry log records
type ZapCore struct {
	zapcore.LevelEnabler
	provider *Provider
	logger   log.Logger
	fields   []zapcore.Field
}

// NewZapCore creates a core exporting entries at or above level
func NewZapCore(provider *Provider, level zapcore.LevelEnabler) *ZapCore {
	return &ZapCore{
		LevelEnabler: level,
		provider:     provider,
		logger:       provider.Logger(),
	}
}

// NewCombinedCore tees local with an exporting core
func NewCombinedCore(local zapcore.Core, provider *Provider, level zapcore.LevelEnabler) zapcore.Core {
	return zapcore.NewTee(local, NewZapCore(provider, level))
}

// With implements zapcore.Core
func (c *ZapCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)

	return &ZapCore{
		LevelEnabler: c.LevelEnabler,
		provider:     c.provider,
		logger:       c.logger,
		fields:       merged,
	}
}

// Check implements zapcore.Core
func (c *ZapCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write implements zapcore.Core
func (c *ZapCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	var record log.Record
	record.SetTimestamp(entry.Time)
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(severity(entry.Level))
	record.SetSeverityText(entry.Level.String())
	record.SetBody(log.StringValue(entry.Message))

	attrs := make([]log.KeyValue, 0, len(enc.Fields)+4)
	if entry.LoggerName != "" {
		attrs = append(attrs, log.String("logger", entry.LoggerName))
	}
	if entry.Caller.Defined {
		attrs = append(attrs,
			log.String("code.filepath", entry.Caller.TrimmedPath()),
			log.String("code.function", entry.Caller.Function),
		)
	}
	if entry.Stack != "" {
		attrs = append(attrs, log.String("exception.stacktrace", entry.Stack))
	}
	attrs = append(attrs, keyValues(enc.Fields)...)
	record.AddAttributes(attrs...)

	c.logger.Emit(context.Background(), record)
	return nil
}

// Sync implements zapcore.Core
func (c *ZapCore) Sync() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return c.provider.ForceFlush(ctx)
}

var _ zapcore.Core = (*ZapCore)(nil)

func severity(level zapcore.Level) log.Severity {
	switch level {
	case zapcore.DebugLevel:
		return log.SeverityDebug
	case zapcore.InfoLevel:
		return log.SeverityInfo
	case zapcore.WarnLevel:
		return log.SeverityWarn
	case zapcore.ErrorLevel, zapcore.DPanicLevel:
		return log.SeverityError
	case zapcore.PanicLevel, zapcore.FatalLevel:
		return log.SeverityFatal
	default:
		return log.SeverityInfo
	}
}

// keyValues converts the output of a zapcore.MapObjectEncoder. Keys are
// sorted so records are deterministic.
func keyValues(m map[string]any) []log.KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]log.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, log.KeyValue{Key: k, Value: value(m[k])})
	}
	return kvs
}

func value(v any) log.Value {
	switch v := v.(type) {
	case string:
		return log.StringValue(v)
	case bool:
		return log.BoolValue(v)
	case int:
		return log.IntValue(v)
	case int8:
		return log.Int64Value(int64(v))
	case int16:
		return log.Int64Value(int64(v))
	case int32:
		return log.Int64Value(int64(v))
	case int64:
		return log.Int64Value(v)
	case uint8:
		return log.Int64Value(int64(v))
	case uint16:
		return log.Int64Value(int64(v))
	case uint32:
		return log.Int64Value(int64(v))
	case uint, uint64, uintptr:
		return log.StringValue(fmt.Sprint(v))
	case float32:
		return log.Float64Value(float64(v))
	case float64:
		return log.Float64Value(v)
	case time.Time:
		return log.StringValue(v.Format(time.RFC3339Nano))
	case time.Duration:
		return log.StringValue(v.String())
	case []byte:
		return log.BytesValue(v)
	case map[string]any:
		return log.MapValue(keyValues(v)...)
	case []any:
		vals := make([]log.Value, 0, len(v))
		for _, item := range v {
			vals = append(vals, value(item))
		}
		return log.SliceValue(vals...)
	case nil:
		return log.Value{}
	default:
		return log.StringValue(fmt.Sprintf("%v", v))
	}
}
