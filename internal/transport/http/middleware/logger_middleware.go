package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/bravo68web/gitkit/pkg/logger"
)

const (
	requestIDKey = "request_id"
	traceIDKey   = "trace_id"
	spanIDKey    = "span_id"
)

// LoggerConfig holds configuration for the logging middleware
type LoggerConfig struct {
	// Logger is the logger instance to use
	Logger *logger.Logger

	// SkipPaths are paths that should not be logged
	SkipPaths []string

	// SkipPathPrefixes are path prefixes that should not be logged
	SkipPathPrefixes []string

	// TraceIDHeader is the header name for trace ID (for external trace propagation)
	TraceIDHeader string

	// RequestIDHeader is the header name for request ID
	RequestIDHeader string
}

// DefaultLoggerConfig returns a default middleware configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		SkipPaths:       []string{"/health", "/healthz"},
		TraceIDHeader:   "X-Trace-ID",
		RequestIDHeader: "X-Request-ID",
	}
}

// LoggerMiddleware returns a Gin middleware for logging HTTP requests
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	cfg := DefaultLoggerConfig()
	cfg.Logger = log
	return LoggerMiddlewareWithConfig(cfg)
}

// LoggerMiddlewareWithConfig returns a Gin middleware with custom configuration
func LoggerMiddlewareWithConfig(cfg *LoggerConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	skipPaths := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(cfg.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(cfg.RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)

		traceID := c.GetHeader(cfg.TraceIDHeader)
		spanID := ""
		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
			spanID = sc.SpanID().String()
		}
		if traceID != "" {
			c.Header(cfg.TraceIDHeader, traceID)
			c.Set(traceIDKey, traceID)
		}
		if spanID != "" {
			c.Set(spanIDKey, spanID)
		}

		c.Next()

		if skip(path, skipPaths, cfg.SkipPathPrefixes) {
			return
		}

		log := cfg.Logger
		if log == nil {
			log = logger.Get()
		}

		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []logger.Field{
			logger.RequestID(requestID),
			logger.Method(c.Request.Method),
			logger.Path(path),
			logger.Query(c.Request.URL.RawQuery),
			logger.StatusCode(status),
			logger.Latency(latency),
			logger.ClientIP(c.ClientIP()),
			logger.UserAgent(c.Request.UserAgent()),
			logger.BodySize(c.Writer.Size()),
		}
		if traceID != "" {
			fields = append(fields, logger.TraceID(traceID))
		}
		if spanID != "" {
			fields = append(fields, logger.SpanID(spanID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.Strings("errors", c.Errors.Errors()))
		}

		msg := "HTTP Request"
		switch {
		case status >= 500:
			log.Error(msg, fields...)
		case status >= 400:
			log.Warn(msg, fields...)
		default:
			log.Info(msg, fields...)
		}
	}
}

func skip(path string, paths map[string]struct{}, prefixes []string) bool {
	if _, ok := paths[path]; ok {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// GetRequestID retrieves the request ID from the gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetTraceID retrieves the trace ID from the gin context
func GetTraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// GetSpanID retrieves the span ID from the gin context
func GetSpanID(c *gin.Context) string {
	return c.GetString(spanIDKey)
}
