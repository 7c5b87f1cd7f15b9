// Package telemetry ships log records to an OpenTelemetry collector and
// bridges them into zap.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/bravo68web/gitkit/internal/config"
	"github.com/bravo68web/gitkit/pkg/errors"
)

// ServiceVersion is reported on every exported record.
var ServiceVersion = "dev"

const shutdownTimeout = 5 * time.Second

// Provider owns the OTLP log pipeline
type Provider struct {
	config      config.TelemetryConfig
	logProvider *sdklog.LoggerProvider
	logger      log.Logger
	resource    *resource.Resource
}

// ProviderOption customises NewProvider
type ProviderOption func(*providerOptions)

type providerOptions struct {
	exporter     sdklog.Exporter
	batchTimeout time.Duration
}

// WithExporter replaces the OTLP exporter, e.g. with an in-memory one.
func WithExporter(exp sdklog.Exporter) ProviderOption {
	return func(o *providerOptions) {
		o.exporter = exp
	}
}

// WithBatchTimeout sets the export timeout of the batch processor
func WithBatchTimeout(d time.Duration) ProviderOption {
	return func(o *providerOptions) {
		o.batchTimeout = d
	}
}

// NewProvider builds the log pipeline described by cfg
func NewProvider(ctx context.Context, cfg config.TelemetryConfig, opts ...ProviderOption) (*Provider, error) {
	if !cfg.Enabled {
		return nil, errors.Wrap(errors.ErrConfigError, "telemetry is not enabled")
	}

	o := &providerOptions{batchTimeout: shutdownTimeout}
	for _, opt := range opts {
		opt(o)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
			attribute.String("component", "gitkit"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = createExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	}

	var batchOpts []sdklog.BatchProcessorOption
	if o.batchTimeout > 0 {
		batchOpts = append(batchOpts, sdklog.WithExportTimeout(o.batchTimeout))
	}

	logProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, batchOpts...)),
	)

	return &Provider{
		config:      cfg,
		logProvider: logProvider,
		logger:      logProvider.Logger(cfg.ServiceName),
		resource:    res,
	}, nil
}

func createExporter(ctx context.Context, cfg config.TelemetryConfig) (sdklog.Exporter, error) {
	if cfg.UseHTTP {
		return createHTTPExporter(ctx, cfg)
	}
	return createGRPCExporter(ctx, cfg)
}

func createGRPCExporter(ctx context.Context, cfg config.TelemetryConfig) (sdklog.Exporter, error) {
	if !cfg.Insecure {
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
		}
		return otlploggrpc.New(ctx, opts...)
	}

	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if len(cfg.Headers) > 0 {
		md := metadata.New(cfg.Headers)
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(
			func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
				return invoker(metadata.NewOutgoingContext(ctx, md), method, req, reply, cc, opts...)
			}))
	}
	conn, err := grpc.NewClient(cfg.Endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	return otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
}

func createHTTPExporter(ctx context.Context, cfg config.TelemetryConfig) (sdklog.Exporter, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
	}
	return otlploghttp.New(ctx, opts...)
}

// Logger returns the OTEL logger records are emitted to
func (p *Provider) Logger() log.Logger {
	return p.logger
}

// Resource returns the service resource attached to every record
func (p *Provider) Resource() *resource.Resource {
	return p.resource
}

// Shutdown flushes pending records and stops the exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.logProvider.Shutdown(ctx)
}

// ForceFlush exports every pending record
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.logProvider.ForceFlush(ctx)
}

// Close implements io.Closer so the provider can be handed to the logger
func (p *Provider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return p.Shutdown(ctx)
}

var _ io.Closer = (*Provider)(nil)
