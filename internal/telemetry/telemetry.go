// Package telemetry provides OpenTelemetry instrumentation for cirrus.
package telemetry

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/yairfalse/cirrus/internal/config"
)

const instrumentationName = "github.com/yairfalse/cirrus"

// Provider wraps OTEL tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	registry promclient.Registerer

	// Metrics
	requestDuration metric.Float64Histogram
	requestFaults   metric.Int64Counter
}

// Option configures a Provider.
type Option func(*Provider)

// WithPrometheus adds a pull reader that registers with reg.
func WithPrometheus(reg promclient.Registerer) Option {
	return func(p *Provider) {
		p.registry = reg
	}
}

// NewProvider creates a new telemetry provider.
func NewProvider(ctx context.Context, cfg config.OTELConfig, opts ...Option) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res); err != nil {
		if p.tracerProvider != nil {
			_ = p.tracerProvider.Shutdown(ctx)
		}
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate)
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer(instrumentationName)

	return nil
}

func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	if p.registry != nil {
		exp, err := prometheus.New(prometheus.WithRegisterer(p.registry))
		if err != nil {
			return fmt.Errorf("create prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exp))
	}

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter(instrumentationName)

	return nil
}

// transportCredentials picks the gRPC credentials for the OTLP exporters.
func transportCredentials(cfg config.OTELConfig) (credentials.TransportCredentials, error) {
	switch {
	case cfg.Insecure:
		return insecure.NewCredentials(), nil
	case cfg.CAFile != "":
		creds, err := credentials.NewClientTLSFromFile(cfg.CAFile, "")
		if err != nil {
			return nil, fmt.Errorf("load ca file: %w", err)
		}
		return creds, nil
	default:
		return credentials.NewTLS(nil), nil
	}
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	creds, err := transportCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTLSCredentials(creds),
	)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	creds, err := transportCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTLSCredentials(creds),
	)
}

func (p *Provider) initMetrics() error {
	var err error

	p.requestDuration, err = p.meter.Float64Histogram(
		"cirrus_request_duration_seconds",
		metric.WithDescription("Duration of Query API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create request_duration: %w", err)
	}

	p.requestFaults, err = p.meter.Int64Counter(
		"cirrus_request_faults_total",
		metric.WithDescription("Total Query API requests that failed"),
	)
	if err != nil {
		return fmt.Errorf("create request_faults: %w", err)
	}

	return nil
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}

// RecordRequest records the duration of one request.
func (p *Provider) RecordRequest(ctx context.Context, service, action string, d time.Duration) {
	p.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("action", action),
	))
}

// RecordFault records a failed request.
func (p *Provider) RecordFault(ctx context.Context, service, action, code string) {
	p.requestFaults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("action", action),
		attribute.String("code", code),
	))
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
