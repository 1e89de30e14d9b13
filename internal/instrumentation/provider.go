package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider owns the meter and tracer providers and the calendar metrics
// recorded through them. A disabled Provider hands out no-op Metrics.
type Provider struct {
	enabled    bool
	prometheus bool
	meters     *metric.MeterProvider
	tracers    *sdktrace.TracerProvider
	metrics    *Metrics
}

// NewProvider builds the exporters selected by config and installs the
// providers globally.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{metrics: &Metrics{}}, nil
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	reader, err := newMetricReader(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}
	p := &Provider{
		enabled:    true,
		prometheus: config.MetricsExporter == ExporterPrometheus,
		meters:     metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)),
	}

	p.tracers, err = newTracerProvider(ctx, config, res)
	if err != nil {
		if shutdownErr := p.meters.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to shutdown meter provider during cleanup: %w", shutdownErr))
		}
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	otel.SetMeterProvider(p.meters)
	otel.SetTracerProvider(p.tracers)

	p.metrics, err = NewMetrics(p.meters.Meter(config.ServiceName), config.DetailedLabels)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	return p, nil
}

// newResource describes this process; the instance id defaults to the
// hostname.
func newResource(ctx context.Context, config Config) (*resource.Resource, error) {
	instance := config.ServiceInstanceID
	if instance == "" {
		instance, _ = os.Hostname()
	}

	attrs := []resource.Option{resource.WithAttributes(
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	)}
	if instance != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceInstanceID(instance)))
	}
	return resource.New(ctx, attrs...)
}

func newMetricReader(ctx context.Context, config Config) (metric.Reader, error) {
	switch config.MetricsExporter {
	case ExporterPrometheus:
		// registers with the default Prometheus registry served by the metrics server
		reader, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		return reader, nil

	case ExporterOTLP:
		if config.OTLPEndpoint == "" {
			return nil, fmt.Errorf("OTLP endpoint is required for OTLP metrics exporter; set OTEL_EXPORTER_OTLP_ENDPOINT or use 'prometheus' exporter")
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter), nil

	case ExporterStdout:
		warnDevelopmentExporter("metrics")
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		return metric.NewPeriodicReader(exporter), nil
	}
	return nil, fmt.Errorf("unsupported metrics exporter: %s", config.MetricsExporter)
}

func newTracerProvider(ctx context.Context, config Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if config.TracingExporter == ExporterNone {
		return sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		), nil
	}

	var exporter sdktrace.SpanExporter
	switch config.TracingExporter {
	case ExporterOTLP:
		if config.OTLPEndpoint == "" {
			return nil, fmt.Errorf("OTLP endpoint is required for OTLP tracing exporter")
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPEndpoint)}
		if config.OTLPInsecure {
			slog.Warn("OTLP insecure transport enabled, use only for development",
				"component", "instrumentation",
				"endpoint", config.OTLPEndpoint,
			)
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		e, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		exporter = e

	case ExporterStdout:
		warnDevelopmentExporter("traces")
		e, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		exporter = e

	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", config.TracingExporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.TraceSamplingRate))),
	), nil
}

func warnDevelopmentExporter(signal string) {
	slog.Warn("stdout "+signal+" exporter enabled, for development only",
		"component", "instrumentation",
		"exporter", ExporterStdout,
	)
}

// Metrics returns the calendar metrics recorder.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// PrometheusEnabled reports whether metrics are exported through the
// default Prometheus registry, served by the metrics server.
func (p *Provider) PrometheusEnabled() bool {
	return p.prometheus
}

// Enabled returns true if instrumentation is enabled.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Shutdown flushes pending telemetry.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	var errs []error
	if p.meters != nil {
		if err := p.meters.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if p.tracers != nil {
		if err := p.tracers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
