package config

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/version"
)

type (
	Telemetry struct {
		meterProvider  *sdkmetric.MeterProvider
		tracerProvider *sdktrace.TracerProvider
	}
	TelemetryOption func(*telemetryConfig)

	telemetryConfig struct {
		endpoint string
		stdout   bool
		writer   io.Writer
		interval time.Duration
	}
)

// WithTelemetryWriter sends stdout exporter output to w
func WithTelemetryWriter(w io.Writer) TelemetryOption {
	return func(c *telemetryConfig) {
		c.writer = w
	}
}

func WithExportInterval(d time.Duration) TelemetryOption {
	return func(c *telemetryConfig) {
		c.interval = d
	}
}

// SetupTelemetry installs global meter and tracer providers. Data is sent
// to TelemetryEndpoint via OTLP/gRPC or printed if TelemetryStdout is set.
func SetupTelemetry(ctx context.Context, opts ...TelemetryOption) (*Telemetry, error) {
	cfg := &telemetryConfig{
		endpoint: TelemetryEndpoint,
		stdout:   TelemetryStdout,
		writer:   os.Stdout,
		interval: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", "cpr"),
			attribute.String("service.version", version.Version),
		))
	if err != nil {
		return nil, err
	}
	metricExporter, traceExporter, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ret := &Telemetry{
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
				sdkmetric.WithInterval(cfg.interval))),
		),
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(traceExporter),
		),
	}
	otel.SetMeterProvider(ret.meterProvider)
	otel.SetTracerProvider(ret.tracerProvider)
	log.Debug("Telemetry enabled",
		log.String("endpoint", cfg.endpoint), log.Bool("stdout", cfg.stdout))
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func newExporters(ctx context.Context, cfg *telemetryConfig) (
	sdkmetric.Exporter, sdktrace.SpanExporter, error,
) {
	if cfg.stdout {
		me, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.writer))
		if err != nil {
			return nil, nil, err
		}
		te, err := stdouttrace.New(stdouttrace.WithWriter(cfg.writer))
		if err != nil {
			return nil, nil, err
		}
		return me, te, nil
	}
	me, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.endpoint),
		otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	te, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}
	return me, te, nil
}

// Shutdown flushes pending telemetry data
func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
	); err != nil {
		log.Warn("telemetry shutdown failed", log.ErrorField(err))
	}
}
