// Package metrics is the OpenTelemetry-backed metrics/tracing facade (§2):
// spans around handler dispatch, request round-trips and provider calls, and
// counters for lag events, scale operations and timeouts.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "kairei"

// stdoutEndpoint is a sentinel otlpEndpoint value selecting the stdout
// exporter instead of a real OTLP/gRPC collector, for local debugging
// (e.g. running an agent outside a cluster with no collector listening).
const stdoutEndpoint = "stdout"

// Provider wires a tracer and meter for the rest of the module to record
// against. With no OTLP endpoint configured it falls back to the global
// no-op providers otel itself installs by default, matching the reference
// framework's pluggable telemetry (tracing works the same whether or not a
// collector is listening).
type Provider struct {
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	instruments    *Instruments
}

// New builds a Provider. An empty otlpEndpoint leaves tracing and metrics on
// the process-global no-op providers; "stdout" wires a pretty-printed stdout
// trace exporter for local debugging; any other value is treated as a real
// collector address and wires an OTLP/gRPC trace exporter.
func New(serviceName, otlpEndpoint string) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("metrics: service name is required")
	}

	p := &Provider{}

	switch otlpEndpoint {
	case "":
		p.tracer = otel.Tracer(meterName)
	case stdoutEndpoint:
		res := resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)

		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("metrics: creating stdout trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)

		p.tracerProvider = tp
		p.tracer = tp.Tracer(meterName)

		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		otel.SetMeterProvider(mp)
		p.meterProvider = mp
	default:
		res := resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)

		exporter, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(otlpEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("metrics: creating OTLP trace exporter: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)

		p.tracerProvider = tp
		p.tracer = tp.Tracer(meterName)

		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		otel.SetMeterProvider(mp)
		p.meterProvider = mp
	}

	instruments, err := newInstruments(otel.Meter(meterName))
	if err != nil {
		return nil, err
	}
	p.instruments = instruments

	return p, nil
}

// Tracer exposes the underlying tracer for ad-hoc spans.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Instruments exposes the domain-specific counters/histograms.
func (p *Provider) Instruments() *Instruments { return p.instruments }

// Shutdown flushes and releases any real SDK providers this Provider set up;
// it is a no-op when New was called with an empty endpoint.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
