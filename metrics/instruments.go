package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instruments caches the counters and histograms this module records
// against, following the reference framework's lazily-created-instrument
// cache pattern, minus the laziness: every instrument this module needs is
// known upfront, so they are all created once in newInstruments.
type Instruments struct {
	handlerDispatches metric.Int64Counter
	handlerErrors     metric.Int64Counter
	requestRoundtrips metric.Float64Histogram
	requestTimeouts   metric.Int64Counter
	providerCalls     metric.Int64Counter
	lagEvents         metric.Int64Counter
	scaleUps          metric.Int64Counter
	scaleDowns        metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*Instruments, error) {
	var err error
	in := &Instruments{}

	if in.handlerDispatches, err = meter.Int64Counter("kairei.agent.handler.dispatches"); err != nil {
		return nil, fmt.Errorf("metrics: creating handler dispatch counter: %w", err)
	}
	if in.handlerErrors, err = meter.Int64Counter("kairei.agent.handler.errors"); err != nil {
		return nil, fmt.Errorf("metrics: creating handler error counter: %w", err)
	}
	if in.requestRoundtrips, err = meter.Float64Histogram("kairei.request.roundtrip_ms"); err != nil {
		return nil, fmt.Errorf("metrics: creating request roundtrip histogram: %w", err)
	}
	if in.requestTimeouts, err = meter.Int64Counter("kairei.request.timeouts"); err != nil {
		return nil, fmt.Errorf("metrics: creating request timeout counter: %w", err)
	}
	if in.providerCalls, err = meter.Int64Counter("kairei.provider.calls"); err != nil {
		return nil, fmt.Errorf("metrics: creating provider call counter: %w", err)
	}
	if in.lagEvents, err = meter.Int64Counter("kairei.event_bus.lag_events"); err != nil {
		return nil, fmt.Errorf("metrics: creating lag event counter: %w", err)
	}
	if in.scaleUps, err = meter.Int64Counter("kairei.agent.scale_ups"); err != nil {
		return nil, fmt.Errorf("metrics: creating scale-up counter: %w", err)
	}
	if in.scaleDowns, err = meter.Int64Counter("kairei.agent.scale_downs"); err != nil {
		return nil, fmt.Errorf("metrics: creating scale-down counter: %w", err)
	}

	return in, nil
}

// RecordHandlerDispatch increments the handler-dispatch counter, tagged by
// agent name, section (observe/answer/react) and event name.
func (in *Instruments) RecordHandlerDispatch(ctx context.Context, agent, section, eventName string) {
	in.handlerDispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("section", section),
		attribute.String("event", eventName),
	))
}

// RecordHandlerError increments the handler-error counter.
func (in *Instruments) RecordHandlerError(ctx context.Context, agent, section, eventName string) {
	in.handlerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("section", section),
		attribute.String("event", eventName),
	))
}

// RecordRequestRoundtrip records a completed request's latency in
// milliseconds, tagged by requester/responder/request type and outcome.
func (in *Instruments) RecordRequestRoundtrip(ctx context.Context, requester, responder, requestType string, d time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	in.requestRoundtrips.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("requester", requester),
		attribute.String("responder", responder),
		attribute.String("request_type", requestType),
		attribute.String("status", status),
	))
}

// RecordRequestTimeout increments the request-timeout counter.
func (in *Instruments) RecordRequestTimeout(ctx context.Context, requester, responder, requestType string) {
	in.requestTimeouts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("requester", requester),
		attribute.String("responder", responder),
		attribute.String("request_type", requestType),
	))
}

// RecordProviderCall increments the provider-call counter, tagged by
// provider name and whether the call succeeded.
func (in *Instruments) RecordProviderCall(ctx context.Context, provider string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	in.providerCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordLagEvent adds the number of events the subscriber fell behind by to
// the event-bus lag counter.
func (in *Instruments) RecordLagEvent(ctx context.Context, dropped int) {
	in.lagEvents.Add(ctx, int64(dropped))
}

// RecordScaleUp increments the scale-up counter for a template.
func (in *Instruments) RecordScaleUp(ctx context.Context, template string, count int) {
	in.scaleUps.Add(ctx, int64(count), metric.WithAttributes(attribute.String("template", template)))
}

// RecordScaleDown increments the scale-down counter for a template.
func (in *Instruments) RecordScaleDown(ctx context.Context, template string, count int) {
	in.scaleDowns.Add(ctx, int64(count), metric.WithAttributes(attribute.String("template", template)))
}

// StartHandlerSpan starts a span around a single handler invocation.
func StartHandlerSpan(ctx context.Context, tracer trace.Tracer, agent, section, eventName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent.handler.dispatch", trace.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("section", section),
		attribute.String("event", eventName),
	))
}

// StartRequestSpan starts a span around a request/response round-trip.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, requester, responder, requestType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "request.roundtrip", trace.WithAttributes(
		attribute.String("requester", requester),
		attribute.String("responder", responder),
		attribute.String("request_type", requestType),
	))
}

// StartProviderSpan starts a span around a single provider.Execute call.
func StartProviderSpan(ctx context.Context, tracer trace.Tracer, provider string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "provider.execute", trace.WithAttributes(
		attribute.String("provider", provider),
	))
}
