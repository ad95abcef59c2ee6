// Package observability exposes OpenTelemetry instruments through the
// Prometheus exporter, so they are served on the same /metrics endpoint.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	eventCounter  otelmetric.Int64Counter
}

// New registers an OpenTelemetry meter provider backed by the Prometheus exporter.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o, err := newWithMeter(provider.Meter(serviceName))
	if err != nil {
		return nil, err
	}
	o.meterProvider = provider
	return o, nil
}

// NewNoop returns instruments that record nothing.
func NewNoop() *Observability {
	o, _ := newWithMeter(noop.NewMeterProvider().Meter("noop"))
	return o
}

func newWithMeter(meter otelmetric.Meter) (*Observability, error) {
	jobCounter, err := meter.Int64Counter(
		"pipeline.jobs.processed",
		otelmetric.WithDescription("Zeebe jobs processed by pipeline workers"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"pipeline.jobs.duration",
		otelmetric.WithDescription("Zeebe job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	eventCounter, err := meter.Int64Counter(
		"pipeline.events.published",
		otelmetric.WithDescription("Pipeline events handed to a sink"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		jobCounter:   jobCounter,
		jobDuration:  jobDuration,
		eventCounter: eventCounter,
	}, nil
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// RecordEventPublished counts one event delivery attempt per sink.
func (o *Observability) RecordEventPublished(ctx context.Context, sink, eventType string, ok bool) {
	o.eventCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("event_type", eventType),
		attribute.Bool("ok", ok),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
