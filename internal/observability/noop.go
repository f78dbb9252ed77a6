package observability

import (
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *Tracer {
	return &Tracer{
		tracer:      tracenoop.NewTracerProvider().Tracer(""),
		serviceName: "",
	}
}

// NewNoopMetrics creates metrics that do nothing.
func NewNoopMetrics() *Metrics {
	meter := noop.NewMeterProvider().Meter("")
	m := &Metrics{}

	m.requestDuration, _ = meter.Float64Histogram("odata.client.request.duration") //nolint:errcheck
	m.requestCount, _ = meter.Int64Counter("odata.client.request.count")           //nolint:errcheck
	m.batchSize, _ = meter.Int64Histogram("odata.client.batch.size")               //nolint:errcheck
	m.changesetCount, _ = meter.Int64Counter("odata.client.changeset.count")       //nolint:errcheck
	m.errorCount, _ = meter.Int64Counter("odata.client.error.count")               //nolint:errcheck

	return m
}
