package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the client metric instruments.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	batchSize       metric.Int64Histogram
	changesetCount  metric.Int64Counter
	errorCount      metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Instrument creation only fails for invalid names or options; fall back to
	// the bare instrument so recording never hits a nil interface.
	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"odata.client.request.duration",
		metric.WithDescription("Duration of OData requests sent by the client in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.requestDuration, _ = meter.Float64Histogram("odata.client.request.duration")
	}

	m.requestCount, err = meter.Int64Counter(
		"odata.client.request.count",
		metric.WithDescription("Total number of OData requests sent by the client"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.requestCount, _ = meter.Int64Counter("odata.client.request.count")
	}

	m.batchSize, err = meter.Int64Histogram(
		"odata.client.batch.size",
		metric.WithDescription("Number of operations in a batch request"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		m.batchSize, _ = meter.Int64Histogram("odata.client.batch.size")
	}

	m.changesetCount, err = meter.Int64Counter(
		"odata.client.changeset.count",
		metric.WithDescription("Number of changesets by outcome"),
		metric.WithUnit("{changeset}"),
	)
	if err != nil {
		m.changesetCount, _ = meter.Int64Counter("odata.client.changeset.count")
	}

	m.errorCount, err = meter.Int64Counter(
		"odata.client.error.count",
		metric.WithDescription("Total number of failed OData requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("odata.client.error.count")
	}

	return m
}

// RecordRequest records metrics for a completed request. statusCode is 0 when
// no response was received.
func (m *Metrics) RecordRequest(ctx context.Context, entitySet, operation string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		EntitySetAttr(entitySet),
		OperationAttr(operation),
		attribute.Int("http.status_code", statusCode),
	)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requestCount.Add(ctx, 1, attrs)
}

// RecordBatchSize records the number of operations in a batch request.
func (m *Metrics) RecordBatchSize(ctx context.Context, size int) {
	m.batchSize.Record(ctx, int64(size))
}

// RecordChangeset records the outcome of one changeset.
func (m *Metrics) RecordChangeset(ctx context.Context, success bool) {
	m.changesetCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrChangesetSuccess, success)))
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError(ctx context.Context, entitySet, operation, errorType string) {
	attrs := metric.WithAttributes(
		EntitySetAttr(entitySet),
		OperationAttr(operation),
		attribute.String("error.type", errorType),
	)
	m.errorCount.Add(ctx, 1, attrs)
}
