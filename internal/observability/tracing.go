package observability

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with client span helpers.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartQuery starts a client span for a query against entitySet.
func (t *Tracer) StartQuery(ctx context.Context, entitySet, method string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "odata.client.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			EntitySetAttr(entitySet),
			OperationAttr(OpQuery),
			attribute.String("http.method", method),
		))
}

// StartBatch starts a client span for a batch request.
func (t *Tracer) StartBatch(ctx context.Context, operationCount, changesetCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "odata.client.batch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			OperationAttr(OpBatch),
			BatchSizeAttr(operationCount),
			ChangesetCountAttr(changesetCount),
		))
}

// SetHTTPStatus sets the HTTP status code on the current span.
func (t *Tracer) SetHTTPStatus(ctx context.Context, statusCode int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	if statusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

// AddChangesetResult adds an event describing one changeset verdict.
func (t *Tracer) AddChangesetResult(span trace.Span, changesetID string, success bool) {
	span.AddEvent("odata.changeset", trace.WithAttributes(
		attribute.String(AttrChangesetID, changesetID),
		attribute.Bool(AttrChangesetSuccess, success),
	))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddQueryOptions adds the system query options of a request URL as span attributes.
func (t *Tracer) AddQueryOptions(span trace.Span, values url.Values) {
	var attrs []attribute.KeyValue
	if v := values.Get("$filter"); v != "" {
		attrs = append(attrs, QueryFilterAttr(v))
	}
	if v := values.Get("$expand"); v != "" {
		attrs = append(attrs, QueryExpandAttr(v))
	}
	if v := values.Get("$select"); v != "" {
		attrs = append(attrs, QuerySelectAttr(v))
	}
	if v := values.Get("$orderby"); v != "" {
		attrs = append(attrs, QueryOrderByAttr(v))
	}
	if n, err := strconv.Atoi(values.Get("$top")); err == nil {
		attrs = append(attrs, attribute.Int(AttrQueryTop, n))
	}
	if n, err := strconv.Atoi(values.Get("$skip")); err == nil {
		attrs = append(attrs, attribute.Int(AttrQuerySkip, n))
	}
	if v := values.Get("$search"); v != "" {
		attrs = append(attrs, attribute.String(AttrQuerySearch, v))
	}
	if v := values.Get("$apply"); v != "" {
		attrs = append(attrs, attribute.String(AttrQueryApply, v))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
