// Package observability provides OpenTelemetry-based instrumentation for the OData client.
//
// It supports distributed tracing, metrics collection, and enhanced structured logging.
//
// All observability features are opt-in. When not configured, no-op implementations
// are used with zero performance overhead.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-odata-client"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-odata-client"
)

// OData semantic attribute keys following OpenTelemetry conventions.
const (
	AttrEntitySet = "odata.entity_set"
	AttrOperation = "odata.operation"

	// Query option attributes
	AttrQueryFilter  = "odata.query.filter"
	AttrQueryExpand  = "odata.query.expand"
	AttrQuerySelect  = "odata.query.select"
	AttrQueryOrderBy = "odata.query.orderby"
	AttrQueryTop     = "odata.query.top"
	AttrQuerySkip    = "odata.query.skip"
	AttrQuerySearch  = "odata.query.search"
	AttrQueryApply   = "odata.query.apply"

	// Batch attributes
	AttrBatchSize        = "odata.batch.size"
	AttrChangesetCount   = "odata.batch.changeset_count"
	AttrChangesetID      = "odata.changeset.id"
	AttrChangesetSuccess = "odata.changeset.success"
	AttrFailedCount      = "odata.batch.failed_count"

	AttrErrorCode = "odata.error.code"
)

// Operation types for the odata.operation attribute.
const (
	OpQuery = "query"
	OpBatch = "batch"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldEntitySet = "odata.entity_set"
	LogFieldOperation = "odata.operation"
	LogFieldTraceID   = "trace_id"
	LogFieldSpanID    = "span_id"
	LogFieldURL       = "url"
	LogFieldStatus    = "status"
	LogFieldDuration  = "duration_ms"
	LogFieldBatchSize = "batch_size"
	LogFieldError     = "error"
)

// EntitySetAttr creates an attribute for the entity set name.
func EntitySetAttr(name string) attribute.KeyValue {
	return attribute.String(AttrEntitySet, name)
}

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// QueryFilterAttr creates an attribute for the $filter expression.
func QueryFilterAttr(filter string) attribute.KeyValue {
	return attribute.String(AttrQueryFilter, filter)
}

// QueryExpandAttr creates an attribute for the $expand expression.
func QueryExpandAttr(expand string) attribute.KeyValue {
	return attribute.String(AttrQueryExpand, expand)
}

// QuerySelectAttr creates an attribute for the $select expression.
func QuerySelectAttr(selectExpr string) attribute.KeyValue {
	return attribute.String(AttrQuerySelect, selectExpr)
}

// QueryOrderByAttr creates an attribute for the $orderby expression.
func QueryOrderByAttr(orderby string) attribute.KeyValue {
	return attribute.String(AttrQueryOrderBy, orderby)
}

// BatchSizeAttr creates an attribute for the number of operations in a batch.
func BatchSizeAttr(size int) attribute.KeyValue {
	return attribute.Int(AttrBatchSize, size)
}

// ChangesetCountAttr creates an attribute for the number of changesets in a batch.
func ChangesetCountAttr(count int) attribute.KeyValue {
	return attribute.Int(AttrChangesetCount, count)
}

// ErrorCodeAttr creates an attribute for the error code.
func ErrorCodeAttr(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}
