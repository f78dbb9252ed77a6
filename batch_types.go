package odata

import (
	"github.com/nlstn/go-odata-client/internal/batch"
)

// Operation is one request of a batch. ID is echoed back by the service as the
// part's Content-ID and is how results are looked up.
//
// Example:
//
//	ops := []odata.Operation{
//	    {ID: "1", Method: "GET", Path: "Customers('ALFKI')"},
//	    {ID: "2", Method: "POST", Path: "Orders", Body: body, ChangesetID: "cs1"},
//	}
type Operation = batch.Operation

// Changeset groups operations the service applies atomically.
type Changeset = batch.Changeset

// BatchHeader is a request header of a batch operation.
type BatchHeader = batch.Header

// BatchResponse is the outcome of one batch operation.
type BatchResponse = batch.Response

// BatchResult holds the decoded responses of a batch, in request order.
type BatchResult = batch.Result

// BatchEnvelope is an encoded batch request body plus the bookkeeping needed
// to decode its response.
type BatchEnvelope = batch.Envelope

// BatchCodec encodes batch requests and decodes batch responses without
// performing any I/O.
type BatchCodec = batch.Codec

// BatchOption configures a BatchCodec.
type BatchOption = batch.Option

// BoundaryFunc returns a multipart boundary for a prefix.
type BoundaryFunc = batch.BoundaryFunc

// NewBatchCodec creates a codec for offline encoding and decoding.
func NewBatchCodec(opts ...BatchOption) *BatchCodec { return batch.NewCodec(opts...) }

// WithBoundaryFunc replaces the random boundary generator.
func WithBoundaryFunc(fn BoundaryFunc) BatchOption { return batch.WithBoundaryFunc(fn) }

// WithContentBoundaries derives boundaries from the batch content, so that
// identical batches encode to identical bytes.
func WithContentBoundaries() BatchOption { return batch.WithContentBoundaries() }

// WithContinueOnError asks the service to keep going after a failed operation.
func WithContinueOnError() BatchOption { return batch.WithContinueOnError() }

// WithPerOperationErrors reports a malformed embedded response on its
// operation instead of failing the whole decode.
func WithPerOperationErrors() BatchOption { return batch.WithPerOperationErrors() }

// WithLiteralFormatter sets the literal style of keys built by the codec's
// operation helpers.
func WithLiteralFormatter(f LiteralFormatter) BatchOption { return batch.WithLiteralFormatter(f) }
