package batch

import (
	"github.com/nlstn/go-odata-client/internal/edm"
	"github.com/nlstn/go-odata-client/internal/keys"
)

// BoundaryFunc returns a multipart boundary for the given prefix ("batch" or
// "changeset").
type BoundaryFunc func(prefix string) string

// Option configures a Codec
type Option func(*Codec)

// WithBoundaryFunc replaces the random boundary generator.
func WithBoundaryFunc(fn BoundaryFunc) Option {
	return func(c *Codec) {
		if fn != nil {
			c.boundary = fn
		}
	}
}

// WithContentBoundaries derives boundaries from a hash of the operations so
// that identical batches encode to identical bytes.
func WithContentBoundaries() Option {
	return func(c *Codec) {
		c.contentBoundaries = true
	}
}

// WithContinueOnError asks the service to keep processing after a failed
// operation (Prefer: odata.continue-on-error).
func WithContinueOnError() Option {
	return func(c *Codec) {
		c.continueOnError = true
	}
}

// WithPerOperationErrors keeps decoding when an embedded response is
// malformed and reports the *ProtocolError on that operation's Response.
// Usually combined with WithContinueOnError.
func WithPerOperationErrors() Option {
	return func(c *Codec) {
		c.perOperationErrors = true
	}
}

// WithLiteralFormatter sets the literal style used for keys built by the
// operation helpers.
func WithLiteralFormatter(f edm.Formatter) Option {
	return func(c *Codec) {
		c.keys = keys.Formatter{Literals: f}
	}
}

// Codec encodes and decodes multipart batches. A Codec holds only
// configuration and may be shared.
type Codec struct {
	boundary           BoundaryFunc
	contentBoundaries  bool
	continueOnError    bool
	perOperationErrors bool
	keys               keys.Formatter
}

// NewCodec creates a codec with the given options
func NewCodec(opts ...Option) *Codec {
	c := &Codec{boundary: randomBoundary}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
