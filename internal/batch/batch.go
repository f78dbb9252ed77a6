// Package batch encodes OData $batch requests as multipart/mixed bodies and
// decodes multipart batch responses into per-operation results.
package batch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nlstn/go-odata-client/internal/etag"
)

var (
	// ErrInvalidBatch is returned by Encode for operation lists that cannot form a batch
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrProtocol is wrapped by every ProtocolError
	ErrProtocol = errors.New("batch protocol error")

	// ErrNoResponse marks operations the service did not answer, typically because
	// it stopped processing after an earlier failure
	ErrNoResponse = errors.New("no response for operation")
)

// ProtocolError reports malformed multipart structure. Part is the zero-based
// index of the offending part within the multipart body delimited by Boundary,
// or -1 when the envelope itself is malformed.
type ProtocolError struct {
	Part     int
	Boundary string
	Expected string
	Found    string
}

func (e *ProtocolError) Error() string {
	where := "envelope"
	if e.Part >= 0 {
		where = fmt.Sprintf("part %d", e.Part)
	}
	if e.Boundary != "" {
		where += " of " + e.Boundary
	}
	return fmt.Sprintf("%s in %s: expected %s, found %s", ErrProtocol, where, e.Expected, e.Found)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

// Header is a single request header line
type Header struct {
	Name  string
	Value string
}

// Operation is one request of a batch. ID is the client correlation id and is
// sent as the part's Content-ID.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Headers     []Header
	Body        []byte
	ChangesetID string
}

// IfMatch returns a copy of op with an If-Match precondition. tag may be a
// bare value, a quoted or weak ETag as sent by the service, or "*".
func (op Operation) IfMatch(tag string) Operation {
	op.Headers = append(append([]Header(nil), op.Headers...), Header{Name: "If-Match", Value: etag.Format(tag)})
	return op
}

// Changeset groups operations that the service applies atomically
type Changeset struct {
	ID           string
	OperationIDs []string
}

// Response is the outcome of one operation
type Response struct {
	ID         string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	// Err is ErrNoResponse when the service sent nothing for the operation, or a
	// *ProtocolError when the embedded HTTP response could not be parsed.
	Err error
}

// Success reports whether the operation produced a status below 400.
func (r *Response) Success() bool {
	return r != nil && r.Err == nil && r.StatusCode > 0 && r.StatusCode < 400
}

// ETag returns the entity tag of the response, from the ETag header or the
// @odata.etag annotation of the body.
func (r *Response) ETag() (string, bool) {
	if r == nil {
		return "", false
	}
	return etag.FromResponse(r.Header, r.Body)
}

// Result holds the decoded responses in original operation order
type Result struct {
	Responses []*Response

	byID       map[string]*Response
	changesets map[string][]string
	csOrder    []string
}

// Get returns the response for an operation id.
func (r *Result) Get(id string) (*Response, bool) {
	resp, ok := r.byID[id]
	return resp, ok
}

// Changesets returns the changeset ids in encode order.
func (r *Result) Changesets() []string {
	return append([]string(nil), r.csOrder...)
}

// IsChangesetSuccessful reports whether every member of the changeset succeeded.
// The verdict is computed from the member responses only; unknown ids yield false.
func (r *Result) IsChangesetSuccessful(id string) bool {
	members, ok := r.changesets[id]
	if !ok || len(members) == 0 {
		return false
	}
	for _, opID := range members {
		if !r.byID[opID].Success() {
			return false
		}
	}
	return true
}

// Failed returns the responses that did not succeed, in operation order.
func (r *Result) Failed() []*Response {
	var failed []*Response
	for _, resp := range r.Responses {
		if !resp.Success() {
			failed = append(failed, resp)
		}
	}
	return failed
}
