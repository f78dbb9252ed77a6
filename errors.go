package odata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nlstn/go-odata-client/internal/batch"
	"github.com/nlstn/go-odata-client/internal/edm"
	"github.com/nlstn/go-odata-client/internal/keys"
	"github.com/nlstn/go-odata-client/internal/query"
)

// Sentinel errors raised while building requests and decoding batches.
// These can be used with errors.Is() for error handling.
var (
	// ErrUnsupportedExpressionShape indicates a predicate tree that has no $filter rendering.
	ErrUnsupportedExpressionShape = query.ErrUnsupportedExpressionShape

	// ErrUnsupportedFunction indicates a call to a function outside the canonical set.
	ErrUnsupportedFunction = query.ErrUnsupportedFunction

	// ErrUnsupportedLiteralType indicates a value that cannot be rendered as an EDM literal.
	ErrUnsupportedLiteralType = edm.ErrUnsupportedLiteralType

	// ErrInvalidQueryOption indicates an invalid value passed to an Options builder method.
	ErrInvalidQueryOption = query.ErrInvalidQueryOption

	// ErrInvalidFilterSyntax indicates a textual filter that could not be parsed.
	ErrInvalidFilterSyntax = query.ErrInvalidFilterSyntax

	// ErrUnboundParameter indicates a placeholder without a value at Bind time.
	ErrUnboundParameter = query.ErrUnboundParameter

	// ErrKeyFormat indicates an entity key that cannot be rendered.
	ErrKeyFormat = keys.ErrKeyFormat

	// ErrInvalidBatch indicates operations that cannot form a batch request.
	ErrInvalidBatch = batch.ErrInvalidBatch

	// ErrProtocol indicates a malformed multipart batch response.
	ErrProtocol = batch.ErrProtocol

	// ErrNoResponse marks a batch operation the service did not answer.
	ErrNoResponse = batch.ErrNoResponse
)

// Sentinel errors for service responses. An *ODataError matches the sentinel
// for its status code with errors.Is().
var (
	// ErrEntityNotFound indicates the requested entity does not exist.
	// Maps to HTTP 404 Not Found.
	ErrEntityNotFound = errors.New("odata: entity not found")

	// ErrValidationError indicates the service rejected the request data.
	// Maps to HTTP 400 Bad Request.
	ErrValidationError = errors.New("odata: validation error")

	// ErrUnauthorized indicates the request lacks valid authentication.
	// Maps to HTTP 401 Unauthorized.
	ErrUnauthorized = errors.New("odata: unauthorized")

	// ErrForbidden indicates the authenticated user lacks permission.
	// Maps to HTTP 403 Forbidden.
	ErrForbidden = errors.New("odata: forbidden")

	// ErrMethodNotAllowed indicates the operation is not supported for the resource.
	// Maps to HTTP 405 Method Not Allowed.
	ErrMethodNotAllowed = errors.New("odata: method not allowed")

	// ErrConflict indicates a conflict with the current state.
	// Maps to HTTP 409 Conflict.
	ErrConflict = errors.New("odata: conflict")

	// ErrPreconditionFailed indicates an ETag precondition check failed.
	// Maps to HTTP 412 Precondition Failed.
	ErrPreconditionFailed = errors.New("odata: precondition failed")

	// ErrUnsupportedMediaType indicates the request content type is not supported.
	// Maps to HTTP 415 Unsupported Media Type.
	ErrUnsupportedMediaType = errors.New("odata: unsupported media type")

	// ErrInternalServerError indicates a server side failure.
	// Maps to HTTP 500 and any other 5xx status.
	ErrInternalServerError = errors.New("odata: internal server error")
)

// TranslationError reports the predicate node that could not be translated.
type TranslationError = query.TranslationError

// KeyFormatError reports an entity key that could not be rendered.
type KeyFormatError = keys.KeyFormatError

// ProtocolError reports malformed multipart structure in a batch response.
type ProtocolError = batch.ProtocolError

// ErrorCode represents an OData error code as sent by the service.
type ErrorCode string

// Standard OData error codes.
const (
	ErrorCodeGeneral              ErrorCode = "General"
	ErrorCodeNotFound             ErrorCode = "NotFound"
	ErrorCodeBadRequest           ErrorCode = "BadRequest"
	ErrorCodeUnauthorized         ErrorCode = "Unauthorized"
	ErrorCodeForbidden            ErrorCode = "Forbidden"
	ErrorCodeMethodNotAllowed     ErrorCode = "MethodNotAllowed"
	ErrorCodeConflict             ErrorCode = "Conflict"
	ErrorCodePreconditionFailed   ErrorCode = "PreconditionFailed"
	ErrorCodeUnsupportedMediaType ErrorCode = "UnsupportedMediaType"
	ErrorCodeInternalServerError  ErrorCode = "InternalServerError"
	ErrorCodeNotImplemented       ErrorCode = "NotImplemented"
	ErrorCodeServiceUnavailable   ErrorCode = "ServiceUnavailable"
)

// ODataError is returned for non-success service responses. Fields are filled
// from the OData JSON error payload when the body carries one.
//
// Example:
//
//	resp, err := client.Query(ctx, "Products", opts)
//	var odataErr *odata.ODataError
//	if errors.As(err, &odataErr) && errors.Is(err, odata.ErrEntityNotFound) {
//	    log.Printf("missing: %s (%s)", odataErr.Message, odataErr.Target)
//	}
type ODataError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Code is the OData error code, or a code derived from the status when the
	// body carried none.
	Code ErrorCode

	// Message is a human-readable error description.
	Message string

	// Target optionally identifies the part of the request that caused the error.
	Target string

	// Details provides additional error information.
	Details []ErrorDetail

	// Body is the raw response body.
	Body []byte

	// Err is the underlying error, if any.
	Err error
}

// ErrorDetail represents additional error information in an OData error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ODataError) Error() string {
	msg := fmt.Sprintf("odata: %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + string(e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is() and errors.As().
func (e *ODataError) Unwrap() error {
	return e.Err
}

// Is matches the status sentinel for the error's status code.
func (e *ODataError) Is(target error) bool {
	sentinel := MapHTTPStatusToError(e.StatusCode)
	return sentinel != nil && sentinel == target
}

// MapHTTPStatusToError returns the sentinel error for a status code, or nil
// for success codes and statuses without a sentinel.
//
// Example usage:
//
//	if errors.Is(odata.MapHTTPStatusToError(resp.StatusCode), odata.ErrEntityNotFound) {
//	    return nil
//	}
func MapHTTPStatusToError(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrEntityNotFound
	case http.StatusBadRequest:
		return ErrValidationError
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusMethodNotAllowed:
		return ErrMethodNotAllowed
	case http.StatusConflict:
		return ErrConflict
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	case http.StatusUnsupportedMediaType:
		return ErrUnsupportedMediaType
	}
	if status >= 500 {
		return ErrInternalServerError
	}
	return nil
}

// errorCodeForStatus derives an error code when the payload has none.
func errorCodeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case http.StatusForbidden:
		return ErrorCodeForbidden
	case http.StatusMethodNotAllowed:
		return ErrorCodeMethodNotAllowed
	case http.StatusConflict:
		return ErrorCodeConflict
	case http.StatusPreconditionFailed:
		return ErrorCodePreconditionFailed
	case http.StatusUnsupportedMediaType:
		return ErrorCodeUnsupportedMediaType
	case http.StatusNotImplemented:
		return ErrorCodeNotImplemented
	case http.StatusServiceUnavailable:
		return ErrorCodeServiceUnavailable
	}
	if status >= 500 {
		return ErrorCodeInternalServerError
	}
	return ErrorCodeGeneral
}

// errorPayload is the OData JSON error format
//
//	{"error": {"code": "...", "message": "...", "target": "...", "details": [...]}}
//
// Some V4 services send message as {"lang": "en", "value": "..."}.
type errorPayload struct {
	Error struct {
		Code    string          `json:"code"`
		Message json.RawMessage `json:"message"`
		Target  string          `json:"target"`
		Details []ErrorDetail   `json:"details"`
	} `json:"error"`
}

// NewODataError builds an *ODataError from a service response. body is parsed
// as an OData JSON error when possible and kept verbatim otherwise.
func NewODataError(statusCode int, body []byte) *ODataError {
	e := &ODataError{
		StatusCode: statusCode,
		Code:       errorCodeForStatus(statusCode),
		Message:    http.StatusText(statusCode),
		Body:       body,
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
			e.Message = text
		}
		return e
	}

	if payload.Error.Code != "" {
		e.Code = ErrorCode(payload.Error.Code)
	}
	if msg := errorMessage(payload.Error.Message); msg != "" {
		e.Message = msg
	}
	e.Target = payload.Error.Target
	e.Details = payload.Error.Details
	return e
}

func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var localized struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &localized); err == nil {
		return localized.Value
	}
	return ""
}
