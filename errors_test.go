package odata

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		expectedMatch error
	}{
		{"EntityNotFound", ErrEntityNotFound, ErrEntityNotFound},
		{"ValidationError", ErrValidationError, ErrValidationError},
		{"Unauthorized", ErrUnauthorized, ErrUnauthorized},
		{"Forbidden", ErrForbidden, ErrForbidden},
		{"MethodNotAllowed", ErrMethodNotAllowed, ErrMethodNotAllowed},
		{"Conflict", ErrConflict, ErrConflict},
		{"PreconditionFailed", ErrPreconditionFailed, ErrPreconditionFailed},
		{"UnsupportedMediaType", ErrUnsupportedMediaType, ErrUnsupportedMediaType},
		{"InternalServerError", ErrInternalServerError, ErrInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.expectedMatch) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.expectedMatch)
			}
		})
	}
}

func TestODataError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ODataError
		expected string
	}{
		{
			name: "simple error",
			err: &ODataError{
				StatusCode: http.StatusNotFound,
				Code:       ErrorCodeNotFound,
				Message:    "Entity not found",
			},
			expected: "odata: 404 NotFound: Entity not found",
		},
		{
			name: "error with wrapped error",
			err: &ODataError{
				StatusCode: http.StatusInternalServerError,
				Code:       ErrorCodeInternalServerError,
				Message:    "Failed to process request",
				Err:        errors.New("connection reset"),
			},
			expected: "odata: 500 InternalServerError: Failed to process request: connection reset",
		},
		{
			name:     "status only",
			err:      &ODataError{StatusCode: http.StatusTeapot},
			expected: "odata: 418",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("ODataError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestODataError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	odataErr := &ODataError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeInternalServerError,
		Message:    "Something went wrong",
		Err:        underlyingErr,
	}

	if !errors.Is(odataErr, underlyingErr) {
		t.Error("errors.Is should find the underlying error")
	}
	if !errors.Is(odataErr, ErrInternalServerError) {
		t.Error("errors.Is should match the status sentinel")
	}
	if errors.Is(odataErr, ErrEntityNotFound) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}

	wrapped := fmt.Errorf("query failed: %w", odataErr)
	var target *ODataError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find *ODataError")
	}
	if target.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want %d", target.StatusCode, http.StatusInternalServerError)
	}
}

func TestMapHTTPStatusToError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusOK, nil},
		{http.StatusNoContent, nil},
		{http.StatusBadRequest, ErrValidationError},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrEntityNotFound},
		{http.StatusMethodNotAllowed, ErrMethodNotAllowed},
		{http.StatusConflict, ErrConflict},
		{http.StatusPreconditionFailed, ErrPreconditionFailed},
		{http.StatusUnsupportedMediaType, ErrUnsupportedMediaType},
		{http.StatusTeapot, nil},
		{http.StatusInternalServerError, ErrInternalServerError},
		{http.StatusServiceUnavailable, ErrInternalServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := MapHTTPStatusToError(tt.status); got != tt.want {
				t.Errorf("MapHTTPStatusToError(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestNewODataError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    ErrorCode
		wantMessage string
		wantTarget  string
		wantDetails int
	}{
		{
			name:        "standard payload",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":"InvalidFilter","message":"Unknown property","target":"$filter","details":[{"code":"E1","message":"Foo"}]}}`,
			wantCode:    "InvalidFilter",
			wantMessage: "Unknown property",
			wantTarget:  "$filter",
			wantDetails: 1,
		},
		{
			name:        "localized message",
			status:      http.StatusConflict,
			body:        `{"error":{"code":"Conflict","message":{"lang":"en","value":"Duplicate key"}}}`,
			wantCode:    ErrorCodeConflict,
			wantMessage: "Duplicate key",
		},
		{
			name:        "plain text body",
			status:      http.StatusServiceUnavailable,
			body:        "down for maintenance\n",
			wantCode:    ErrorCodeServiceUnavailable,
			wantMessage: "down for maintenance",
		},
		{
			name:        "empty body",
			status:      http.StatusNotFound,
			body:        "",
			wantCode:    ErrorCodeNotFound,
			wantMessage: "Not Found",
		},
		{
			name:        "payload without code",
			status:      http.StatusForbidden,
			body:        `{"error":{"message":"Nope"}}`,
			wantCode:    ErrorCodeForbidden,
			wantMessage: "Nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewODataError(tt.status, []byte(tt.body))
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
			if err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", err.Code, tt.wantCode)
			}
			if err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMessage)
			}
			if err.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", err.Target, tt.wantTarget)
			}
			if len(err.Details) != tt.wantDetails {
				t.Errorf("len(Details) = %d, want %d", len(err.Details), tt.wantDetails)
			}
			if string(err.Body) != tt.body {
				t.Errorf("Body = %q, want %q", err.Body, tt.body)
			}
		})
	}
}

func TestReexportedSentinels(t *testing.T) {
	_, err := Translate(Fn("soundex", Prop("Name")))
	if !errors.Is(err, ErrUnsupportedFunction) {
		t.Errorf("expected ErrUnsupportedFunction, got %v", err)
	}

	_, err = FormatKey(nil)
	if !errors.Is(err, ErrKeyFormat) {
		t.Errorf("expected ErrKeyFormat, got %v", err)
	}
	var keyErr *KeyFormatError
	if !errors.As(err, &keyErr) {
		t.Errorf("expected *KeyFormatError, got %T", err)
	}

	_, err = ParseFilter("Name eq")
	if !errors.Is(err, ErrInvalidFilterSyntax) {
		t.Errorf("expected ErrInvalidFilterSyntax, got %v", err)
	}

	_, err = Bind(Eq(Prop("Name"), Param("name")), nil)
	if !errors.Is(err, ErrUnboundParameter) {
		t.Errorf("expected ErrUnboundParameter, got %v", err)
	}
}
