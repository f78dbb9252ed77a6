package odata

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func lines(l ...string) string {
	return strings.Join(l, "\r\n") + "\r\n"
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com/odata")
	assert.Error(t, err)

	_, err = NewClient("://bad")
	assert.Error(t, err)
}

func TestClientBuildURL(t *testing.T) {
	c, err := NewClient("https://example.com/odata/")
	require.NoError(t, err)

	u, err := c.BuildURL("Products", c.NewOptions().
		Filter(Gt(Prop("Price"), 100)).
		Select("Name", "Price").
		Top(5))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/odata/Products?$filter=Price%20gt%20100&$select=Name,Price&$top=5", u)

	u, err = c.BuildURL("Products", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/odata/Products", u)

	_, err = c.BuildURL(" ", nil)
	assert.ErrorIs(t, err, ErrInvalidQueryOption)

	_, err = c.BuildURL("Products", c.NewOptions().Top(-1))
	assert.ErrorIs(t, err, ErrInvalidQueryOption)
}

func TestClientNewOptionsUsesLiteralFormatter(t *testing.T) {
	c, err := NewClientWithConfig("https://example.com/odata", ClientConfig{
		LiteralFormatter: LiteralFormatter{BareGUIDs: true},
	})
	require.NoError(t, err)

	u, err := c.BuildURL("Devices", c.NewOptions().Key(uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/odata/Devices(0f8fad5b-d9cb-469f-a165-70867728950e)", u)
}

func TestClientQuery(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"@odata.context":"$metadata#Products","@odata.count":2,"value":[{"Name":"A"},{"Name":"B"}]}`)
	}))
	defer server.Close()

	c, err := NewClientWithConfig(server.URL, ClientConfig{Headers: map[string]string{"X-Tenant": "acme"}})
	require.NoError(t, err)

	resp, err := c.Query(context.Background(), "Products", c.NewOptions().
		Filter(Eq(Prop("Category"), "Tools")).
		Count().
		Header("Prefer", "odata.maxpagesize=50"))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/Products", got.URL.Path)
	assert.Equal(t, "Category eq 'Tools'", got.URL.Query().Get("$filter"))
	assert.Equal(t, "true", got.URL.Query().Get("$count"))
	assert.Equal(t, "4.0", got.Header.Get("OData-Version"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "acme", got.Header.Get("X-Tenant"))
	assert.Equal(t, "odata.maxpagesize=50", got.Header.Get("Prefer"))

	var products []struct{ Name string }
	coll, err := resp.DecodeCollection(&products)
	require.NoError(t, err)
	require.NotNil(t, coll.Count)
	assert.EqualValues(t, 2, *coll.Count)
	assert.Equal(t, "$metadata#Products", coll.Context)
	assert.Len(t, products, 2)
	assert.Equal(t, "B", products[1].Name)
}

func TestClientQueryErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"NotFound","message":"No such product","target":"Products(9)"}}`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "Products", c.NewOptions().Key(9))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	var odataErr *ODataError
	require.True(t, errors.As(err, &odataErr))
	assert.Equal(t, "No such product", odataErr.Message)
	assert.Equal(t, "Products(9)", odataErr.Target)
}

func TestClientQueryLogsWithObservability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"value":[]}`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)
	assert.Nil(t, c.Observability())

	require.NoError(t, c.SetObservability(ObservabilityConfig{
		TracerProvider:           tracenoop.NewTracerProvider(),
		MeterProvider:            metricnoop.NewMeterProvider(),
		ServiceName:              "test-client",
		EnableQueryOptionTracing: true,
	}))
	require.NotNil(t, c.Observability())
	assert.True(t, c.Observability().IsEnabled())

	var buf bytes.Buffer
	c.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	_, err = c.Query(context.Background(), "Products", c.NewOptions().Select("Name"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "OData query")
	assert.Contains(t, buf.String(), "status=200")
}

func TestClientExecuteBatch(t *testing.T) {
	response := lines(
		"--batchresponse_1",
		"Content-Type: application/http",
		"Content-ID: 1",
		"",
		"HTTP/1.1 200 OK",
		"Content-Type: application/json",
		"",
		`{"Name":"Alfreds"}`,
		"--batchresponse_1",
		"Content-Type: multipart/mixed; boundary=changesetresponse_1",
		"",
		"--changesetresponse_1",
		"Content-Type: application/http",
		"Content-ID: 2",
		"",
		"HTTP/1.1 201 Created",
		"",
		`{"OrderId":1}`,
		"--changesetresponse_1",
		"Content-Type: application/http",
		"Content-ID: 3",
		"",
		"HTTP/1.1 204 No Content",
		"",
		"",
		"--changesetresponse_1--",
		"--batchresponse_1--",
	)

	var gotContentType, gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "multipart/mixed; boundary=batchresponse_1")
		_, _ = io.WriteString(w, response)
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	get, err := c.Codec().GetEntity("1", "Customers", "ALFKI")
	require.NoError(t, err)
	create := c.Codec().Create("2", "Orders", []byte(`{"Total":10}`))
	update, err := c.Codec().Update("3", "Customers", "ALFKI", []byte(`{"Name":"Alfreds"}`))
	require.NoError(t, err)

	result, err := c.ExecuteBatch(context.Background(),
		[]Operation{get, create, update},
		[]Changeset{{ID: "cs1", OperationIDs: []string{"2", "3"}}})
	require.NoError(t, err)

	assert.Equal(t, "/$batch", gotPath)
	assert.True(t, strings.HasPrefix(gotContentType, "multipart/mixed; boundary="))
	assert.Contains(t, string(gotBody), "GET Customers('ALFKI') HTTP/1.1")

	require.Len(t, result.Responses, 3)
	first, ok := result.Get("1")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.JSONEq(t, `{"Name":"Alfreds"}`, string(first.Body))
	assert.True(t, result.IsChangesetSuccessful("cs1"))
	assert.Empty(t, result.Failed())
}

func TestClientExecuteBatchRejectedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"BadRequest","message":{"lang":"en","value":"Malformed batch"}}}`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.ExecuteBatch(context.Background(), []Operation{{ID: "1", Method: "GET", Path: "People"}}, nil)
	assert.ErrorIs(t, err, ErrValidationError)

	var odataErr *ODataError
	require.True(t, errors.As(err, &odataErr))
	assert.Equal(t, "Malformed batch", odataErr.Message)
}

func TestClientExecuteBatchInvalidOperations(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.ExecuteBatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidBatch)
	assert.Zero(t, calls)
}

func TestClientExecuteBatchProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/mixed; boundary=b")
		_, _ = io.WriteString(w, "no multipart here")
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.ExecuteBatch(context.Background(), []Operation{{ID: "1", Method: "GET", Path: "People"}}, nil)
	assert.ErrorIs(t, err, ErrProtocol)

	var protoErr *ProtocolError
	assert.True(t, errors.As(err, &protoErr))
}

func TestClientExecuteBatchRetriesOnlyReadOnlyBatches(t *testing.T) {
	tests := []struct {
		name       string
		ops        []Operation
		changesets []Changeset
		wantCalls  int32
	}{
		{
			name:      "reads only",
			ops:       []Operation{{ID: "1", Method: "GET", Path: "People"}, {ID: "2", Method: "get", Path: "Airlines"}},
			wantCalls: 4,
		},
		{
			name:      "standalone write",
			ops:       []Operation{{ID: "1", Method: "GET", Path: "People"}, {ID: "2", Method: "DELETE", Path: "People(1)"}},
			wantCalls: 1,
		},
		{
			name:       "changeset",
			ops:        []Operation{{ID: "1", Method: "POST", Path: "People", ChangesetID: "cs1"}},
			changesets: []Changeset{{ID: "cs1", OperationIDs: []string{"1"}}},
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer server.Close()

			transport := NewHTTPTransport(server.Client(), DefaultRetryConfig())
			noSleep(transport)
			c, err := NewClientWithConfig(server.URL, ClientConfig{Transport: transport})
			require.NoError(t, err)

			_, err = c.ExecuteBatch(context.Background(), tt.ops, tt.changesets)
			assert.ErrorIs(t, err, ErrInternalServerError)
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClientPreferencesAndVersion(t *testing.T) {
	var gotPrefer, gotMaxVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotMaxVersion = r.Header.Get("OData-MaxVersion")
		w.Header().Set("OData-Version", "4.01")
		w.Header().Set("Preference-Applied", "odata.maxpagesize=20")
		_, _ = io.WriteString(w, `{"value":[]}`)
	}))
	defer server.Close()

	c, err := NewClientWithConfig(server.URL, ClientConfig{MaxVersion: Version401})
	require.NoError(t, err)

	resp, err := c.Query(context.Background(), "Products", c.NewOptions().
		Prefer(Preference{MaxPageSize: 20, Return: ReturnMinimal}))
	require.NoError(t, err)
	assert.Equal(t, "return=minimal, odata.maxpagesize=20", gotPrefer)
	assert.Equal(t, "4.01", gotMaxVersion)
	assert.Equal(t, Version401, resp.Version)
	assert.Equal(t, 20, resp.PreferenceApplied().MaxPageSize)
}

func TestClientRejectsNewerVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("OData-Version", "4.01")
		_, _ = io.WriteString(w, `{"value":[]}`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "Products", nil)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = NewClientWithConfig(server.URL, ClientConfig{MaxVersion: ProtocolVersion{Major: 3}})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
