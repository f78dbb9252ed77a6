// Package odata is a client core for OData V4 services. It translates
// predicate trees and query options into request URLs, formats entity keys,
// and encodes and decodes multipart $batch requests.
package odata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/go-odata-client/internal/batch"
	"github.com/nlstn/go-odata-client/internal/etag"
	"github.com/nlstn/go-odata-client/internal/observability"
	"github.com/nlstn/go-odata-client/internal/preference"
	"github.com/nlstn/go-odata-client/internal/query"
	"github.com/nlstn/go-odata-client/internal/version"
)

// ProtocolVersion is an OData protocol version such as 4.0 or 4.01.
type ProtocolVersion = version.Version

// Protocol versions a client can request.
var (
	Version40  = version.V40
	Version401 = version.V401
)

// ErrUnsupportedVersion is returned when the service answers with an OData
// version newer than requested or outside major version 4.
var ErrUnsupportedVersion = version.ErrUnsupportedVersion

// Preference is a set of Prefer header preferences; see Options.Prefer.
type Preference = preference.Preference

// Values for Preference.Return.
const (
	ReturnRepresentation = preference.ReturnRepresentation
	ReturnMinimal        = preference.ReturnMinimal
)

// ClientConfig controls optional client behaviours.
type ClientConfig struct {
	// Transport performs the HTTP exchange. Defaults to an HTTPTransport built
	// from HTTPClient and Retry.
	Transport Transport

	// HTTPClient is used by the default transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Retry configures the default transport. Nil disables retries.
	Retry *RetryConfig

	// Headers are added to every request.
	Headers map[string]string

	// MaxVersion is sent as OData-MaxVersion; responses claiming a newer
	// version are rejected. Defaults to 4.0.
	MaxVersion ProtocolVersion

	// LiteralFormatter controls literal rendering in filters and keys.
	LiteralFormatter LiteralFormatter

	// BatchOptions configure the codec used by ExecuteBatch.
	BatchOptions []BatchOption

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// ObservabilityConfig configures OpenTelemetry instrumentation for a client.
type ObservabilityConfig struct {
	// TracerProvider is the OpenTelemetry tracer provider. Nil disables tracing.
	TracerProvider trace.TracerProvider

	// MeterProvider is the OpenTelemetry meter provider. Nil disables metrics.
	MeterProvider metric.MeterProvider

	// ServiceName identifies the calling application.
	ServiceName string

	// ServiceVersion is the version of the calling application.
	ServiceVersion string

	// EnableQueryOptionTracing records $filter, $select and friends as span attributes.
	EnableQueryOptionTracing bool
}

// Client sends queries and batches to one OData service.
type Client struct {
	serviceURL    string
	transport     Transport
	headers       map[string]string
	maxVersion    version.Version
	translator    query.Translator
	codec         *batch.Codec
	logger        *slog.Logger
	observability *observability.Config
}

// Response is a non-batch service response with a success status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Version is the protocol version the service answered with.
	Version ProtocolVersion
}

// ETag returns the entity tag from the ETag header or the @odata.etag
// annotation of the body.
func (r *Response) ETag() (string, bool) {
	return etag.FromResponse(r.Header, r.Body)
}

// PreferenceApplied returns the preferences the service honored.
func (r *Response) PreferenceApplied() Preference {
	return preference.Applied(r.Header)
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("odata: failed to decode response: %w", err)
	}
	return nil
}

// collectionPayload is the JSON envelope of a collection response
type collectionPayload struct {
	Context  string          `json:"@odata.context"`
	Count    *int64          `json:"@odata.count"`
	NextLink string          `json:"@odata.nextLink"`
	Value    json.RawMessage `json:"value"`
}

// Collection holds the control information of a collection response.
type Collection struct {
	Context  string
	Count    *int64
	NextLink string
}

// DecodeCollection unmarshals the value array of a collection response into v
// and returns its control information.
func (r *Response) DecodeCollection(v interface{}) (*Collection, error) {
	var payload collectionPayload
	if err := json.Unmarshal(r.Body, &payload); err != nil {
		return nil, fmt.Errorf("odata: failed to decode collection: %w", err)
	}
	if payload.Value == nil {
		return nil, fmt.Errorf("odata: response has no value array")
	}
	if err := json.Unmarshal(payload.Value, v); err != nil {
		return nil, fmt.Errorf("odata: failed to decode collection value: %w", err)
	}
	return &Collection{Context: payload.Context, Count: payload.Count, NextLink: payload.NextLink}, nil
}

// NewClient creates a client for the service root URL.
func NewClient(serviceURL string) (*Client, error) {
	return NewClientWithConfig(serviceURL, ClientConfig{})
}

// NewClientWithConfig creates a client with additional configuration.
func NewClientWithConfig(serviceURL string, cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("odata: invalid service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("odata: service URL must be http or https, got %q", serviceURL)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(cfg.HTTPClient, cfg.Retry)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxVersion := cfg.MaxVersion
	if maxVersion == (version.Version{}) {
		maxVersion = version.V40
	}
	if maxVersion.Major != 4 {
		return nil, fmt.Errorf("%w: cannot request %s", ErrUnsupportedVersion, maxVersion)
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	batchOpts := append([]BatchOption{batch.WithLiteralFormatter(cfg.LiteralFormatter)}, cfg.BatchOptions...)
	return &Client{
		serviceURL: strings.TrimSuffix(serviceURL, "/"),
		transport:  transport,
		headers:    headers,
		maxVersion: maxVersion,
		translator: query.Translator{Formatter: cfg.LiteralFormatter},
		codec:      batch.NewCodec(batchOpts...),
		logger:     logger,
	}, nil
}

// SetLogger sets the logger for the client.
// If not called, slog.Default() is used.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
	if t, ok := c.transport.(*HTTPTransport); ok {
		t.SetLogger(logger)
	}
}

// SetObservability enables tracing and metrics for queries and batches.
func (c *Client) SetObservability(cfg ObservabilityConfig) error {
	opts := []observability.Option{
		observability.WithTracerProvider(cfg.TracerProvider),
		observability.WithMeterProvider(cfg.MeterProvider),
	}
	if cfg.ServiceName != "" {
		opts = append(opts, observability.WithServiceName(cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		opts = append(opts, observability.WithServiceVersion(cfg.ServiceVersion))
	}
	if cfg.EnableQueryOptionTracing {
		opts = append(opts, observability.WithQueryOptionTracing())
	}

	obs := observability.NewConfig(opts...)
	if err := obs.Initialize(); err != nil {
		return fmt.Errorf("odata: failed to initialize observability: %w", err)
	}
	c.observability = obs
	return nil
}

// Observability returns the observability configuration, or nil if
// SetObservability was never called.
func (c *Client) Observability() *observability.Config {
	return c.observability
}

// Codec returns the batch codec used by ExecuteBatch. Its operation helpers
// build keys with the client's literal style.
func (c *Client) Codec() *BatchCodec {
	return c.codec
}

// NewOptions returns an empty option set that renders literals the way this
// client is configured to.
func (c *Client) NewOptions() *Options {
	return query.NewOptions().WithTranslator(c.translator)
}

// ServiceURL returns the service root without a trailing slash.
func (c *Client) ServiceURL() string {
	return c.serviceURL
}

// BuildURL returns the absolute URL for entitySet with opts applied.
// opts may be nil.
func (c *Client) BuildURL(entitySet string, opts *Options) (string, error) {
	if strings.TrimSpace(entitySet) == "" {
		return "", fmt.Errorf("%w: empty entity set", ErrInvalidQueryOption)
	}
	if opts == nil {
		opts = c.NewOptions()
	}
	rel, err := opts.BuildURL(entitySet)
	if err != nil {
		return "", err
	}
	return c.serviceURL + "/" + rel, nil
}

func (c *Client) baseHeader() http.Header {
	h := make(http.Header)
	h.Set("OData-Version", version.V40.String())
	h.Set("OData-MaxVersion", c.maxVersion.String())
	h.Set("Accept", "application/json")
	for k, v := range c.headers {
		h.Set(k, v)
	}
	return h
}

// Query sends a GET for entitySet with opts applied. Non-success statuses are
// returned as *ODataError.
func (c *Client) Query(ctx context.Context, entitySet string, opts *Options) (*Response, error) {
	u, err := c.BuildURL(entitySet, opts)
	if err != nil {
		return nil, err
	}

	header := c.baseHeader()
	if opts != nil {
		for _, h := range opts.Headers() {
			header.Add(h.Name, h.Value)
		}
	}

	tracer := c.observability.Tracer()
	metrics := c.observability.Metrics()
	ctx, span := tracer.StartQuery(ctx, entitySet, http.MethodGet)
	defer span.End()
	if opts != nil && c.observability.QueryOptionTracingEnabled() {
		if values, err := opts.Values(); err == nil {
			tracer.AddQueryOptions(span, values)
		}
	}

	logger := observability.LoggerWithTrace(ctx, c.logger)
	start := time.Now()
	resp, err := c.transport.Send(ctx, http.MethodGet, u, header, nil)
	duration := time.Since(start)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.RecordError(ctx, entitySet, observability.OpQuery, "transport")
		logger.Debug("OData query failed", observability.LogFieldURL, u, observability.LogFieldError, err)
		return nil, err
	}

	tracer.SetHTTPStatus(ctx, resp.StatusCode)
	metrics.RecordRequest(ctx, entitySet, observability.OpQuery, resp.StatusCode, duration)
	logger.Debug("OData query",
		observability.LogFieldURL, u,
		observability.LogFieldStatus, resp.StatusCode,
		observability.LogFieldDuration, duration.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		odataErr := NewODataError(resp.StatusCode, resp.Body)
		span.SetAttributes(observability.ErrorCodeAttr(string(odataErr.Code)))
		metrics.RecordError(ctx, entitySet, observability.OpQuery, string(odataErr.Code))
		return nil, odataErr
	}
	v, err := version.CheckResponse(resp.Header.Get("OData-Version"), c.maxVersion)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body, Version: v}, nil
}

// ExecuteBatch encodes ops and changesets, posts them to the service's $batch
// endpoint and correlates the multipart response. A non-success status on the
// batch request itself is returned as *ODataError; per-operation failures are
// reported in the result.
func (c *Client) ExecuteBatch(ctx context.Context, ops []Operation, changesets []Changeset) (*BatchResult, error) {
	env, err := c.codec.Encode(ops, changesets)
	if err != nil {
		return nil, err
	}

	tracer := c.observability.Tracer()
	metrics := c.observability.Metrics()
	ctx, span := tracer.StartBatch(ctx, len(ops), len(changesets))
	defer span.End()
	metrics.RecordBatchSize(ctx, len(ops))

	header := c.baseHeader()
	for name, values := range env.Header() {
		header[name] = values
	}

	if readOnlyBatch(ops) {
		ctx = withReadOnly(ctx)
	}
	u := c.serviceURL + "/$batch"
	logger := observability.LoggerWithTrace(ctx, c.logger)
	start := time.Now()
	resp, err := c.transport.Send(ctx, http.MethodPost, u, header, env.Body)
	duration := time.Since(start)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.RecordError(ctx, "", observability.OpBatch, "transport")
		return nil, err
	}

	tracer.SetHTTPStatus(ctx, resp.StatusCode)
	metrics.RecordRequest(ctx, "", observability.OpBatch, resp.StatusCode, duration)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		odataErr := NewODataError(resp.StatusCode, resp.Body)
		metrics.RecordError(ctx, "", observability.OpBatch, string(odataErr.Code))
		return nil, odataErr
	}

	result, err := c.codec.Decode(env, resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.RecordError(ctx, "", observability.OpBatch, "protocol")
		return nil, err
	}

	for _, id := range result.Changesets() {
		ok := result.IsChangesetSuccessful(id)
		tracer.AddChangesetResult(span, id, ok)
		metrics.RecordChangeset(ctx, ok)
	}
	failed := result.Failed()
	logger.Debug("OData batch",
		observability.LogFieldURL, u,
		observability.LogFieldStatus, resp.StatusCode,
		observability.LogFieldBatchSize, len(ops),
		observability.LogFieldDuration, duration.Milliseconds(),
		"failed", len(failed))
	return result, nil
}

// readOnlyBatch reports whether every operation of a batch is a GET.
// Changesets never contain GETs, so such a batch changes nothing.
func readOnlyBatch(ops []Operation) bool {
	for _, op := range ops {
		if !strings.EqualFold(op.Method, http.MethodGet) {
			return false
		}
	}
	return len(ops) > 0
}
