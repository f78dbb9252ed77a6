package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithServiceName("test-client"),
		WithQueryOptionTracing(),
	)

	if cfg.ServiceName != "test-client" {
		t.Errorf("expected service name 'test-client', got '%s'", cfg.ServiceName)
	}
	if !cfg.QueryOptionTracingEnabled() {
		t.Error("expected query option tracing to be enabled")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.ServiceName != "odata-client" {
		t.Errorf("expected default service name 'odata-client', got '%s'", cfg.ServiceName)
	}
	if cfg.QueryOptionTracingEnabled() {
		t.Error("query option tracing should be off by default")
	}
}

func TestConfigInitialize(t *testing.T) {
	tp := tracenoop.NewTracerProvider()
	mp := noop.NewMeterProvider()

	cfg := NewConfig(
		WithTracerProvider(tp),
		WithMeterProvider(mp),
		WithServiceName("test-client"),
	)

	err := cfg.Initialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Tracer() == nil {
		t.Error("expected tracer to be initialized")
	}
	if cfg.Metrics() == nil {
		t.Error("expected metrics to be initialized")
	}
}

func TestConfigInitializeNoProviders(t *testing.T) {
	cfg := NewConfig(WithServiceName("test-client"))

	err := cfg.Initialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should get noop implementations
	if cfg.Tracer() == nil {
		t.Error("expected noop tracer to be returned")
	}
	if cfg.Metrics() == nil {
		t.Error("expected noop metrics to be returned")
	}
}

func TestIsEnabled(t *testing.T) {
	var nilCfg *Config
	if nilCfg.IsEnabled() {
		t.Error("nil config should not be enabled")
	}
	if nilCfg.QueryOptionTracingEnabled() {
		t.Error("nil config should not trace query options")
	}

	if NewConfig().IsEnabled() {
		t.Error("config without providers should not be enabled")
	}

	if !NewConfig(WithTracerProvider(tracenoop.NewTracerProvider())).IsEnabled() {
		t.Error("config with tracer provider should be enabled")
	}
	if !NewConfig(WithMeterProvider(noop.NewMeterProvider())).IsEnabled() {
		t.Error("config with meter provider should be enabled")
	}
}

func TestNoopMetrics(t *testing.T) {
	metrics := NewNoopMetrics()

	ctx := context.Background()

	// Test various record methods don't panic
	metrics.RecordRequest(ctx, "Products", OpQuery, 200, time.Second)
	metrics.RecordRequest(ctx, "", OpBatch, 0, time.Millisecond)
	metrics.RecordBatchSize(ctx, 5)
	metrics.RecordChangeset(ctx, true)
	metrics.RecordChangeset(ctx, false)
	metrics.RecordError(ctx, "Products", OpQuery, "transport")
}

func TestNewMetrics(t *testing.T) {
	metrics := NewMetrics(noop.NewMeterProvider())
	if metrics == nil {
		t.Fatal("NewMetrics() should return non-nil metrics")
	}

	ctx := context.Background()
	metrics.RecordRequest(ctx, "Products", OpQuery, 404, 10*time.Millisecond)
	metrics.RecordError(ctx, "Products", OpQuery, "not_found")
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name string
		key  string
		got  string
		want string
	}{
		{"entity set", string(EntitySetAttr("Products").Key), EntitySetAttr("Products").Value.AsString(), "Products"},
		{"operation", string(OperationAttr(OpBatch).Key), OperationAttr(OpBatch).Value.AsString(), "batch"},
		{"filter", string(QueryFilterAttr("Price gt 5").Key), QueryFilterAttr("Price gt 5").Value.AsString(), "Price gt 5"},
		{"error code", string(ErrorCodeAttr("E1").Key), ErrorCodeAttr("E1").Value.AsString(), "E1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == "" {
				t.Error("attribute key should not be empty")
			}
			if tt.got != tt.want {
				t.Errorf("value = %q, want %q", tt.got, tt.want)
			}
		})
	}

	if BatchSizeAttr(3).Value.AsInt64() != 3 {
		t.Error("BatchSizeAttr should carry the size")
	}
	if ChangesetCountAttr(2).Key != AttrChangesetCount {
		t.Errorf("ChangesetCountAttr key = %q", ChangesetCountAttr(2).Key)
	}
}

func TestTracerRecordError(t *testing.T) {
	tracer := NewNoopTracer()
	_, span := tracer.StartSpan(context.Background(), "test")
	defer span.End()

	// Should not panic with nil or real errors
	tracer.RecordError(span, nil)
	tracer.RecordError(span, errors.New("boom"))
}
