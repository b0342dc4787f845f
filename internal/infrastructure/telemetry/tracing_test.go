package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/restoledger/backend/internal/infrastructure/telemetry"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "receipt_import", "import_day",
		telemetry.WithAttribute(telemetry.SpanAttrBusinessDate, "2025-01-15"),
	)
	_, child := telemetry.StartSpan(ctx, "receipt_import.persist")
	child.End()
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "receipt_import.persist", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, "receipt_import.import_day", spans[1].Name())
	assert.Equal(t, "2025-01-15", attrMap(spans[1].Attributes())["business_date"].AsString())
}

func TestSetAttributesAndEvents(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "receipt_import.merge")
	telemetry.SetAttributes(span, "receipts_created", 3, 42, "skipped", "ratio", 0.5)
	telemetry.SetAttribute(span, "orders", []string{"42", "43"})
	telemetry.AddEvent(span, "source_backfilled", telemetry.SpanAttrOrderNum, "777")
	span.End()

	recorded := sr.Ended()[0]
	attrs := attrMap(recorded.Attributes())
	assert.Equal(t, int64(3), attrs["receipts_created"].AsInt64())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
	assert.Equal(t, []string{"42", "43"}, attrs["orders"].AsStringSlice())
	assert.NotContains(t, attrs, "skipped")

	require.Len(t, recorded.Events(), 1)
	assert.Equal(t, "source_backfilled", recorded.Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "receipt_import.query_headers")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("upstream unavailable"))
	span.End()

	recorded := sr.Ended()[0]
	assert.Equal(t, codes.Error, recorded.Status().Code)
	assert.Equal(t, "upstream unavailable", recorded.Status().Description)
	require.Len(t, recorded.Events(), 1)
}

func TestDisabledProvidersAreNoops(t *testing.T) {
	ctx := context.Background()
	p, err := telemetry.Setup(ctx, telemetry.Config{Enabled: false, ServiceName: "test"}, zapNop())
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.NotNil(t, p.Meter.Meter("test"))
	assert.NoError(t, p.Shutdown(ctx))
}
