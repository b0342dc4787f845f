package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	base, _ := bufferLogger()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
}

func TestWithImportRun(t *testing.T) {
	base, buf := bufferLogger()

	ctx, runLogger := WithImportRun(context.Background(), base, "run-1", "2025-01-15")
	assert.Equal(t, "run-1", GetImportRunID(ctx))
	assert.Equal(t, "2025-01-15", GetBusinessDate(ctx))

	runLogger.Info("Starting receipt import")
	assert.Contains(t, buf.String(), `"import_run_id":"run-1"`)
	assert.Contains(t, buf.String(), `"business_date":"2025-01-15"`)

	buf.Reset()
	L(ctx).Info("Headers merged")
	assert.Contains(t, buf.String(), `"import_run_id":"run-1"`)
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	base, buf := bufferLogger()

	ctx, _ := WithRequestID(context.Background(), base, "req-123")
	ctx = WithSubject(ctx, "ops@example.com")
	ctx = WithContext(ctx, base)

	L(ctx).Info("test message", zap.String("extra_field", "extra_value"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"subject":"ops@example.com"`)
	assert.Contains(t, out, `"extra_field":"extra_value"`)
	assert.NotContains(t, out, "trace_id")
}

func TestContextLogger_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "import_day")
	defer span.End()

	base, buf := bufferLogger()
	WithLogger(ctx, base).With(zap.Int("orders", 3)).Warn("Deleted orders extract failed")

	require.NotEmpty(t, GetTraceID(ctx))
	assert.Contains(t, buf.String(), `"trace_id":"`+GetTraceID(ctx)+`"`)
	assert.Contains(t, buf.String(), `"orders":3`)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("dropped")
		cl.With(zap.String("k", "v")).Error("dropped")
	})
	assert.NotNil(t, cl.Zap())
}
