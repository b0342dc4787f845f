package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	LoggerKey       contextKey = "logger"
	RequestIDKey    contextKey = "request_id"
	ImportRunIDKey  contextKey = "import_run_id"
	BusinessDateKey contextKey = "business_date"
	SubjectKey      contextKey = "subject"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, a no-op logger if absent
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithImportRun tags the context with one day-import run.
// Every entry logged through the returned logger or L(ctx) carries both fields.
func WithImportRun(ctx context.Context, logger *zap.Logger, runID, businessDate string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, ImportRunIDKey, runID)
	ctx = context.WithValue(ctx, BusinessDateKey, businessDate)
	enriched := logger.With(
		zap.String("import_run_id", runID),
		zap.String("business_date", businessDate),
	)
	return WithContext(ctx, enriched), enriched
}

// WithSubject records the authenticated admin subject
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func GetRequestID(ctx context.Context) string    { return stringValue(ctx, RequestIDKey) }
func GetImportRunID(ctx context.Context) string  { return stringValue(ctx, ImportRunIDKey) }
func GetBusinessDate(ctx context.Context) string { return stringValue(ctx, BusinessDateKey) }
func GetSubject(ctx context.Context) string      { return stringValue(ctx, SubjectKey) }

// GetTraceID extracts the trace ID of the active span, empty without one
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// ContextLogger injects trace and run correlation fields into every entry.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger for ctx.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
//
// Injected when present: trace_id, span_id, request_id, subject.
// import_run_id and business_date travel on the logger stored by WithImportRun.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger backed by logger instead of the one in ctx
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) enrichedLogger() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(correlationFields(cl.ctx, false)...)
}

// correlationFields collects the context fields a log entry should carry.
// withRun adds the import run fields for loggers that were not built by WithImportRun.
func correlationFields(ctx context.Context, withRun bool) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := GetSubject(ctx); v != "" {
		fields = append(fields, zap.String("subject", v))
	}
	if withRun {
		if v := GetImportRunID(ctx); v != "" {
			fields = append(fields, zap.String("import_run_id", v))
		}
		if v := GetBusinessDate(ctx); v != "" {
			fields = append(fields, zap.String("business_date", v))
		}
	}
	return fields
}

// With creates a child ContextLogger with additional fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	return &ContextLogger{ctx: cl.ctx, logger: l.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Debug(msg, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Info(msg, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Warn(msg, fields...)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrichedLogger().Error(msg, fields...)
}

// Zap returns the underlying zap.Logger enriched with the context fields.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrichedLogger()
}
