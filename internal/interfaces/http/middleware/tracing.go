package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/restoledger/backend/internal/infrastructure/logger"
)

// Tracing returns the otelgin server span middleware followed by one that
// tags the span with the request id and, once the chain returns, the
// authenticated subject. Register it after RequestID.
func Tracing(serviceName string, enabled bool) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), spanAttributes}
}

func spanAttributes(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	if id := GetRequestID(c); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}

	c.Next()

	if subject := logger.GetSubject(c.Request.Context()); subject != "" {
		span.SetAttributes(attribute.String("subject", subject))
	}
}
