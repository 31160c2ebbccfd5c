package middleware

import (
	"github.com/gin-gonic/gin"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing names the server span after the matched route and stamps the
// route and response status on it. The span itself is opened by the
// otelhttp handler wrapping the engine, so requests that miss every route
// keep its generic name.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if route := c.FullPath(); route != "" {
				span.SetName(c.Request.Method + " " + route)
				span.SetAttributes(semconv.HTTPRoute(route))
			}
		}

		c.Next()

		if span.IsRecording() {
			span.SetAttributes(semconv.HTTPResponseStatusCode(c.Writer.Status()))
		}
	}
}
