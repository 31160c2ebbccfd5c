package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the trace identifier between services.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace identifier.
	TraceIDKey = "trace_id"
	// ActorIDKey is the gin context key holding the authenticated user ID.
	ActorIDKey = "actor_id"

	requestMetaKey = "request_meta"
)

// RequestMeta captures the request attribution recorded alongside audit
// entries: who acted, from where, with what client.
type RequestMeta struct {
	TraceID   string
	ActorID   string
	IP        string
	UserAgent string
}

// EnrichContext assigns a trace identifier and collects request attribution
// for downstream handlers.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestMetaKey, &RequestMeta{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace identifier assigned to this request.
func GetTraceID(c *gin.Context) string {
	if value, exists := c.Get(TraceIDKey); exists {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestMeta returns the request attribution, never nil.
func GetRequestMeta(c *gin.Context) *RequestMeta {
	if value, exists := c.Get(requestMetaKey); exists {
		if meta, ok := value.(*RequestMeta); ok {
			return meta
		}
	}
	return &RequestMeta{}
}
