package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/docfill-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// Caller ids end up in the session action log, so only short opaque tokens
// are accepted.
var callerID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// AttachTraceContext assigns the request and trace ids that the action log
// and the request logger record. A span started by otelgin wins over a
// caller supplied trace id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := acceptID(c.GetHeader(headerRequestID))
		traceID := ""
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
			traceID = spanCtx.TraceID().String()
		}
		if traceID == "" {
			traceID = acceptID(c.GetHeader(headerTraceID))
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func acceptID(raw string) string {
	if id := strings.TrimSpace(raw); callerID.MatchString(id) {
		return id
	}
	return uuid.NewString()
}
