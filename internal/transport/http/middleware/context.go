package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/logger"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// UserIDKey is the context key for authenticated user ID
	UserIDKey = "user_id"

	authContextKey    = "auth_context"
	requestContextKey = "request_context"
	scopeKey          = "geographic_scope"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext adds trace ID and request context to each request.
// When a span is already active its trace id is reused so logs and traces line up.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.TraceIDKey{}, traceID))

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}

// SetAuthContext stores a private copy of auth on the request.
func SetAuthContext(c *gin.Context, auth domain.AuthContext) {
	c.Set(authContextKey, auth.Clone())
	c.Set(UserIDKey, auth.UserID)
	if c.Request != nil {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.UserIDKey{}, auth.UserID))
	}
	if reqCtx, ok := c.Get(requestContextKey); ok {
		if rc, ok := reqCtx.(*RequestContext); ok {
			rc.UserID = auth.UserID
		}
	}
}

// GetAuthContext returns a copy of the authenticated identity. Callers may
// mutate the result freely.
func GetAuthContext(c *gin.Context) (domain.AuthContext, bool) {
	val, ok := c.Get(authContextKey)
	if !ok {
		return domain.AuthContext{}, false
	}
	auth, ok := val.(domain.AuthContext)
	if !ok {
		return domain.AuthContext{}, false
	}
	return auth.Clone(), true
}

// GetAuthenticatedUserID returns the authenticated user id, if any.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	if val, ok := c.Get(UserIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// GetGeographicScope returns the scope that RequireGeographicAccess admitted.
func GetGeographicScope(c *gin.Context) (domain.GeographicScope, bool) {
	val, ok := c.Get(scopeKey)
	if !ok {
		return domain.GeographicScope{}, false
	}
	scope, ok := val.(domain.GeographicScope)
	if !ok {
		return domain.GeographicScope{}, false
	}
	return scope.Clone(), true
}
