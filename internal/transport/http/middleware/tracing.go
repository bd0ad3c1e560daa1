package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingOptions customises the tracing middleware.
type TracingOptions struct {
	ServiceName    string
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	// SkipPaths are served without a span (health checks and scrapes).
	SkipPaths []string
}

// Tracing starts a server span per request. It must run before EnrichContext
// so the trace id header matches the span.
func Tracing(opts TracingOptions) gin.HandlerFunc {
	options := make([]otelgin.Option, 0, 3)
	if opts.TracerProvider != nil {
		options = append(options, otelgin.WithTracerProvider(opts.TracerProvider))
	}
	if opts.Propagators != nil {
		options = append(options, otelgin.WithPropagators(opts.Propagators))
	}
	if len(opts.SkipPaths) > 0 {
		skip := make(map[string]struct{}, len(opts.SkipPaths))
		for _, p := range opts.SkipPaths {
			skip[p] = struct{}{}
		}
		options = append(options, otelgin.WithFilter(func(r *http.Request) bool {
			_, skipped := skip[r.URL.Path]
			return !skipped
		}))
	}

	name := opts.ServiceName
	if name == "" {
		name = "portal-api"
	}
	return otelgin.Middleware(name, options...)
}
