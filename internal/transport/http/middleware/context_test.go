package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/logger"
)

func TestRequestIDKeepsValidClientValue(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIDKey{}).(string)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "client value", header: "mobile-7f3a", keep: true},
		{name: "empty", header: "", keep: false},
		{name: "whitespace", header: "bad id", keep: false},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLength+1), keep: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("response id %q does not match context id %q", got, seen)
			}
			if (got == tc.header) != tc.keep {
				t.Fatalf("keep=%v but got %q for header %q", tc.keep, got, tc.header)
			}
		})
	}
}

func TestEnrichContextPropagatesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromRequest, fromGin string
	r := gin.New()
	r.Use(EnrichContext())
	r.GET("/ping", func(c *gin.Context) {
		fromRequest, _ = c.Request.Context().Value(logger.TraceIDKey{}).(string)
		fromGin = GetTraceID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceIDHeader, "trace-from-device")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if fromGin != "trace-from-device" || fromRequest != fromGin {
		t.Fatalf("trace id not propagated: gin=%q request=%q", fromGin, fromRequest)
	}
	if got := rr.Header().Get(TraceIDHeader); got != "trace-from-device" {
		t.Fatalf("unexpected trace header %q", got)
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(origins []string, method, origin string, preflight bool) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/api/v1/mobile/me", func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(method, "/api/v1/mobile/me", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if preflight {
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	listed := serve([]string{"https://portal.example.gov/"}, http.MethodGet, "https://portal.example.gov", false)
	if got := listed.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.gov" {
		t.Fatalf("expected listed origin echoed, got %q", got)
	}
	if listed.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials allowed for listed origin")
	}
	if !strings.Contains(listed.Header().Get("Access-Control-Expose-Headers"), "Retry-After") {
		t.Fatal("expected Retry-After to be exposed")
	}

	unlisted := serve([]string{"https://portal.example.gov"}, http.MethodGet, "https://evil.example", false)
	if got := unlisted.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for unlisted origin, got %q", got)
	}

	wildcard := serve([]string{"*"}, http.MethodGet, "https://any.example", false)
	if got := wildcard.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
	if wildcard.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard must not allow credentials")
	}

	preflight := serve([]string{"https://portal.example.gov"}, http.MethodOptions, "https://portal.example.gov", true)
	if preflight.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", preflight.Code)
	}
	if !strings.Contains(preflight.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Fatal("expected Authorization in allowed headers")
	}
}
