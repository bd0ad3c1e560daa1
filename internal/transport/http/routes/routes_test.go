package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/config"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/handlers"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	httproutes "github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/routes"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

func newEngine(t *testing.T, cfg *config.AppConfig, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("http metrics: %v", err)
	}

	return httproutes.Register(httproutes.Dependencies{
		Config:      cfg,
		Logger:      zaptest.NewLogger(t),
		RateLimiter: limiter,
		HTTPMetrics: metrics,
		Gatherer:    registry,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newEngine(t, &config.AppConfig{App: config.AppSettings{Env: "test"}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	r := newEngine(t, &config.AppConfig{App: config.AppSettings{Env: "test"}}, nil)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "portal_http_requests_total") {
		t.Fatalf("expected portal http metrics in scrape output")
	}
}

func TestMobileRoutesRequireToken(t *testing.T) {
	r := newEngine(t, &config.AppConfig{App: config.AppSettings{Env: "test"}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/mobile/me", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when no authenticator is wired, got %d", w.Code)
	}

	var body middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != middleware.CodeServerConfig || body.TraceID == "" || w.Header().Get(middleware.TraceIDHeader) != body.TraceID {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test", CORSOrigins: []string{"https://portal.example.gov"}}}
	r := newEngine(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/mobile/me", nil)
	req.Header.Set("Origin", "https://portal.example.gov")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.gov" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

type metadataStore struct {
	objects map[string]map[string]string
}

func (s metadataStore) Metadata(_ context.Context, key string) (map[string]string, bool, error) {
	metadata, ok := s.objects[key]
	return metadata, ok, nil
}

func (s metadataStore) ReplaceMetadata(context.Context, string, map[string]string) error { return nil }

func (s metadataStore) PresignPut(_ context.Context, key, _ string, _ map[string]string, ttl time.Duration) (port.PresignedRequest, error) {
	return port.PresignedRequest{URL: "https://s3.example/" + key, Method: http.MethodPut, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (s metadataStore) PresignGet(_ context.Context, key string, ttl time.Duration) (port.PresignedRequest, error) {
	return port.PresignedRequest{URL: "https://s3.example/" + key, Method: http.MethodGet, ExpiresAt: time.Now().Add(ttl)}, nil
}

type staticIDs struct{}

func (staticIDs) New() string { return "01J0000000000000000000000" }

func TestAttachmentDownloadAllowsAnonymousPublicRead(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := metadataStore{objects: map[string]map[string]string{
		"attachments/2026/03/a/map.pdf":  {usecase.ACLMetadataKey: `{"owner":"u1","visibility":"public","aclRules":[]}`},
		"attachments/2026/03/b/deed.pdf": {usecase.ACLMetadataKey: `{"owner":"u1","visibility":"private","aclRules":[]}`},
	}}
	objectACL, err := usecase.NewObjectACLService(store, usecase.NewMembershipRegistry(nil), staticIDs{},
		usecase.ObjectACLConfig{PathPrefix: "attachments"}, usecase.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("object acl service: %v", err)
	}

	r := httproutes.Register(httproutes.Dependencies{
		Config:   &config.AppConfig{App: config.AppSettings{Env: "test"}},
		Logger:   zaptest.NewLogger(t),
		Services: httproutes.ServiceSet{ObjectACL: objectACL},
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := serve(http.MethodGet, "/api/v1/attachments/attachments/2026/03/a/map.pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("expected anonymous public download, got %d %s", w.Code, w.Body.String())
	}
	var download handlers.DownloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &download); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if download.Download.URL != "https://s3.example/attachments/2026/03/a/map.pdf" {
		t.Fatalf("unexpected download %+v", download)
	}

	w = serve(http.MethodGet, "/api/v1/attachments/attachments/2026/03/b/deed.pdf")
	var body middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusUnauthorized || body.Code != middleware.CodeTokenMissing {
		t.Fatalf("expected anonymous private download to need a token, got %d %+v", w.Code, body)
	}

	// Writes keep the mandatory gate; no authenticator is wired here.
	w = serve(http.MethodPut, "/api/v1/attachments/acl/attachments/2026/03/a/map.pdf")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected the acl route to stay behind the auth gate, got %d", w.Code)
	}
}
