package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/security"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

type authenticatorStub struct {
	auth   domain.AuthContext
	err    error
	tokens []string
}

func (a *authenticatorStub) Authenticate(_ context.Context, token string) (domain.AuthContext, error) {
	a.tokens = append(a.tokens, token)
	return a.auth, a.err
}

type scopeStub struct {
	assignments []domain.GeographicAssignment
	err         error
	match       bool
	targets     []domain.GeographicScope
}

func (s *scopeStub) ActiveAssignments(context.Context, string) ([]domain.GeographicAssignment, error) {
	return s.assignments, s.err
}

func (s *scopeStub) MatchesScope(_ []domain.GeographicAssignment, target domain.GeographicScope) bool {
	s.targets = append(s.targets, target)
	return s.match
}

type auditStub struct {
	mu     sync.Mutex
	denied []domain.AccessDeniedEvent
	err    error
}

func (a *auditStub) PublishAccessDenied(_ context.Context, event domain.AccessDeniedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denied = append(a.denied, event)
	return a.err
}

func (a *auditStub) PublishSyncConflictRecorded(context.Context, domain.SyncConflictRecordedEvent) error {
	return nil
}

func (a *auditStub) PublishSyncConflictResolved(context.Context, domain.SyncConflictResolvedEvent) error {
	return nil
}

type observerStub struct {
	decisions []string
}

func (o *observerStub) ObserveDecision(check string, allowed, failed bool) {
	outcome := "deny"
	switch {
	case failed:
		outcome = "error"
	case allowed:
		outcome = "allow"
	}
	o.decisions = append(o.decisions, check+":"+outcome)
}

func (o *observerStub) ObserveConflict(string) {}

func strPtr(v string) *string { return &v }

func surveyorContext() domain.AuthContext {
	return domain.AuthContext{
		UserID:   "surveyor-1",
		RoleCode: domain.RoleSurveyor,
		Roles:    []string{domain.RoleSurveyor},
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestMobileAuthGateMapsFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		header     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantCode: CodeTokenMissing},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: CodeTokenInvalid},
		{name: "empty bearer", header: "Bearer   ", wantStatus: http.StatusUnauthorized, wantCode: CodeTokenMissing},
		{name: "expired", header: "Bearer t", err: security.ErrTokenExpired, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenExpired},
		{name: "malformed", header: "Bearer t", err: security.ErrTokenMalformed, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenMalformed},
		{name: "not active", header: "Bearer t", err: security.ErrTokenNotActive, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenNotActive},
		{name: "bad signature", header: "Bearer t", err: security.ErrTokenInvalid, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenInvalid},
		{name: "claims invalid", header: "Bearer t", err: usecase.ErrTokenClaimsInvalid, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenInvalid},
		{name: "user not found", header: "Bearer t", err: usecase.ErrUserNotFound, wantStatus: http.StatusUnauthorized, wantCode: CodeUserNotFound},
		{name: "disabled", header: "Bearer t", err: usecase.ErrAccountDisabled, wantStatus: http.StatusForbidden, wantCode: CodeAccountDisabled},
		{name: "not configured", header: "Bearer t", err: usecase.ErrAuthNotConfigured, wantStatus: http.StatusInternalServerError, wantCode: CodeServerConfig},
		{name: "database down", header: "Bearer t", err: fmt.Errorf("load user: %w", errors.New("connection refused")), wantStatus: http.StatusInternalServerError, wantCode: CodeAuthSystem},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audit := &auditStub{}
			gate := NewGatekeeper(&authenticatorStub{err: tc.err}, nil,
				WithAuditPublisher(audit), WithGateLogger(zaptest.NewLogger(t)))

			router := gin.New()
			router.Use(EnrichContext(), gate.MobileAuthGate())
			router.GET("/api/sync/pull", func(c *gin.Context) {
				t.Fatalf("handler must not run")
			})

			req := httptest.NewRequest(http.MethodGet, "/api/sync/pull", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			body := decodeError(t, rr)
			if body.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, body.Code)
			}
			if body.Error != Message(tc.wantCode) {
				t.Fatalf("expected localized message, got %q", body.Error)
			}
			if body.TraceID == "" {
				t.Fatalf("expected trace id in error body")
			}
			if len(audit.denied) != 1 || audit.denied[0].Code != tc.wantCode {
				t.Fatalf("expected one audit event with code %s, got %+v", tc.wantCode, audit.denied)
			}
		})
	}
}

func TestMobileAuthGateAttachesIsolatedContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dept := "dept-survey"
	auth := &authenticatorStub{auth: domain.AuthContext{
		UserID:       "surveyor-1",
		RoleCode:     domain.RoleSurveyor,
		Roles:        []string{domain.RoleSurveyor},
		DepartmentID: &dept,
	}}
	observer := &observerStub{}
	gate := NewGatekeeper(auth, nil, WithGateObserver(observer))

	router := gin.New()
	router.Use(EnrichContext(), gate.MobileAuthGate())
	router.GET("/api/auth/me", func(c *gin.Context) {
		first, ok := GetAuthContext(c)
		if !ok {
			t.Fatalf("expected auth context")
		}
		first.Roles[0] = domain.RoleAdmin
		*first.DepartmentID = "tampered"

		second, _ := GetAuthContext(c)
		if second.Roles[0] != domain.RoleSurveyor || *second.DepartmentID != "dept-survey" {
			t.Fatalf("mutating a copy leaked into the request: %+v", second)
		}
		if GetRequestContext(c).UserID != "surveyor-1" {
			t.Fatalf("expected request context to carry the user id")
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "bearer abc.def.ghi")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if len(auth.tokens) != 1 || auth.tokens[0] != "abc.def.ghi" {
		t.Fatalf("expected token to be passed through, got %v", auth.tokens)
	}
	if len(observer.decisions) != 1 || observer.decisions[0] != "mobile_auth:allow" {
		t.Fatalf("unexpected decisions %v", observer.decisions)
	}
}

func TestMobileAuthGateWithoutAuthenticator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(NewGatekeeper(nil, nil).MobileAuthGate())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError || decodeError(t, rr).Code != CodeServerConfig {
		t.Fatalf("expected SERVER_CONFIG_ERROR, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestOptionalAuthGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth := &authenticatorStub{auth: surveyorContext()}
	gate := NewGatekeeper(auth, nil, WithGateLogger(zaptest.NewLogger(t)))

	var seenUser string
	var seenAuth bool
	router := gin.New()
	router.Use(EnrichContext(), gate.OptionalAuthGate())
	router.GET("/api/v1/attachments/*key", func(c *gin.Context) {
		seenUser, seenAuth = GetAuthenticatedUserID(c)
		c.Status(http.StatusOK)
	})

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/attachments/a/b.pdf", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	if rr := serve(""); rr.Code != http.StatusOK || seenAuth || seenUser != "" {
		t.Fatalf("expected anonymous pass-through, got %d user=%q", rr.Code, seenUser)
	}
	if len(auth.tokens) != 0 {
		t.Fatalf("anonymous request must not authenticate, got %v", auth.tokens)
	}

	if rr := serve("Bearer t"); rr.Code != http.StatusOK || !seenAuth || seenUser != "surveyor-1" {
		t.Fatalf("expected authenticated caller, got %d user=%q", rr.Code, seenUser)
	}

	auth.err = security.ErrTokenExpired
	rr := serve("Bearer t")
	if rr.Code != http.StatusUnauthorized || decodeError(t, rr).Code != CodeTokenExpired {
		t.Fatalf("expected a bad token to be refused, got %d %s", rr.Code, rr.Body.String())
	}
}
