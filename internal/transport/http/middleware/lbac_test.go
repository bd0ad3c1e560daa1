package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

func withAuth(auth domain.AuthContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetAuthContext(c, auth)
		c.Next()
	}
}

func serveGeo(t *testing.T, gate *Gatekeeper, auth *domain.AuthContext, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Use(EnrichContext())
	if auth != nil {
		router.Use(withAuth(*auth))
	}
	router.GET("/api/geo/:governorateId", gate.RequireGeographicAccess(nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/geo", gate.RequireGeographicAccess(nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func activeAssignment() domain.GeographicAssignment {
	return domain.GeographicAssignment{
		ID:       "ga-1",
		UserID:   "surveyor-1",
		Scope:    domain.GeographicScope{GovernorateID: strPtr("gov-1")},
		CanRead:  true,
		IsActive: true,
	}
}

func TestRequireGeographicAccessAdminBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	scopes := &scopeStub{err: errors.New("must not be called")}
	admin := domain.AuthContext{UserID: "admin-1", RoleCode: domain.RoleAdmin}

	rr := serveGeo(t, NewGatekeeper(nil, scopes), &admin, "/api/geo/gov-9")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected admin to pass, got %d", rr.Code)
	}
	if len(scopes.targets) != 0 {
		t.Fatalf("expected no scope matching for admin")
	}
}

func TestRequireGeographicAccessOutcomes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	surveyor := surveyorContext()

	cases := []struct {
		name       string
		auth       *domain.AuthContext
		scopes     *scopeStub
		target     string
		wantStatus int
		wantCode   string
	}{
		{name: "unauthenticated", auth: nil, scopes: &scopeStub{}, target: "/api/geo/gov-1", wantStatus: http.StatusUnauthorized, wantCode: CodeTokenMissing},
		{name: "lookup failure", auth: &surveyor, scopes: &scopeStub{err: errors.New("timeout")}, target: "/api/geo/gov-1", wantStatus: http.StatusInternalServerError, wantCode: CodeLBACSystem},
		{name: "no assignments", auth: &surveyor, scopes: &scopeStub{}, target: "/api/geo", wantStatus: http.StatusForbidden, wantCode: CodeNoGeographicAccess},
		{name: "scope mismatch", auth: &surveyor, scopes: &scopeStub{assignments: []domain.GeographicAssignment{activeAssignment()}}, target: "/api/geo/gov-2", wantStatus: http.StatusForbidden, wantCode: CodeGeographicDenied},
		{name: "scope match", auth: &surveyor, scopes: &scopeStub{assignments: []domain.GeographicAssignment{activeAssignment()}, match: true}, target: "/api/geo/gov-1?districtId=d-1", wantStatus: http.StatusOK},
		{name: "no scope requested", auth: &surveyor, scopes: &scopeStub{assignments: []domain.GeographicAssignment{activeAssignment()}}, target: "/api/geo", wantStatus: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audit := &auditStub{}
			rr := serveGeo(t, NewGatekeeper(nil, tc.scopes, WithAuditPublisher(audit)), tc.auth, tc.target)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if tc.wantCode == "" {
				if len(audit.denied) != 0 {
					t.Fatalf("expected no audit events, got %+v", audit.denied)
				}
				return
			}
			if got := decodeError(t, rr).Code; got != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, got)
			}
			if len(audit.denied) != 1 || audit.denied[0].Check != CheckLBAC {
				t.Fatalf("expected one lbac audit event, got %+v", audit.denied)
			}
		})
	}
}

func TestRequireGeographicAccessPassesExtractedScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	scopes := &scopeStub{assignments: []domain.GeographicAssignment{activeAssignment()}, match: true}
	gate := NewGatekeeper(nil, scopes)

	router := gin.New()
	router.Use(withAuth(surveyorContext()))
	router.GET("/api/geo/:governorateId", gate.RequireGeographicAccess(nil), func(c *gin.Context) {
		scope, ok := GetGeographicScope(c)
		if !ok || scope.GovernorateID == nil || *scope.GovernorateID != "gov-1" || scope.DistrictID == nil || *scope.DistrictID != "d-7" {
			t.Fatalf("unexpected admitted scope %+v", scope)
		}
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/geo/gov-1?districtId=d-7", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(scopes.targets) != 1 || scopes.targets[0].SubDistrictID != nil {
		t.Fatalf("expected one match with unspecified sub-district, got %+v", scopes.targets)
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		auth       domain.AuthContext
		wantStatus int
	}{
		{name: "primary role allowed", auth: domain.AuthContext{UserID: "u1", RoleCode: domain.RoleEngineer}, wantStatus: http.StatusOK},
		{name: "secondary role allowed", auth: domain.AuthContext{UserID: "u2", RoleCode: domain.RoleCitizen, Roles: []string{domain.RoleCitizen, "Surveyor"}}, wantStatus: http.StatusOK},
		{name: "citizen denied", auth: domain.AuthContext{UserID: "u3", RoleCode: domain.RoleCitizen}, wantStatus: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := NewGatekeeper(nil, nil)
			router := gin.New()
			router.Use(withAuth(tc.auth))
			router.GET("/", gate.RequireRoles(domain.RoleSurveyor, domain.RoleEngineer), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantStatus == http.StatusForbidden && decodeError(t, rr).Code != CodeRoleDenied {
				t.Fatalf("expected ROLE_ACCESS_DENIED")
			}
		})
	}
}
