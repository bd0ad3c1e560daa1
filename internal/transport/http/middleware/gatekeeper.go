package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// Check names for decisions taken at the HTTP boundary.
const (
	CheckMobileAuth = "mobile_auth"
	CheckLBAC       = "lbac"
	CheckRBAC       = "rbac"
)

// Authenticator turns a bearer token into an enriched identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.AuthContext, error)
}

// ScopeChecker answers location-based questions for the LBAC middleware.
type ScopeChecker interface {
	ActiveAssignments(ctx context.Context, userID string) ([]domain.GeographicAssignment, error)
	MatchesScope(assignments []domain.GeographicAssignment, target domain.GeographicScope) bool
}

// Gatekeeper builds the authentication and authorization middleware. Every
// refusal is logged, counted and published as an access-denied audit event.
type Gatekeeper struct {
	auth     Authenticator
	scopes   ScopeChecker
	events   port.EventPublisher
	observer port.DecisionObserver
	log      *zap.Logger
	now      func() time.Time
}

// GatekeeperOption customises a Gatekeeper.
type GatekeeperOption func(*Gatekeeper)

// WithAuditPublisher publishes access-denied events.
func WithAuditPublisher(events port.EventPublisher) GatekeeperOption {
	return func(g *Gatekeeper) { g.events = events }
}

// WithGateObserver records allow/deny outcomes.
func WithGateObserver(observer port.DecisionObserver) GatekeeperOption {
	return func(g *Gatekeeper) { g.observer = observer }
}

// WithGateLogger sets the logger for denials and faults.
func WithGateLogger(log *zap.Logger) GatekeeperOption {
	return func(g *Gatekeeper) {
		if log != nil {
			g.log = log
		}
	}
}

// NewGatekeeper wires the middleware dependencies. A nil auth or scopes is
// tolerated and reported per request as a configuration error.
func NewGatekeeper(auth Authenticator, scopes ScopeChecker, opts ...GatekeeperOption) *Gatekeeper {
	g := &Gatekeeper{
		auth:   auth,
		scopes: scopes,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gatekeeper) allow(check string) {
	if g.observer != nil {
		g.observer.ObserveDecision(check, true, false)
	}
}

// refuse aborts the request and audits the refusal. Faults (5xx) are counted
// as errors rather than denials.
func (g *Gatekeeper) refuse(c *gin.Context, check string, status int, code string, userID string, metadata map[string]any) {
	failed := status >= 500
	if g.observer != nil {
		g.observer.ObserveDecision(check, false, failed)
	}

	fields := []zap.Field{
		zap.String("check", check),
		zap.String("code", code),
		zap.String("user_id", userID),
		zap.String("path", c.Request.URL.Path),
		zap.String("trace_id", GetTraceID(c)),
	}
	if failed {
		g.log.Error("access check failed", fields...)
	} else {
		g.log.Info("access denied", fields...)
	}

	AbortWithCode(c, status, code)

	if g.events == nil {
		return
	}
	event := domain.AccessDeniedEvent{
		EventID:  uuid.NewString(),
		UserID:   userID,
		Check:    check,
		Code:     code,
		Resource: c.Request.Method + " " + c.Request.URL.Path,
		TraceID:  GetTraceID(c),
		DeniedAt: g.now().UTC(),
		Metadata: metadata,
	}
	if err := g.events.PublishAccessDenied(c.Request.Context(), event); err != nil {
		g.log.Warn("publish access denied event", zap.Error(err), zap.String("code", code))
	}
}
