package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
)

// Check names reported to the decision observer and logs.
const (
	CheckGeographicAccess       = "geographic_access"
	CheckDepartmentMember       = "department_member"
	CheckSurveyorRole           = "surveyor_role"
	CheckApplicationStakeholder = "application_stakeholder"
	CheckSurveySession          = "survey_session"
	CheckObjectACL              = "object_acl"
	CheckSyncSession            = "sync_session"
)

// Deny codes carried by Decision.
const (
	CodeACLPolicyMissing = "ACL_POLICY_MISSING"
	CodeACLPolicyInvalid = "ACL_POLICY_INVALID"
	CodeACLAccessDenied  = "ACL_ACCESS_DENIED"
)

// Decision is the structured result of an authorization check. Code is empty
// when Allowed is true.
type Decision struct {
	Allowed bool
	Code    string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(code string) Decision { return Decision{Code: code} }

// Option configures the logging and metrics shared by the services.
type Option func(*decisionRecorder)

// WithLogger sets the logger used for deny and fault reporting.
func WithLogger(log *zap.Logger) Option {
	return func(r *decisionRecorder) {
		if log != nil {
			r.log = log
		}
	}
}

// WithDecisionObserver sets the sink for decision outcomes.
func WithDecisionObserver(observer port.DecisionObserver) Option {
	return func(r *decisionRecorder) {
		r.observer = observer
	}
}

type decisionRecorder struct {
	log      *zap.Logger
	observer port.DecisionObserver
}

func newDecisionRecorder(opts []Option) decisionRecorder {
	r := decisionRecorder{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r decisionRecorder) observe(check string, allowed, failed bool) {
	if r.observer != nil {
		r.observer.ObserveDecision(check, allowed, failed)
	}
}

// evaluateOrDeny runs fn and converts any error or panic into a deny.
func (r decisionRecorder) evaluateOrDeny(ctx context.Context, check string, fn func(context.Context) (bool, error)) (allowed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			allowed = false
			r.log.Error("authorization check panicked",
				zap.String("check", check),
				zap.Error(fmt.Errorf("panic: %v", rec)),
			)
			r.observe(check, false, true)
		}
	}()

	ok, err := fn(ctx)
	if err != nil {
		r.log.Error("authorization check failed", zap.String("check", check), zap.Error(err))
		r.observe(check, false, true)
		return false
	}

	if !ok {
		r.log.Debug("authorization check denied", zap.String("check", check))
	}
	r.observe(check, ok, false)
	return ok
}
