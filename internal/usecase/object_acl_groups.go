package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
)

// MembershipChecker is the subset of AccessControlService the group variants need.
type MembershipChecker interface {
	HasGeographicAccess(ctx context.Context, userID string, target domain.GeographicScope) bool
	IsDepartmentMember(ctx context.Context, userID, departmentID string) bool
	IsSurveyorOrEngineer(ctx context.Context, userID string) bool
	IsApplicationStakeholder(ctx context.Context, userID, applicationID string) bool
}

// GroupMembership tests whether a user belongs to the group identified by groupID.
type GroupMembership interface {
	HasMember(ctx context.Context, userID, groupID string) (bool, error)
}

// MembershipRegistry dispatches membership tests on the access group type.
// Types without a registered variant have no members.
type MembershipRegistry struct {
	variants map[domain.AccessGroupType]GroupMembership
}

// NewMembershipRegistry registers the five built-in group variants.
func NewMembershipRegistry(checker MembershipChecker) *MembershipRegistry {
	return &MembershipRegistry{
		variants: map[domain.AccessGroupType]GroupMembership{
			domain.AccessGroupUserList:                userListGroup{},
			domain.AccessGroupGeographicScope:         geographicScopeGroup{checker: checker},
			domain.AccessGroupDepartmentMembers:       departmentGroup{checker: checker},
			domain.AccessGroupSurveyorGroup:           surveyorGroup{checker: checker},
			domain.AccessGroupApplicationStakeholders: applicationStakeholderGroup{checker: checker},
		},
	}
}

// HasMember reports whether userID belongs to group.
func (r *MembershipRegistry) HasMember(ctx context.Context, group domain.AccessGroup, userID string) (bool, error) {
	variant, ok := r.variants[group.Type]
	if !ok {
		return false, nil
	}
	return variant.HasMember(ctx, userID, group.ID)
}

type userListGroup struct{}

func (userListGroup) HasMember(_ context.Context, userID, groupID string) (bool, error) {
	for _, member := range strings.Split(groupID, ",") {
		member = strings.TrimSpace(member)
		if member != "" && member == userID {
			return true, nil
		}
	}
	return false, nil
}

// geographicScopeGroup admits users with geographic access to the JSON
// scope in groupID. An empty scope has no members, so a rule granting to
// "everywhere" never matches.
type geographicScopeGroup struct {
	checker MembershipChecker
}

func (g geographicScopeGroup) HasMember(ctx context.Context, userID, groupID string) (bool, error) {
	var scope domain.GeographicScope
	if err := json.Unmarshal([]byte(groupID), &scope); err != nil {
		return false, fmt.Errorf("decode geographic scope group: %w", err)
	}
	if scope.IsEmpty() {
		return false, nil
	}
	return g.checker.HasGeographicAccess(ctx, userID, scope), nil
}

type departmentGroup struct {
	checker MembershipChecker
}

func (g departmentGroup) HasMember(ctx context.Context, userID, groupID string) (bool, error) {
	return g.checker.IsDepartmentMember(ctx, userID, groupID), nil
}

// surveyorGroup members are field-certified staff with access to the
// governorate named by groupID.
type surveyorGroup struct {
	checker MembershipChecker
}

func (g surveyorGroup) HasMember(ctx context.Context, userID, groupID string) (bool, error) {
	regionID := strings.TrimSpace(groupID)
	if regionID == "" {
		return false, nil
	}
	if !g.checker.IsSurveyorOrEngineer(ctx, userID) {
		return false, nil
	}
	return g.checker.HasGeographicAccess(ctx, userID, domain.GeographicScope{GovernorateID: &regionID}), nil
}

type applicationStakeholderGroup struct {
	checker MembershipChecker
}

func (g applicationStakeholderGroup) HasMember(ctx context.Context, userID, groupID string) (bool, error) {
	return g.checker.IsApplicationStakeholder(ctx, userID, groupID), nil
}
