package domain

// Permission is a capability granted on a stored object.
type Permission string

const (
	PermissionRead  Permission = "READ"
	PermissionWrite Permission = "WRITE"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite
}

// Satisfies reports whether a grant of p covers a request for requested.
// WRITE covers READ and WRITE; READ covers only READ.
func (p Permission) Satisfies(requested Permission) bool {
	switch p {
	case PermissionWrite:
		return requested == PermissionRead || requested == PermissionWrite
	case PermissionRead:
		return requested == PermissionRead
	default:
		return false
	}
}

// Visibility controls anonymous read access.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// AccessGroupType tags the AccessGroup variant.
type AccessGroupType string

const (
	AccessGroupUserList                AccessGroupType = "USER_LIST"
	AccessGroupGeographicScope         AccessGroupType = "GEOGRAPHIC_SCOPE"
	AccessGroupDepartmentMembers       AccessGroupType = "DEPARTMENT_MEMBERS"
	AccessGroupSurveyorGroup           AccessGroupType = "SURVEYOR_GROUP"
	AccessGroupApplicationStakeholders AccessGroupType = "APPLICATION_STAKEHOLDERS"
)

// AccessGroup identifies a set of users. The structure of ID depends on Type:
// comma separated user ids, a JSON GeographicScope, a department id, a region
// (governorate) id, or an application id.
type AccessGroup struct {
	Type AccessGroupType `json:"type"`
	ID   string          `json:"id"`
}

// ACLRule grants Permission to every member of Group.
type ACLRule struct {
	Group      AccessGroup `json:"group"`
	Permission Permission  `json:"permission"`
}

// ObjectACLPolicy is the access policy stored verbatim in an object's metadata.
// Policies are replaced wholesale; there is no partial update.
type ObjectACLPolicy struct {
	Owner           string           `json:"owner"`
	Visibility      Visibility       `json:"visibility"`
	ACLRules        []ACLRule        `json:"aclRules"`
	ApplicationID   *string          `json:"applicationId,omitempty"`
	SessionID       *string          `json:"sessionId,omitempty"`
	GeographicScope *GeographicScope `json:"geographicScope,omitempty"`
	Classification  *string          `json:"classification,omitempty"`
	RetentionPolicy *string          `json:"retentionPolicy,omitempty"`
}
