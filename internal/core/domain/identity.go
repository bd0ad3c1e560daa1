package domain

import "time"

// User mirrors the persisted representation in the users table.
// Users are deactivated rather than deleted so the audit trail survives.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	RoleCode     string
	DepartmentID *string
	IsActive     bool
	CreatedAt    time.Time
}

// AuthContext is the enriched identity attached to an authenticated request.
// Consumers receive copies; mutating a copy never changes what later
// middleware sees.
type AuthContext struct {
	UserID                string
	RoleCode              string
	Roles                 []string
	DepartmentID          *string
	DeviceID              string
	SessionID             string
	GeographicAssignments []GeographicAssignment
}

// IsAdmin reports whether the primary role bypasses scope checks.
func (a AuthContext) IsAdmin() bool {
	return a.RoleCode == RoleAdmin
}

// Clone returns a deep copy safe to hand to downstream consumers.
func (a AuthContext) Clone() AuthContext {
	out := a
	if a.Roles != nil {
		out.Roles = append([]string(nil), a.Roles...)
	}
	if a.DepartmentID != nil {
		dept := *a.DepartmentID
		out.DepartmentID = &dept
	}
	if a.GeographicAssignments != nil {
		out.GeographicAssignments = make([]GeographicAssignment, len(a.GeographicAssignments))
		for i, assignment := range a.GeographicAssignments {
			out.GeographicAssignments[i] = assignment.Clone()
		}
	}
	return out
}
