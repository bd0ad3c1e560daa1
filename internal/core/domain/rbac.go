package domain

// Role codes referenced by the authorization core.
const (
	RoleAdmin          = "admin"
	RoleSurveyor       = "surveyor"
	RoleEngineer       = "engineer"
	RoleSeniorEngineer = "senior_engineer"
	RoleChiefEngineer  = "chief_engineer"
	RoleCitizen        = "citizen"
)

// SurveyorRoleCodes is the fixed set treated as field-certified staff.
var SurveyorRoleCodes = []string{RoleSurveyor, RoleEngineer, RoleSeniorEngineer, RoleChiefEngineer}

// IsSurveyorRole reports whether code belongs to SurveyorRoleCodes.
func IsSurveyorRole(code string) bool {
	for _, c := range SurveyorRoleCodes {
		if c == code {
			return true
		}
	}
	return false
}

// RoleAssignment binds a role, and optionally a department, to a user.
// A user may hold several; the first returned is the primary one.
type RoleAssignment struct {
	UserID       string
	RoleID       string
	RoleName     string
	RoleCode     string
	DepartmentID *string
}
