package domain

// AssignmentLevel names the granularity an assignment was granted at.
type AssignmentLevel string

const (
	AssignmentLevelGovernorate  AssignmentLevel = "governorate"
	AssignmentLevelDistrict     AssignmentLevel = "district"
	AssignmentLevelSubDistrict  AssignmentLevel = "sub_district"
	AssignmentLevelNeighborhood AssignmentLevel = "neighborhood"
)

// GeographicScope is a partial (governorate, district, sub-district, neighborhood) tuple.
// A nil field means "not specified".
type GeographicScope struct {
	GovernorateID  *string `json:"governorateId,omitempty"`
	DistrictID     *string `json:"districtId,omitempty"`
	SubDistrictID  *string `json:"subDistrictId,omitempty"`
	NeighborhoodID *string `json:"neighborhoodId,omitempty"`
}

// IsEmpty reports whether no level is specified.
func (s GeographicScope) IsEmpty() bool {
	return s.GovernorateID == nil && s.DistrictID == nil && s.SubDistrictID == nil && s.NeighborhoodID == nil
}

// Fields returns the four levels in fixed order, most general first.
func (s GeographicScope) Fields() [4]*string {
	return [4]*string{s.GovernorateID, s.DistrictID, s.SubDistrictID, s.NeighborhoodID}
}

// Clone returns a copy that shares no pointers with s.
func (s GeographicScope) Clone() GeographicScope {
	return GeographicScope{
		GovernorateID:  cloneString(s.GovernorateID),
		DistrictID:     cloneString(s.DistrictID),
		SubDistrictID:  cloneString(s.SubDistrictID),
		NeighborhoodID: cloneString(s.NeighborhoodID),
	}
}

// GeographicAssignment grants a user permissions over a geographic scope.
// Revocation flips IsActive; inactive rows never contribute permission.
type GeographicAssignment struct {
	ID              string
	UserID          string
	Scope           GeographicScope
	AssignmentLevel AssignmentLevel
	CanRead         bool
	CanWrite        bool
	CanApprove      bool
	IsActive        bool
}

// Clone returns a deep copy of the assignment.
func (a GeographicAssignment) Clone() GeographicAssignment {
	out := a
	out.Scope = a.Scope.Clone()
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
