package models

// Placement holds the fields an admin scope is checked against. A nil field
// means the source record did not carry a usable value for that axis.
type Placement struct {
	Grade  *int    `json:"grade,omitempty"`
	Class  *string `json:"class,omitempty"`
	Region *string `json:"region,omitempty"`
}

// ScopeFields exposes the placement to scope predicates. Records embedding
// Placement get it promoted.
func (p Placement) ScopeFields() Placement {
	return p
}

// GradeValue returns the grade and whether it was present.
func (p Placement) GradeValue() (int, bool) {
	if p.Grade == nil {
		return 0, false
	}
	return *p.Grade, true
}

// ClassValue returns the class section and whether it was present.
func (p Placement) ClassValue() (string, bool) {
	if p.Class == nil {
		return "", false
	}
	return *p.Class, true
}

// RegionValue returns the region and whether it was present.
func (p Placement) RegionValue() (string, bool) {
	if p.Region == nil {
		return "", false
	}
	return *p.Region, true
}
