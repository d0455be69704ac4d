package access

import (
	"fmt"
	"strings"

	"github.com/noah-isme/gema-admin-query/internal/models"
)

const allDataDescription = "All accessible data"

// Scoped is implemented by any record that carries grade/class/region fields.
type Scoped interface {
	ScopeFields() models.Placement
}

// Scope is the access boundary of one admin. Zero-valued constraints are
// unrestricted on that axis.
type Scope struct {
	AdminID      string `json:"admin_id" mapstructure:"admin_id" validate:"required"`
	Name         string `json:"name" mapstructure:"name" validate:"required"`
	Grade        int    `json:"grade,omitempty" mapstructure:"grade" validate:"gte=0"`
	ClassSection string `json:"class_section,omitempty" mapstructure:"class_section"`
	Region       string `json:"region,omitempty" mapstructure:"region"`
}

// CanAccess reports whether the scope admits the record. Every constrained
// axis must equal the record's field; a record missing that field is rejected.
func (s Scope) CanAccess(record Scoped) bool {
	if record == nil {
		return false
	}
	fields := record.ScopeFields()

	if s.Grade != 0 {
		grade, ok := fields.GradeValue()
		if !ok || grade != s.Grade {
			return false
		}
	}
	if s.ClassSection != "" {
		class, ok := fields.ClassValue()
		if !ok || class != s.ClassSection {
			return false
		}
	}
	if s.Region != "" {
		region, ok := fields.RegionValue()
		if !ok || region != s.Region {
			return false
		}
	}

	return true
}

// Unrestricted reports whether no axis is constrained.
func (s Scope) Unrestricted() bool {
	return s.Grade == 0 && s.ClassSection == "" && s.Region == ""
}

// Describe renders the active constraints, e.g. "Grade 8, Region North".
func (s Scope) Describe() string {
	parts := make([]string, 0, 3)
	if s.Grade != 0 {
		parts = append(parts, fmt.Sprintf("Grade %d", s.Grade))
	}
	if s.ClassSection != "" {
		parts = append(parts, "Class "+s.ClassSection)
	}
	if s.Region != "" {
		parts = append(parts, "Region "+s.Region)
	}
	if len(parts) == 0 {
		return allDataDescription
	}
	return strings.Join(parts, ", ")
}

// CanAccess is the function form of Scope.CanAccess.
func CanAccess(record Scoped, scope Scope) bool {
	return scope.CanAccess(record)
}

// Describe is the function form of Scope.Describe.
func Describe(scope Scope) string {
	return scope.Describe()
}
