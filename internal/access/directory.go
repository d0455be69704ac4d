package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownAdmin indicates the admin id is not present in the directory.
	ErrUnknownAdmin = errors.New("unknown admin")
	// ErrDuplicateAdmin indicates two directory entries share an admin id.
	ErrDuplicateAdmin = errors.New("duplicate admin id")
)

// Directory is the fixed mapping from admin id to scope supplied by the host.
type Directory struct {
	scopes map[string]Scope
}

// NewDirectory validates the entries and builds an immutable directory.
func NewDirectory(scopes []Scope, validate *validator.Validate) (*Directory, error) {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	entries := make(map[string]Scope, len(scopes))
	for i, scope := range scopes {
		scope.AdminID = strings.TrimSpace(scope.AdminID)
		scope.Name = strings.TrimSpace(scope.Name)
		scope.ClassSection = strings.TrimSpace(scope.ClassSection)
		scope.Region = strings.TrimSpace(scope.Region)

		if err := validate.Struct(scope); err != nil {
			return nil, fmt.Errorf("admin entry %d: %w", i, err)
		}
		if _, exists := entries[scope.AdminID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdmin, scope.AdminID)
		}
		entries[scope.AdminID] = scope
	}

	return &Directory{scopes: entries}, nil
}

// Lookup returns the scope registered for the admin id.
func (d *Directory) Lookup(adminID string) (Scope, error) {
	if d == nil {
		return Scope{}, ErrUnknownAdmin
	}
	scope, ok := d.scopes[strings.TrimSpace(adminID)]
	if !ok {
		return Scope{}, fmt.Errorf("%w: %s", ErrUnknownAdmin, adminID)
	}
	return scope, nil
}

// List returns every scope ordered by admin id.
func (d *Directory) List() []Scope {
	if d == nil {
		return nil
	}
	result := make([]Scope, 0, len(d.scopes))
	for _, scope := range d.scopes {
		result = append(result, scope)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AdminID < result[j].AdminID })
	return result
}

// Len returns the number of registered admins.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.scopes)
}

// DefaultScopes returns the demo admins used when configuration supplies none.
func DefaultScopes() []Scope {
	return []Scope{
		{AdminID: "admin1", Name: "John Doe", Grade: 8, Region: "North"},
		{AdminID: "admin2", Name: "Jane Smith", Grade: 9, Region: "South"},
		{AdminID: "admin3", Name: "Mike Johnson", Grade: 7, Region: "East"},
	}
}
