// internal/status/domain.go
package status

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind selects one of the two independent status catalogs.
type Kind string

const (
	KindRental Kind = "rental"
	KindCar    Kind = "car"
)

// Valid reports whether k names a known catalog.
func (k Kind) Valid() bool {
	return k == KindRental || k == KindCar
}

// Names the lifecycle engine relies on. Administrators may add others.
const (
	Active    = "Active"
	Completed = "Completed"
	Cancelled = "Cancelled"
	Available = "Available"
	Rented    = "Rented"
)

var (
	ErrNotFound    = errors.New("status not found")
	ErrDuplicate   = errors.New("status name already exists")
	ErrInvalidKind = errors.New("unknown status catalog")
	ErrInvalidName = errors.New("status name must not be empty")
)

// Status is a named row in a status catalog. Names are unique per catalog.
type Status struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// Is reports whether s carries the given name, ignoring case. A nil status
// matches nothing.
func (s *Status) Is(name string) bool {
	return s != nil && strings.EqualFold(s.Name, name)
}
