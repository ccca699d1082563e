// internal/violation/service.go
package violation

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the operations for violation records.
type Service interface {
	Record(ctx context.Context, v NewViolation) (*Violation, error)
	Get(ctx context.Context, id uuid.UUID) (*Violation, error)
	GetForCustomer(ctx context.Context, customerID, id uuid.UUID) (*Violation, error)
	Update(ctx context.Context, id uuid.UUID, upd ViolationUpdate) (*Violation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]*Violation, error)
	ListForRental(ctx context.Context, rentalID uuid.UUID) ([]*Violation, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*Violation, error)
}

// Store persists violations. GetViolation, GetViolationForCustomer,
// UpdateViolation and DeleteViolation return ErrViolationNotFound for unknown
// ids; GetViolationForCustomer also does for violations on another
// customer's rental.
type Store interface {
	RentalExists(ctx context.Context, rentalID uuid.UUID) (bool, error)
	CreateViolation(ctx context.Context, v *Violation) error
	GetViolation(ctx context.Context, id uuid.UUID) (*Violation, error)
	GetViolationForCustomer(ctx context.Context, customerID, id uuid.UUID) (*Violation, error)
	UpdateViolation(ctx context.Context, v *Violation) error
	DeleteViolation(ctx context.Context, id uuid.UUID) error
	ListViolations(ctx context.Context) ([]*Violation, error)
	ListViolationsByRental(ctx context.Context, rentalID uuid.UUID) ([]*Violation, error)
	ListViolationsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Violation, error)
}
