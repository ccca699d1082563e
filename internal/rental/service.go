// internal/rental/service.go
package rental

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aldegalts/car-rental/internal/eventlog"
	"github.com/aldegalts/car-rental/internal/fleet"
)

// Service defines the operations of the rental lifecycle engine.
type Service interface {
	Create(ctx context.Context, req NewRental) (*Rental, error)
	Get(ctx context.Context, id uuid.UUID) (*Rental, error)
	GetForCustomer(ctx context.Context, customerID, id uuid.UUID) (*Rental, error)
	List(ctx context.Context, filter Filter) ([]*Rental, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*Rental, error)
	IsValid(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, upd RentalUpdate) (*Rental, error)
	Delete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID) ([]eventlog.Event, error)
	SweepExpired(ctx context.Context) (*SweepResult, error)
	ComputeStatistics(ctx context.Context, start, end time.Time) (*Statistics, error)
}

// Store is the persistence the engine needs. Reads return ErrRentalNotFound
// or fleet.ErrCarNotFound for unknown ids and attach status rows.
type Store interface {
	GetCar(ctx context.Context, id uuid.UUID) (*fleet.Car, error)
	GetRental(ctx context.Context, id uuid.UUID) (*Rental, error)
	ListRentals(ctx context.Context, filter Filter) ([]*Rental, error)
	FindActiveExpiredBefore(ctx context.Context, activeID uuid.UUID, now time.Time) ([]*Rental, error)
	FindByWindow(ctx context.Context, start, end time.Time) ([]*Rental, error)
	CountRentalsWithViolations(ctx context.Context, rentalIDs []uuid.UUID) (int, error)
	LoadEvents(ctx context.Context, rentalID uuid.UUID) ([]eventlog.Event, error)

	// InTx runs fn in one transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes performed atomically.
type Tx interface {
	InsertRental(ctx context.Context, r *Rental) error
	ReplaceRental(ctx context.Context, r *Rental) error
	DeleteRental(ctx context.Context, id uuid.UUID) error

	// SetRentalStatus moves a rental from one status to another and reports
	// false when the rental no longer has status from.
	SetRentalStatus(ctx context.Context, id, from, to uuid.UUID) (bool, error)

	// CompareAndSetCarStatus changes a car's status only if its version is
	// still version, returning fleet.ErrVersionConflict otherwise.
	CompareAndSetCarStatus(ctx context.Context, carID, statusID uuid.UUID, version int) error
	SetCarStatus(ctx context.Context, carID, statusID uuid.UUID) error

	AppendEvent(ctx context.Context, rentalID uuid.UUID, event eventlog.Event) error
}
