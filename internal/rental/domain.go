// internal/rental/domain.go
package rental

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/fleet"
	"github.com/aldegalts/car-rental/internal/status"
)

var (
	ErrCarNotFound    = fleet.ErrCarNotFound
	ErrRentalNotFound = errors.New("rental not found")
	ErrCarUnavailable = errors.New("car not available for rent")
	ErrConfiguration  = errors.New("status catalog unavailable")
	ErrInvalidRental  = errors.New("invalid rental")
	ErrInvalidWindow  = errors.New("window start is after window end")
)

// Rental is a booking of one car by one customer over [StartDate, EndDate].
type Rental struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CustomerID  uuid.UUID       `json:"customer_id" db:"customer_id"`
	CarID       uuid.UUID       `json:"car_id" db:"car_id"`
	StartDate   time.Time       `json:"start_date" db:"start_date"`
	EndDate     time.Time       `json:"end_date" db:"end_date"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	StatusID    uuid.UUID       `json:"rental_status_id" db:"status_id"`
	Status      *status.Status  `json:"rental_status,omitempty" db:"-"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// NewRental is a booking request. A nil Amount is quoted from the car's
// daily rate.
type NewRental struct {
	CustomerID uuid.UUID
	CarID      uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
	Amount     *decimal.Decimal
}

// RentalUpdate fully replaces the mutable fields of a rental.
type RentalUpdate struct {
	CustomerID  uuid.UUID
	CarID       uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	TotalAmount decimal.Decimal
	StatusID    uuid.UUID
}

// Filter narrows a rental listing. Nil fields match everything.
type Filter struct {
	CarID      *uuid.UUID
	CustomerID *uuid.UUID
}

// SweepFailure records a rental the sweep could not complete.
type SweepFailure struct {
	RentalID uuid.UUID `json:"rental_id"`
	Reason   string    `json:"reason"`
}

// SweepResult reports one reconciliation pass.
type SweepResult struct {
	Completed []uuid.UUID    `json:"completed"`
	Failed    []SweepFailure `json:"failed"`
}

// Count is the number of rentals moved to Completed.
func (r *SweepResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Completed)
}

// Lifecycle event types.
const (
	AggregateType = "rental"

	EventRentalCreated   = "RentalCreated"
	EventRentalCompleted = "RentalCompleted"
	EventRentalUpdated   = "RentalUpdated"
	EventRentalDeleted   = "RentalDeleted"
)

type RentalCreatedEvent struct {
	RentalID    uuid.UUID       `json:"rental_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	CarID       uuid.UUID       `json:"car_id"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type RentalCompletedEvent struct {
	RentalID    uuid.UUID `json:"rental_id"`
	CarID       uuid.UUID `json:"car_id"`
	EndDate     time.Time `json:"end_date"`
	CompletedAt time.Time `json:"completed_at"`
}

type RentalUpdatedEvent struct {
	RentalID uuid.UUID    `json:"rental_id"`
	Before   RentalUpdate `json:"before"`
	After    RentalUpdate `json:"after"`
}

type RentalDeletedEvent struct {
	RentalID uuid.UUID `json:"rental_id"`
	CarID    uuid.UUID `json:"car_id"`
}

func (r *Rental) snapshot() RentalUpdate {
	return RentalUpdate{
		CustomerID:  r.CustomerID,
		CarID:       r.CarID,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		TotalAmount: r.TotalAmount,
		StatusID:    r.StatusID,
	}
}

// expired reports whether the rental's end has passed at now.
func (r *Rental) expired(now time.Time) bool {
	return r.EndDate.Before(now)
}
