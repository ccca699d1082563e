// internal/violation/domain.go
package violation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidViolation  = errors.New("invalid violation")
	ErrViolationNotFound = errors.New("violation not found")
)

// Violation is a traffic offence recorded against a rental. It never changes
// the rental's status.
type Violation struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	RentalID        uuid.UUID       `json:"rental_id" db:"rental_id"`
	ViolationTypeID string          `json:"violation_type_id" db:"violation_type_id"`
	Description     string          `json:"description" db:"description"`
	FineAmount      decimal.Decimal `json:"fine_amount" db:"fine_amount"`
	ViolationDate   time.Time       `json:"violation_date" db:"violation_date"`
	IsPaid          bool            `json:"is_paid" db:"is_paid"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// NewViolation carries the fields supplied when recording a violation.
type NewViolation struct {
	RentalID        uuid.UUID
	ViolationTypeID string
	Description     string
	FineAmount      decimal.Decimal
	ViolationDate   time.Time
	IsPaid          bool
}

// ViolationUpdate replaces a violation's fields. A zero RentalID keeps the
// current rental.
type ViolationUpdate struct {
	RentalID        uuid.UUID
	ViolationTypeID string
	Description     string
	FineAmount      decimal.Decimal
	ViolationDate   time.Time
	IsPaid          bool
}
