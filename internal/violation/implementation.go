// internal/violation/implementation.go
package violation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/rental"
)

// service implements the Service interface.
type service struct {
	store Store
}

// NewService creates a new violation service instance.
func NewService(store Store) Service {
	return &service{store: store}
}

// Record attaches a violation to an existing rental.
func (s *service) Record(ctx context.Context, req NewViolation) (*Violation, error) {
	if err := validate(req.FineAmount, req.ViolationDate); err != nil {
		return nil, err
	}
	if err := s.requireRental(ctx, req.RentalID); err != nil {
		return nil, err
	}

	v := &Violation{
		ID:              uuid.New(),
		RentalID:        req.RentalID,
		ViolationTypeID: req.ViolationTypeID,
		Description:     req.Description,
		FineAmount:      req.FineAmount.Round(2),
		ViolationDate:   req.ViolationDate.UTC(),
		IsPaid:          req.IsPaid,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.CreateViolation(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create violation: %w", err)
	}
	return v, nil
}

// Get retrieves a violation by its ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Violation, error) {
	return s.store.GetViolation(ctx, id)
}

// GetForCustomer retrieves a violation on one of the customer's rentals.
func (s *service) GetForCustomer(ctx context.Context, customerID, id uuid.UUID) (*Violation, error) {
	return s.store.GetViolationForCustomer(ctx, customerID, id)
}

// Update replaces a violation, typically to mark its fine paid.
func (s *service) Update(ctx context.Context, id uuid.UUID, upd ViolationUpdate) (*Violation, error) {
	if err := validate(upd.FineAmount, upd.ViolationDate); err != nil {
		return nil, err
	}

	current, err := s.store.GetViolation(ctx, id)
	if err != nil {
		return nil, err
	}
	rentalID := current.RentalID
	if upd.RentalID != uuid.Nil && upd.RentalID != current.RentalID {
		if err := s.requireRental(ctx, upd.RentalID); err != nil {
			return nil, err
		}
		rentalID = upd.RentalID
	}

	v := &Violation{
		ID:              current.ID,
		RentalID:        rentalID,
		ViolationTypeID: upd.ViolationTypeID,
		Description:     upd.Description,
		FineAmount:      upd.FineAmount.Round(2),
		ViolationDate:   upd.ViolationDate.UTC(),
		IsPaid:          upd.IsPaid,
		CreatedAt:       current.CreatedAt,
	}
	if err := s.store.UpdateViolation(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update violation: %w", err)
	}
	return v, nil
}

// Delete removes a violation.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteViolation(ctx, id)
}

// ListAll returns every recorded violation.
func (s *service) ListAll(ctx context.Context) ([]*Violation, error) {
	violations, err := s.store.ListViolations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	return violations, nil
}

// ListForRental returns the violations recorded against a rental.
func (s *service) ListForRental(ctx context.Context, rentalID uuid.UUID) ([]*Violation, error) {
	if err := s.requireRental(ctx, rentalID); err != nil {
		return nil, err
	}
	return s.store.ListViolationsByRental(ctx, rentalID)
}

// ListForCustomer returns the violations on every rental of a customer.
func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*Violation, error) {
	return s.store.ListViolationsByCustomer(ctx, customerID)
}

func (s *service) requireRental(ctx context.Context, rentalID uuid.UUID) error {
	ok, err := s.store.RentalExists(ctx, rentalID)
	if err != nil {
		return fmt.Errorf("failed to look up rental: %w", err)
	}
	if !ok {
		return rental.ErrRentalNotFound
	}
	return nil
}

func validate(fine decimal.Decimal, when time.Time) error {
	if fine.IsNegative() {
		return fmt.Errorf("%w: fine amount must not be negative", ErrInvalidViolation)
	}
	if when.IsZero() {
		return fmt.Errorf("%w: violation date is required", ErrInvalidViolation)
	}
	return nil
}
