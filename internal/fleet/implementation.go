// internal/fleet/implementation.go
package fleet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/status"
)

// service implements the Service interface.
type service struct {
	store    Store
	statuses status.Service
}

// NewService creates a new fleet service instance.
func NewService(store Store, statuses status.Service) Service {
	return &service{store: store, statuses: statuses}
}

// AddCar registers a car. Without an explicit status the car starts out
// Available.
func (s *service) AddCar(ctx context.Context, req NewCar) (*Car, error) {
	req.Brand = strings.TrimSpace(req.Brand)
	req.Model = strings.TrimSpace(req.Model)
	req.LicensePlate = strings.TrimSpace(req.LicensePlate)
	if err := validate(req.Brand, req.Model, req.LicensePlate, req.DailyRate); err != nil {
		return nil, err
	}

	var st *status.Status
	var err error
	if req.StatusID != nil {
		st, err = s.statuses.Get(ctx, status.KindCar, *req.StatusID)
	} else {
		st, err = s.statuses.Resolve(ctx, status.KindCar, status.Available)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve car status: %w", err)
	}

	now := time.Now().UTC()
	car := &Car{
		ID:           uuid.New(),
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		LicensePlate: req.LicensePlate,
		CategoryID:   req.CategoryID,
		ColorID:      req.ColorID,
		DailyRate:    req.DailyRate.Round(2),
		StatusID:     &st.ID,
		Status:       st,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateCar(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to create car: %w", err)
	}
	return car, nil
}

// GetCar retrieves a car by its ID.
func (s *service) GetCar(ctx context.Context, id uuid.UUID) (*Car, error) {
	return s.store.GetCar(ctx, id)
}

// ListCars returns the cars matching filter.
func (s *service) ListCars(ctx context.Context, filter CarFilter) ([]*Car, error) {
	if filter.MinYear != nil && filter.MaxYear != nil && *filter.MinYear > *filter.MaxYear {
		return nil, fmt.Errorf("%w: min year is after max year", ErrInvalidCar)
	}
	if filter.MinRate != nil && filter.MaxRate != nil && filter.MinRate.GreaterThan(*filter.MaxRate) {
		return nil, fmt.Errorf("%w: min rate is above max rate", ErrInvalidCar)
	}

	cars, err := s.store.ListCars(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	return cars, nil
}

// UpdateCar replaces a car's attributes. Moving a car into or out of Rented
// is refused; only rentals change that status.
func (s *service) UpdateCar(ctx context.Context, id uuid.UUID, upd CarUpdate) (*Car, error) {
	upd.Brand = strings.TrimSpace(upd.Brand)
	upd.Model = strings.TrimSpace(upd.Model)
	upd.LicensePlate = strings.TrimSpace(upd.LicensePlate)
	if err := validate(upd.Brand, upd.Model, upd.LicensePlate, upd.DailyRate); err != nil {
		return nil, err
	}

	current, err := s.store.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}

	st := current.Status
	if upd.StatusID != nil && (current.StatusID == nil || *upd.StatusID != *current.StatusID) {
		st, err = s.statuses.Get(ctx, status.KindCar, *upd.StatusID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve car status: %w", err)
		}
		if st.Is(status.Rented) != current.Status.Is(status.Rented) {
			return nil, ErrRentedStatus
		}
	}

	car := &Car{
		ID:           current.ID,
		Brand:        upd.Brand,
		Model:        upd.Model,
		Year:         upd.Year,
		LicensePlate: upd.LicensePlate,
		CategoryID:   upd.CategoryID,
		ColorID:      upd.ColorID,
		DailyRate:    upd.DailyRate.Round(2),
		StatusID:     current.StatusID,
		Status:       st,
		Version:      current.Version + 1,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    time.Now().UTC(),
	}
	if st != nil {
		car.StatusID = &st.ID
	}

	if err := s.store.UpdateCar(ctx, car, current.Version); err != nil {
		return nil, fmt.Errorf("failed to update car: %w", err)
	}
	return car, nil
}

// DeleteCar removes a car that no rental references.
func (s *service) DeleteCar(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteCar(ctx, id)
}

func validate(brand, model, plate string, rate decimal.Decimal) error {
	if brand == "" || model == "" || plate == "" {
		return fmt.Errorf("%w: brand, model and license plate are required", ErrInvalidCar)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: daily rate must not be negative", ErrInvalidCar)
	}
	return nil
}
