// internal/fleet/domain.go
package fleet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/status"
)

var (
	ErrCarNotFound     = errors.New("car not found")
	ErrVersionConflict = errors.New("car was modified concurrently")
	ErrDuplicatePlate  = errors.New("license plate already registered")
	ErrInvalidCar      = errors.New("invalid car")
	ErrCarInUse        = errors.New("car has rentals")
	ErrRentedStatus    = errors.New("rented status is managed by rentals")
)

// Car is a vehicle in the fleet. Category and color are opaque references to
// catalogs maintained elsewhere.
type Car struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Brand        string          `json:"brand" db:"brand"`
	Model        string          `json:"model" db:"model"`
	Year         int             `json:"year" db:"year"`
	LicensePlate string          `json:"license_plate" db:"license_plate"`
	CategoryID   string          `json:"category_id" db:"category_id"`
	ColorID      string          `json:"color_id" db:"color_id"`
	DailyRate    decimal.Decimal `json:"daily_rate" db:"daily_rate"`
	StatusID     *uuid.UUID      `json:"car_status_id,omitempty" db:"status_id"`
	Status       *status.Status  `json:"car_status,omitempty" db:"-"`
	Version      int             `json:"version" db:"version"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// NewCar carries the fields an administrator supplies when registering a car.
type NewCar struct {
	Brand        string
	Model        string
	Year         int
	LicensePlate string
	CategoryID   string
	ColorID      string
	DailyRate    decimal.Decimal
	StatusID     *uuid.UUID
}

// CarUpdate replaces a car's attributes. A nil StatusID keeps the current
// status.
type CarUpdate struct {
	Brand        string
	Model        string
	Year         int
	LicensePlate string
	CategoryID   string
	ColorID      string
	DailyRate    decimal.Decimal
	StatusID     *uuid.UUID
}

// CarFilter narrows ListCars. Zero fields match everything. Brand and model
// match ignoring case; ranges are inclusive.
type CarFilter struct {
	Brand      string
	Model      string
	CategoryID string
	ColorID    string
	MinYear    *int
	MaxYear    *int
	MinRate    *decimal.Decimal
	MaxRate    *decimal.Decimal
}

// Quote prices a rental at the flat daily rate. Both the first and the last
// calendar day are charged, so a same-day rental costs one day.
func Quote(dailyRate decimal.Decimal, start, end time.Time) decimal.Decimal {
	days := int64(end.Sub(start) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	return dailyRate.Mul(decimal.NewFromInt(days + 1)).Round(2)
}
