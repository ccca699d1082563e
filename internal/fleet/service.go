// internal/fleet/service.go
package fleet

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the operations for the car fleet.
type Service interface {
	AddCar(ctx context.Context, car NewCar) (*Car, error)
	GetCar(ctx context.Context, id uuid.UUID) (*Car, error)
	ListCars(ctx context.Context, filter CarFilter) ([]*Car, error)
	UpdateCar(ctx context.Context, id uuid.UUID, upd CarUpdate) (*Car, error)
	DeleteCar(ctx context.Context, id uuid.UUID) error
}

// Store persists cars. GetCar returns ErrCarNotFound for unknown ids and
// attaches the car's status when it has one. UpdateCar writes car only while
// the stored version still equals version, else ErrVersionConflict. DeleteCar
// returns ErrCarInUse while rentals reference the car.
type Store interface {
	CreateCar(ctx context.Context, car *Car) error
	GetCar(ctx context.Context, id uuid.UUID) (*Car, error)
	ListCars(ctx context.Context, filter CarFilter) ([]*Car, error)
	UpdateCar(ctx context.Context, car *Car, version int) error
	DeleteCar(ctx context.Context, id uuid.UUID) error
}
