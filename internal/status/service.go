// internal/status/service.go
package status

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the status catalogs.
type Service interface {
	// Resolve returns the status with the given name, creating it when absent.
	Resolve(ctx context.Context, kind Kind, name string) (*Status, error)
	Get(ctx context.Context, kind Kind, id uuid.UUID) (*Status, error)
	List(ctx context.Context, kind Kind) ([]*Status, error)
	Create(ctx context.Context, kind Kind, name string) (*Status, error)
}

// Store is the persistence the catalogs need. Names are unique per catalog
// ignoring case, and FindStatusByName matches them the same way.
type Store interface {
	FindStatusByName(ctx context.Context, kind Kind, name string) (*Status, error)
	FindStatusByID(ctx context.Context, kind Kind, id uuid.UUID) (*Status, error)
	CreateStatus(ctx context.Context, kind Kind, st *Status) error
	ListStatuses(ctx context.Context, kind Kind) ([]*Status, error)
}
