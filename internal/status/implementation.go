// internal/status/implementation.go
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// service implements the Service interface.
type service struct {
	store Store
}

// NewService creates a new status catalog service instance.
func NewService(store Store) Service {
	return &service{store: store}
}

// Resolve looks a status up by name and creates it on first use. Two callers
// racing to create the same name are settled by the unique constraint on the
// name column: the loser re-reads the winner's row.
func (s *service) Resolve(ctx context.Context, kind Kind, name string) (*Status, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	st, err := s.store.FindStatusByName(ctx, kind, name)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to find %s status %q: %w", kind, name, err)
	}

	st, err = s.Create(ctx, kind, name)
	if errors.Is(err, ErrDuplicate) {
		st, err = s.store.FindStatusByName(ctx, kind, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s status %q: %w", kind, name, err)
	}
	return st, nil
}

// Get retrieves a status by its ID.
func (s *service) Get(ctx context.Context, kind Kind, id uuid.UUID) (*Status, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return s.store.FindStatusByID(ctx, kind, id)
}

// List returns every status in the catalog.
func (s *service) List(ctx context.Context, kind Kind) ([]*Status, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	statuses, err := s.store.ListStatuses(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s statuses: %w", kind, err)
	}
	return statuses, nil
}

// Create adds a new status to the catalog.
func (s *service) Create(ctx context.Context, kind Kind, name string) (*Status, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	st := &Status{ID: uuid.New(), Name: name}
	if err := s.store.CreateStatus(ctx, kind, st); err != nil {
		return nil, err
	}
	return st, nil
}
