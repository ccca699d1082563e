// internal/storage/statuses.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aldegalts/car-rental/internal/status"
	"github.com/aldegalts/car-rental/internal/storage/dberr"
)

func statusTable(kind status.Kind) (string, error) {
	switch kind {
	case status.KindRental:
		return "rental_statuses", nil
	case status.KindCar:
		return "car_statuses", nil
	}
	return "", status.ErrInvalidKind
}

func (s *DB) FindStatusByName(ctx context.Context, kind status.Kind, name string) (*status.Status, error) {
	table, err := statusTable(kind)
	if err != nil {
		return nil, err
	}

	st := &status.Status{}
	err = s.db.GetContext(ctx, st, s.db.Rebind(`SELECT id, name FROM `+table+` WHERE lower(name) = lower(?)`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return st, nil
}

func (s *DB) FindStatusByID(ctx context.Context, kind status.Kind, id uuid.UUID) (*status.Status, error) {
	table, err := statusTable(kind)
	if err != nil {
		return nil, err
	}

	st := &status.Status{}
	err = s.db.GetContext(ctx, st, s.db.Rebind(`SELECT id, name FROM `+table+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return st, nil
}

func (s *DB) CreateStatus(ctx context.Context, kind status.Kind, st *status.Status) error {
	table, err := statusTable(kind)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO `+table+` (id, name) VALUES (?, ?)`), st.ID, st.Name)
	if dberr.IsUniqueViolation(err) {
		return status.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *DB) ListStatuses(ctx context.Context, kind status.Kind) ([]*status.Status, error) {
	table, err := statusTable(kind)
	if err != nil {
		return nil, err
	}

	var statuses []*status.Status
	if err := s.db.SelectContext(ctx, &statuses, `SELECT id, name FROM `+table+` ORDER BY name`); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return statuses, nil
}
