// internal/storage/violations.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aldegalts/car-rental/internal/violation"
)

const violationColumns = `
	v.id, v.rental_id, v.violation_type_id, v.description, v.fine_amount,
	v.violation_date, v.is_paid, v.created_at`

func (s *DB) RentalExists(ctx context.Context, rentalID uuid.UUID) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM rentals WHERE id = ?`), rentalID); err != nil {
		return false, fmt.Errorf("query rental: %w", err)
	}
	return n > 0, nil
}

func (s *DB) CreateViolation(ctx context.Context, v *violation.Violation) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO violations (id, rental_id, violation_type_id, description, fine_amount,
			violation_date, is_paid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), v.ID, v.RentalID, v.ViolationTypeID, v.Description, v.FineAmount,
		utc(v.ViolationDate), v.IsPaid, utc(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

func (s *DB) GetViolation(ctx context.Context, id uuid.UUID) (*violation.Violation, error) {
	return s.getViolation(ctx, `SELECT `+violationColumns+`
		FROM violations v
		WHERE v.id = ?`, id)
}

func (s *DB) GetViolationForCustomer(ctx context.Context, customerID, id uuid.UUID) (*violation.Violation, error) {
	return s.getViolation(ctx, `SELECT `+violationColumns+`
		FROM violations v
		JOIN rentals r ON r.id = v.rental_id
		WHERE v.id = ? AND r.customer_id = ?`, id, customerID)
}

func (s *DB) getViolation(ctx context.Context, query string, args ...any) (*violation.Violation, error) {
	var v violation.Violation
	err := s.db.GetContext(ctx, &v, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, violation.ErrViolationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query violation: %w", err)
	}
	v.ViolationDate = v.ViolationDate.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

func (s *DB) UpdateViolation(ctx context.Context, v *violation.Violation) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE violations
		SET rental_id = ?, violation_type_id = ?, description = ?, fine_amount = ?,
			violation_date = ?, is_paid = ?
		WHERE id = ?
	`), v.RentalID, v.ViolationTypeID, v.Description, v.FineAmount,
		utc(v.ViolationDate), v.IsPaid, v.ID)
	if err != nil {
		return fmt.Errorf("update violation: %w", err)
	}
	return expectRow(res, violation.ErrViolationNotFound)
}

func (s *DB) DeleteViolation(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM violations WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete violation: %w", err)
	}
	return expectRow(res, violation.ErrViolationNotFound)
}

func (s *DB) ListViolations(ctx context.Context) ([]*violation.Violation, error) {
	return s.selectViolations(ctx, `SELECT `+violationColumns+`
		FROM violations v
		ORDER BY v.violation_date DESC, v.id`)
}

func (s *DB) ListViolationsByRental(ctx context.Context, rentalID uuid.UUID) ([]*violation.Violation, error) {
	return s.selectViolations(ctx, `SELECT `+violationColumns+`
		FROM violations v
		WHERE v.rental_id = ?
		ORDER BY v.violation_date`, rentalID)
}

func (s *DB) ListViolationsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*violation.Violation, error) {
	return s.selectViolations(ctx, `SELECT `+violationColumns+`
		FROM violations v
		JOIN rentals r ON r.id = v.rental_id
		WHERE r.customer_id = ?
		ORDER BY v.violation_date`, customerID)
}

func (s *DB) selectViolations(ctx context.Context, query string, args ...any) ([]*violation.Violation, error) {
	var violations []*violation.Violation
	if err := s.db.SelectContext(ctx, &violations, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	for _, v := range violations {
		v.ViolationDate = v.ViolationDate.UTC()
		v.CreatedAt = v.CreatedAt.UTC()
	}
	return violations, nil
}
