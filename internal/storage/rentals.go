// internal/storage/rentals.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aldegalts/car-rental/internal/eventlog"
	"github.com/aldegalts/car-rental/internal/rental"
	"github.com/aldegalts/car-rental/internal/status"
)

const rentalColumns = `
	r.id, r.customer_id, r.car_id, r.start_date, r.end_date, r.total_amount,
	r.status_id, r.created_at, r.updated_at,
	s.name AS status_name
	FROM rentals r
	LEFT JOIN rental_statuses s ON s.id = r.status_id`

// countChunk bounds the bind parameters of one IN clause.
const countChunk = 500

type rentalRow struct {
	rental.Rental
	StatusName sql.NullString `db:"status_name"`
}

func (row *rentalRow) toRental() *rental.Rental {
	r := row.Rental
	r.StartDate = r.StartDate.UTC()
	r.EndDate = r.EndDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	if row.StatusName.Valid {
		r.Status = &status.Status{ID: r.StatusID, Name: row.StatusName.String}
	}
	return &r
}

func (s *DB) selectRentals(ctx context.Context, query string, args ...any) ([]*rental.Rental, error) {
	var rows []rentalRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query rentals: %w", err)
	}

	rentals := make([]*rental.Rental, 0, len(rows))
	for i := range rows {
		rentals = append(rentals, rows[i].toRental())
	}
	return rentals, nil
}

func (s *DB) GetRental(ctx context.Context, id uuid.UUID) (*rental.Rental, error) {
	var row rentalRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+rentalColumns+` WHERE r.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rental.ErrRentalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rental: %w", err)
	}
	return row.toRental(), nil
}

func (s *DB) ListRentals(ctx context.Context, filter rental.Filter) ([]*rental.Rental, error) {
	var where []string
	var args []any
	if filter.CarID != nil {
		where = append(where, "r.car_id = ?")
		args = append(args, *filter.CarID)
	}
	if filter.CustomerID != nil {
		where = append(where, "r.customer_id = ?")
		args = append(args, *filter.CustomerID)
	}

	query := `SELECT ` + rentalColumns
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.start_date DESC, r.id`
	return s.selectRentals(ctx, query, args...)
}

func (s *DB) FindActiveExpiredBefore(ctx context.Context, activeID uuid.UUID, now time.Time) ([]*rental.Rental, error) {
	return s.selectRentals(ctx, `SELECT `+rentalColumns+`
		WHERE r.status_id = ? AND r.end_date < ?
		ORDER BY r.end_date`, activeID, utc(now))
}

func (s *DB) FindByWindow(ctx context.Context, start, end time.Time) ([]*rental.Rental, error) {
	return s.selectRentals(ctx, `SELECT `+rentalColumns+`
		WHERE r.start_date >= ? AND r.end_date <= ?
		ORDER BY r.start_date, r.id`, utc(start), utc(end))
}

// CountRentalsWithViolations counts how many of rentalIDs have at least one
// violation.
func (s *DB) CountRentalsWithViolations(ctx context.Context, rentalIDs []uuid.UUID) (int, error) {
	total := 0
	for start := 0; start < len(rentalIDs); start += countChunk {
		end := min(start+countChunk, len(rentalIDs))

		query, args, err := sqlx.In(`
			SELECT COUNT(DISTINCT rental_id) FROM violations
			WHERE rental_id IN (?)
		`, rentalIDs[start:end])
		if err != nil {
			return 0, fmt.Errorf("build violation count: %w", err)
		}

		var n int
		if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
			return 0, fmt.Errorf("count violations: %w", err)
		}
		total += n
	}
	return total, nil
}

func (s *DB) LoadEvents(ctx context.Context, rentalID uuid.UUID) ([]eventlog.Event, error) {
	return s.events.Load(ctx, s.db, rentalID)
}

func (t *tx) InsertRental(ctx context.Context, r *rental.Rental) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		INSERT INTO rentals (id, customer_id, car_id, start_date, end_date, total_amount,
			status_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.CustomerID, r.CarID, utc(r.StartDate), utc(r.EndDate), r.TotalAmount,
		r.StatusID, utc(r.CreatedAt), utc(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert rental: %w", err)
	}
	return nil
}

func (t *tx) ReplaceRental(ctx context.Context, r *rental.Rental) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE rentals
		SET customer_id = ?, car_id = ?, start_date = ?, end_date = ?, total_amount = ?,
			status_id = ?, updated_at = ?
		WHERE id = ?
	`), r.CustomerID, r.CarID, utc(r.StartDate), utc(r.EndDate), r.TotalAmount,
		r.StatusID, utc(r.UpdatedAt), r.ID)
	if err != nil {
		return fmt.Errorf("update rental: %w", err)
	}
	return expectRow(res, rental.ErrRentalNotFound)
}

func (t *tx) DeleteRental(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM rentals WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete rental: %w", err)
	}
	return expectRow(res, rental.ErrRentalNotFound)
}

func (t *tx) SetRentalStatus(ctx context.Context, id, from, to uuid.UUID) (bool, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE rentals
		SET status_id = ?, updated_at = ?
		WHERE id = ? AND status_id = ?
	`), to, utc(time.Now()), id, from)
	if err != nil {
		return false, fmt.Errorf("update rental status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update rental status: %w", err)
	}
	return n > 0, nil
}

func (t *tx) AppendEvent(ctx context.Context, rentalID uuid.UUID, event eventlog.Event) error {
	if err := t.events.Append(ctx, t.tx, rentalID, rental.AggregateType, event); err != nil {
		return fmt.Errorf("append %s event: %w", event.EventType, err)
	}
	return nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
