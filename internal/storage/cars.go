// internal/storage/cars.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aldegalts/car-rental/internal/fleet"
	"github.com/aldegalts/car-rental/internal/status"
	"github.com/aldegalts/car-rental/internal/storage/dberr"
)

const carColumns = `
	c.id, c.brand, c.model, c.year, c.license_plate, c.category_id, c.color_id,
	c.daily_rate, c.status_id, c.version, c.created_at, c.updated_at,
	s.name AS status_name
	FROM cars c
	LEFT JOIN car_statuses s ON s.id = c.status_id`

type carRow struct {
	fleet.Car
	StatusName sql.NullString `db:"status_name"`
}

func (row *carRow) toCar() *fleet.Car {
	car := row.Car
	car.CreatedAt = car.CreatedAt.UTC()
	car.UpdatedAt = car.UpdatedAt.UTC()
	if car.StatusID != nil && row.StatusName.Valid {
		car.Status = &status.Status{ID: *car.StatusID, Name: row.StatusName.String}
	}
	return &car
}

func (s *DB) CreateCar(ctx context.Context, car *fleet.Car) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO cars (id, brand, model, year, license_plate, category_id, color_id,
			daily_rate, status_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), car.ID, car.Brand, car.Model, car.Year, car.LicensePlate, car.CategoryID, car.ColorID,
		car.DailyRate, car.StatusID, car.Version, utc(car.CreatedAt), utc(car.UpdatedAt))
	if dberr.IsUniqueViolation(err) {
		return fleet.ErrDuplicatePlate
	}
	if err != nil {
		return fmt.Errorf("insert car: %w", err)
	}
	return nil
}

func (s *DB) GetCar(ctx context.Context, id uuid.UUID) (*fleet.Car, error) {
	var row carRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+carColumns+` WHERE c.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fleet.ErrCarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query car: %w", err)
	}
	return row.toCar(), nil
}

func (s *DB) ListCars(ctx context.Context, filter fleet.CarFilter) ([]*fleet.Car, error) {
	var where []string
	var args []any
	if filter.Brand != "" {
		where = append(where, "lower(c.brand) = lower(?)")
		args = append(args, filter.Brand)
	}
	if filter.Model != "" {
		where = append(where, "lower(c.model) = lower(?)")
		args = append(args, filter.Model)
	}
	if filter.CategoryID != "" {
		where = append(where, "c.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.ColorID != "" {
		where = append(where, "c.color_id = ?")
		args = append(args, filter.ColorID)
	}
	if filter.MinYear != nil {
		where = append(where, "c.year >= ?")
		args = append(args, *filter.MinYear)
	}
	if filter.MaxYear != nil {
		where = append(where, "c.year <= ?")
		args = append(args, *filter.MaxYear)
	}
	if filter.MinRate != nil {
		where = append(where, s.rateColumn()+" >= ?")
		args = append(args, s.rateArg(*filter.MinRate))
	}
	if filter.MaxRate != nil {
		where = append(where, s.rateColumn()+" <= ?")
		args = append(args, s.rateArg(*filter.MaxRate))
	}

	query := `SELECT ` + carColumns
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY c.brand, c.model, c.license_plate`

	var rows []carRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}

	cars := make([]*fleet.Car, 0, len(rows))
	for i := range rows {
		cars = append(cars, rows[i].toCar())
	}
	return cars, nil
}

// SQLite keeps rates as text, so range checks compare them numerically.
func (s *DB) rateColumn() string {
	if s.db.DriverName() == DriverSQLite {
		return "CAST(c.daily_rate AS REAL)"
	}
	return "c.daily_rate"
}

func (s *DB) rateArg(rate decimal.Decimal) any {
	if s.db.DriverName() == DriverSQLite {
		return rate.InexactFloat64()
	}
	return rate
}

func (s *DB) UpdateCar(ctx context.Context, car *fleet.Car, version int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE cars
		SET brand = ?, model = ?, year = ?, license_plate = ?, category_id = ?, color_id = ?,
			daily_rate = ?, status_id = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`), car.Brand, car.Model, car.Year, car.LicensePlate, car.CategoryID, car.ColorID,
		car.DailyRate, car.StatusID, car.Version, utc(car.UpdatedAt), car.ID, version)
	if dberr.IsUniqueViolation(err) {
		return fleet.ErrDuplicatePlate
	}
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	if n == 0 {
		return fleet.ErrVersionConflict
	}
	return nil
}

func (s *DB) DeleteCar(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM cars WHERE id = ?`), id)
	if dberr.IsForeignKeyViolation(err) {
		return fleet.ErrCarInUse
	}
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	if n == 0 {
		return fleet.ErrCarNotFound
	}
	return nil
}

func (t *tx) CompareAndSetCarStatus(ctx context.Context, carID, statusID uuid.UUID, version int) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE cars
		SET status_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`), statusID, utc(time.Now()), carID, version)
	if err != nil {
		return fmt.Errorf("update car status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update car status: %w", err)
	}
	if n == 0 {
		return fleet.ErrVersionConflict
	}
	return nil
}

func (t *tx) SetCarStatus(ctx context.Context, carID, statusID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE cars
		SET status_id = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`), statusID, utc(time.Now()), carID)
	if err != nil {
		return fmt.Errorf("update car status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update car status: %w", err)
	}
	if n == 0 {
		return fleet.ErrCarNotFound
	}
	return nil
}
