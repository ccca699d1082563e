// internal/storage/storage.go
package storage

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/aldegalts/car-rental/internal/eventlog"
	"github.com/aldegalts/car-rental/internal/rental"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrations embed.FS

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB is the sqlx-backed store for every service package.
type DB struct {
	db     *sqlx.DB
	events *eventlog.Log
	tracer trace.Tracer
}

// Open connects to driver at dsn, waiting for the database to come up.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite has a single writer. One connection serializes transactions
		// instead of failing them with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		db:     db,
		events: eventlog.New(),
		tracer: otel.Tracer("car-rental/storage"),
	}, nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Migrate applies every pending migration for the connected dialect.
func (s *DB) Migrate() (int, error) {
	dialect, root := "postgres", "migrations/postgres"
	if s.db.DriverName() == DriverSQLite {
		dialect, root = "sqlite3", "migrations/sqlite"
	}

	source := &migrate.EmbedFileSystemMigrationSource{FileSystem: migrations, Root: root}
	n, err := migrate.Exec(s.db.DB, dialect, source, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DB) Close() error {
	return s.db.Close()
}

// InTx runs fn inside one database transaction.
func (s *DB) InTx(ctx context.Context, fn func(tx rental.Tx) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "storage.tx",
		trace.WithAttributes(attribute.String("db.system", s.db.DriverName())),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx, events: s.events}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// tx implements rental.Tx on an open transaction.
type tx struct {
	tx     *sqlx.Tx
	events *eventlog.Log
}

func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
