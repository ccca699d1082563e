// internal/eventlog/eventlog.go
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aldegalts/car-rental/internal/storage/dberr"
)

var ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")

// Event is one entry in an aggregate's lifecycle history.
type Event struct {
	ID            int64           `json:"id" db:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventData     json.RawMessage `json:"event_data" db:"-"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so events can be
// appended inside the caller's transaction.
type Querier interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(query string) string
}

// Log appends and loads events from the events table.
type Log struct {
	tracer trace.Tracer
}

func New() *Log {
	return &Log{tracer: otel.Tracer("car-rental/eventlog")}
}

// Append writes events for an aggregate after its current last version.
// A concurrent writer claiming the same version yields ErrConcurrencyConflict.
func (l *Log) Append(ctx context.Context, q Querier, aggregateID uuid.UUID, aggregateType string, events ...Event) error {
	ctx, span := l.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	var current int
	err := sqlx.GetContext(ctx, q, &current, q.Rebind(`
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = ?
	`), aggregateID)
	if err != nil {
		return fmt.Errorf("query current version: %w", err)
	}

	insert := q.Rebind(`
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i, event := range events {
		version := current + i + 1
		data := event.EventData
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}

		_, err := q.ExecContext(ctx, insert,
			aggregateID,
			aggregateType,
			event.EventType,
			string(data),
			version,
			time.Now().UTC(),
		)
		if err != nil {
			if dberr.IsUniqueViolation(err) {
				span.SetAttributes(attribute.Bool("conflict.detected", true))
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}
	return nil
}

// Load returns every event of an aggregate in version order.
func (l *Log) Load(ctx context.Context, q Querier, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var rows []struct {
		Event
		Data string `db:"event_data"`
	}
	err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		WHERE aggregate_id = ?
		ORDER BY version ASC
	`), aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := row.Event
		event.EventData = json.RawMessage(row.Data)
		events = append(events, event)
	}
	span.SetAttributes(attribute.Int("event.count", len(events)))
	return events, nil
}

// Marshal builds an event of the given type carrying data as its payload.
func Marshal(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return Event{EventType: eventType, EventData: raw}, nil
}
