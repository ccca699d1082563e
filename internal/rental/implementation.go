// internal/rental/implementation.go
package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aldegalts/car-rental/internal/eventlog"
	"github.com/aldegalts/car-rental/internal/fleet"
	"github.com/aldegalts/car-rental/internal/status"
)

// Option configures the engine.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithSweepOnRead toggles reconciliation before every rental read.
func WithSweepOnRead(enabled bool) Option {
	return func(s *service) { s.sweepOnRead = enabled }
}

// WithMeter records engine counters on meter instead of the global one.
func WithMeter(meter metric.Meter) Option {
	return func(s *service) { s.meter = meter }
}

// service implements the Service interface.
type service struct {
	store       Store
	statuses    status.Service
	log         logr.Logger
	now         func() time.Time
	sweepOnRead bool
	breaker     *gobreaker.CircuitBreaker
	meter       metric.Meter

	created   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	refused   metric.Int64Counter
}

// NewService creates a new rental lifecycle engine.
func NewService(store Store, statuses status.Service, log logr.Logger, opts ...Option) Service {
	s := &service{
		store:       store,
		statuses:    statuses,
		log:         log.WithName("rental"),
		now:         time.Now,
		sweepOnRead: true,
		meter:       otel.Meter("car-rental/rental"),
	}
	for _, opt := range opts {
		opt(s)
	}

	// On-read reconciliation stops hammering a failing database after a few
	// consecutive errors and retries after the timeout.
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sweep-on-read",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	s.created, _ = s.meter.Int64Counter("carrental.rentals.created",
		metric.WithDescription("Rentals created."))
	s.completed, _ = s.meter.Int64Counter("carrental.rentals.completed",
		metric.WithDescription("Rentals completed by the expiry sweep."))
	s.failed, _ = s.meter.Int64Counter("carrental.sweep.failures",
		metric.WithDescription("Rentals the expiry sweep failed to complete."))
	s.refused, _ = s.meter.Int64Counter("carrental.rentals.refused",
		metric.WithDescription("Rental requests refused because the car was unavailable."))
	return s
}

// Create books a car. The car must pass the availability gate, and the car
// status change, the rental row and its creation event commit together.
func (s *service) Create(ctx context.Context, req NewRental) (*Rental, error) {
	// Step 1: Validate the request
	start, end := normalize(req.StartDate), normalize(req.EndDate)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidRental)
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: total amount must not be negative", ErrInvalidRental)
	}

	// Step 2: Load the car and check availability
	car, err := s.store.GetCar(ctx, req.CarID)
	if err != nil {
		return nil, fmt.Errorf("failed to load car: %w", err)
	}
	if !fleet.CanStartRental(car) {
		s.refused.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "rented")))
		return nil, ErrCarUnavailable
	}

	// Step 3: Resolve the statuses the booking moves into
	active, err := s.statuses.Resolve(ctx, status.KindRental, status.Active)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	rented, err := s.statuses.Resolve(ctx, status.KindCar, status.Rented)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	amount := fleet.Quote(car.DailyRate, start, end)
	if req.Amount != nil {
		amount = req.Amount.Round(2)
	}

	now := normalize(s.now())
	r := &Rental{
		ID:          uuid.New(),
		CustomerID:  req.CustomerID,
		CarID:       car.ID,
		StartDate:   start,
		EndDate:     end,
		TotalAmount: amount,
		StatusID:    active.ID,
		Status:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	event, err := eventlog.Marshal(EventRentalCreated, RentalCreatedEvent{
		RentalID:    r.ID,
		CustomerID:  r.CustomerID,
		CarID:       r.CarID,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		TotalAmount: r.TotalAmount,
	})
	if err != nil {
		return nil, err
	}

	// Step 4: Claim the car and persist the rental atomically
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.CompareAndSetCarStatus(ctx, car.ID, rented.ID, car.Version); err != nil {
			return err
		}
		if err := tx.InsertRental(ctx, r); err != nil {
			return fmt.Errorf("failed to insert rental: %w", err)
		}
		return tx.AppendEvent(ctx, r.ID, event)
	})
	if errors.Is(err, fleet.ErrVersionConflict) {
		s.refused.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "version_conflict")))
		return nil, ErrCarUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create rental: %w", err)
	}

	s.created.Add(ctx, 1)
	s.log.Info("rental created", "rental_id", r.ID, "car_id", r.CarID, "customer_id", r.CustomerID)
	return r, nil
}

// SweepExpired completes every Active rental whose end has passed and frees
// its car. Each rental is reconciled in its own transaction; a failure is
// reported and the rest of the batch still runs.
func (s *service) SweepExpired(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{Completed: []uuid.UUID{}, Failed: []SweepFailure{}}

	active, err := s.statuses.Resolve(ctx, status.KindRental, status.Active)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	completed, err := s.statuses.Resolve(ctx, status.KindRental, status.Completed)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	available, err := s.statuses.Resolve(ctx, status.KindCar, status.Available)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	now := normalize(s.now())
	expired, err := s.store.FindActiveExpiredBefore(ctx, active.ID, now)
	if err != nil {
		return result, fmt.Errorf("failed to find expired rentals: %w", err)
	}

	for _, r := range expired {
		moved, err := s.complete(ctx, r, active.ID, completed.ID, available.ID, now)
		if err != nil {
			s.failed.Add(ctx, 1)
			s.log.Error(err, "failed to complete expired rental", "rental_id", r.ID)
			result.Failed = append(result.Failed, SweepFailure{RentalID: r.ID, Reason: err.Error()})
			continue
		}
		if moved {
			result.Completed = append(result.Completed, r.ID)
		}
	}

	if n := result.Count(); n > 0 {
		s.completed.Add(ctx, int64(n))
		s.log.Info("expired rentals completed", "count", n, "failed", len(result.Failed))
	}
	return result, nil
}

func (s *service) complete(ctx context.Context, r *Rental, activeID, completedID, availableID uuid.UUID, now time.Time) (bool, error) {
	event, err := eventlog.Marshal(EventRentalCompleted, RentalCompletedEvent{
		RentalID:    r.ID,
		CarID:       r.CarID,
		EndDate:     r.EndDate,
		CompletedAt: now,
	})
	if err != nil {
		return false, err
	}

	var moved bool
	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		moved, err = tx.SetRentalStatus(ctx, r.ID, activeID, completedID)
		if err != nil || !moved {
			return err
		}
		if err := tx.SetCarStatus(ctx, r.CarID, availableID); err != nil {
			return fmt.Errorf("failed to release car: %w", err)
		}
		return tx.AppendEvent(ctx, r.ID, event)
	})
	return moved, err
}

// reconcile runs the sweep ahead of a read. Its failures are logged and
// never surface to the reader.
func (s *service) reconcile(ctx context.Context) {
	if !s.sweepOnRead {
		return
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return s.SweepExpired(ctx)
	})
	if err != nil {
		s.log.Error(err, "on-read sweep failed")
	}
}

// Get retrieves a rental by its ID.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Rental, error) {
	s.reconcile(ctx)
	return s.store.GetRental(ctx, id)
}

// GetForCustomer retrieves a rental owned by customerID. Rentals of other
// customers are reported as not found.
func (s *service) GetForCustomer(ctx context.Context, customerID, id uuid.UUID) (*Rental, error) {
	s.reconcile(ctx)
	r, err := s.store.GetRental(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CustomerID != customerID {
		return nil, ErrRentalNotFound
	}
	return r, nil
}

// List returns rentals matching filter.
func (s *service) List(ctx context.Context, filter Filter) ([]*Rental, error) {
	s.reconcile(ctx)
	rentals, err := s.store.ListRentals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	return rentals, nil
}

// ListForCustomer returns the rentals of one customer.
func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*Rental, error) {
	return s.List(ctx, Filter{CustomerID: &customerID})
}

// IsValid reports whether a rental is Active and has not passed its end.
func (s *service) IsValid(ctx context.Context, id uuid.UUID) (bool, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return r.Status.Is(status.Active) && !r.expired(s.now()), nil
}

// Update replaces a rental. Car statuses follow the change: a car leaving an
// Active rental becomes Available and a car joining one must pass the gate
// and becomes Rented.
func (s *service) Update(ctx context.Context, id uuid.UUID, upd RentalUpdate) (*Rental, error) {
	upd.StartDate, upd.EndDate = normalize(upd.StartDate), normalize(upd.EndDate)
	if upd.EndDate.Before(upd.StartDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidRental)
	}
	if upd.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: total amount must not be negative", ErrInvalidRental)
	}

	current, err := s.store.GetRental(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := s.statuses.Get(ctx, status.KindRental, upd.StatusID)
	if errors.Is(err, status.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown rental status %s", ErrInvalidRental, upd.StatusID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rental status: %w", err)
	}
	rented, err := s.statuses.Resolve(ctx, status.KindCar, status.Rented)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	available, err := s.statuses.Resolve(ctx, status.KindCar, status.Available)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	wasActive := current.Status.Is(status.Active)
	isActive := next.Is(status.Active)
	carChanged := upd.CarID != current.CarID

	var claim *fleet.Car
	if isActive && (carChanged || !wasActive) {
		claim, err = s.store.GetCar(ctx, upd.CarID)
		if err != nil {
			return nil, err
		}
		if !fleet.CanStartRental(claim) {
			return nil, ErrCarUnavailable
		}
	} else if carChanged {
		if _, err := s.store.GetCar(ctx, upd.CarID); err != nil {
			return nil, err
		}
	}

	updated := *current
	updated.CustomerID = upd.CustomerID
	updated.CarID = upd.CarID
	updated.StartDate = upd.StartDate
	updated.EndDate = upd.EndDate
	updated.TotalAmount = upd.TotalAmount.Round(2)
	updated.StatusID = next.ID
	updated.Status = next
	updated.UpdatedAt = normalize(s.now())

	event, err := eventlog.Marshal(EventRentalUpdated, RentalUpdatedEvent{
		RentalID: id,
		Before:   current.snapshot(),
		After:    updated.snapshot(),
	})
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if wasActive && (carChanged || !isActive) {
			if err := tx.SetCarStatus(ctx, current.CarID, available.ID); err != nil {
				return fmt.Errorf("failed to release car: %w", err)
			}
		}
		if claim != nil {
			if err := tx.CompareAndSetCarStatus(ctx, claim.ID, rented.ID, claim.Version); err != nil {
				return err
			}
		}
		if err := tx.ReplaceRental(ctx, &updated); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, id, event)
	})
	if errors.Is(err, fleet.ErrVersionConflict) {
		return nil, ErrCarUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rental: %w", err)
	}

	s.log.Info("rental updated", "rental_id", id, "status", next.Name)
	return &updated, nil
}

// Delete removes a rental, freeing its car if the rental was Active.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.store.GetRental(ctx, id)
	if err != nil {
		return err
	}

	var availableID uuid.UUID
	wasActive := current.Status.Is(status.Active)
	if wasActive {
		available, err := s.statuses.Resolve(ctx, status.KindCar, status.Available)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		availableID = available.ID
	}

	event, err := eventlog.Marshal(EventRentalDeleted, RentalDeletedEvent{RentalID: id, CarID: current.CarID})
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if wasActive {
			if err := tx.SetCarStatus(ctx, current.CarID, availableID); err != nil {
				return fmt.Errorf("failed to release car: %w", err)
			}
		}
		if err := tx.DeleteRental(ctx, id); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, id, event)
	})
	if err != nil {
		return fmt.Errorf("failed to delete rental: %w", err)
	}

	s.log.Info("rental deleted", "rental_id", id)
	return nil
}

// History returns the lifecycle events of a rental. The history outlives the
// rental itself, so only an id with no events at all is unknown.
func (s *service) History(ctx context.Context, id uuid.UUID) ([]eventlog.Event, error) {
	events, err := s.store.LoadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rental history: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrRentalNotFound
	}
	return events, nil
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
