// internal/rental/fake_test.go
package rental

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aldegalts/car-rental/internal/eventlog"
	"github.com/aldegalts/car-rental/internal/fleet"
	"github.com/aldegalts/car-rental/internal/status"
)

// memStatuses is an in-memory status.Store.
type memStatuses struct {
	mu   sync.Mutex
	rows map[status.Kind]map[uuid.UUID]*status.Status
	err  error
}

func newMemStatuses() *memStatuses {
	return &memStatuses{rows: map[status.Kind]map[uuid.UUID]*status.Status{
		status.KindRental: {},
		status.KindCar:    {},
	}}
}

func (m *memStatuses) FindStatusByName(_ context.Context, kind status.Kind, name string) (*status.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, st := range m.rows[kind] {
		if strings.EqualFold(st.Name, name) {
			return st, nil
		}
	}
	return nil, status.ErrNotFound
}

func (m *memStatuses) FindStatusByID(_ context.Context, kind status.Kind, id uuid.UUID) (*status.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	st, ok := m.rows[kind][id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return st, nil
}

func (m *memStatuses) CreateStatus(_ context.Context, kind status.Kind, st *status.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.rows[kind] {
		if strings.EqualFold(existing.Name, st.Name) {
			return status.ErrDuplicate
		}
	}
	m.rows[kind][st.ID] = st
	return nil
}

func (m *memStatuses) ListStatuses(_ context.Context, kind status.Kind) ([]*status.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*status.Status
	for _, st := range m.rows[kind] {
		out = append(out, st)
	}
	return out, nil
}

func (m *memStatuses) lookup(kind status.Kind, id uuid.UUID) *status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[kind][id]
}

// state is the data behind fakeStore. Transactions work on a copy and swap
// it in on commit.
type state struct {
	cars       map[uuid.UUID]fleet.Car
	rentals    map[uuid.UUID]Rental
	violations map[uuid.UUID]int
	events     map[uuid.UUID][]eventlog.Event
}

func (s *state) clone() *state {
	c := &state{
		cars:       make(map[uuid.UUID]fleet.Car, len(s.cars)),
		rentals:    make(map[uuid.UUID]Rental, len(s.rentals)),
		violations: make(map[uuid.UUID]int, len(s.violations)),
		events:     make(map[uuid.UUID][]eventlog.Event, len(s.events)),
	}
	for k, v := range s.cars {
		c.cars[k] = v
	}
	for k, v := range s.rentals {
		c.rentals[k] = v
	}
	for k, v := range s.violations {
		c.violations[k] = v
	}
	for k, v := range s.events {
		c.events[k] = append([]eventlog.Event(nil), v...)
	}
	return c
}

// fakeStore is an in-memory Store. Transactions are serialized.
type fakeStore struct {
	mu       sync.Mutex
	data     *state
	statuses *memStatuses

	// failRelease makes SetCarStatus fail for the given cars.
	failRelease map[uuid.UUID]bool
	// beforeTx runs at the start of every transaction, outside the lock.
	beforeTx func()
	findErr  error
}

func newFakeStore(statuses *memStatuses) *fakeStore {
	return &fakeStore{
		data: &state{
			cars:       map[uuid.UUID]fleet.Car{},
			rentals:    map[uuid.UUID]Rental{},
			violations: map[uuid.UUID]int{},
			events:     map[uuid.UUID][]eventlog.Event{},
		},
		statuses:    statuses,
		failRelease: map[uuid.UUID]bool{},
	}
}

func (f *fakeStore) attachCar(car fleet.Car) *fleet.Car {
	car.Status = nil
	if car.StatusID != nil {
		car.Status = f.statuses.lookup(status.KindCar, *car.StatusID)
	}
	return &car
}

func (f *fakeStore) attachRental(r Rental) *Rental {
	r.Status = f.statuses.lookup(status.KindRental, r.StatusID)
	return &r
}

func (f *fakeStore) putCar(car *fleet.Car) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.cars[car.ID] = *car
}

func (f *fakeStore) putRental(r *Rental) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.rentals[r.ID] = *r
}

func (f *fakeStore) addViolation(rentalID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.violations[rentalID]++
}

func (f *fakeStore) GetCar(_ context.Context, id uuid.UUID) (*fleet.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.data.cars[id]
	if !ok {
		return nil, fleet.ErrCarNotFound
	}
	return f.attachCar(car), nil
}

func (f *fakeStore) GetRental(_ context.Context, id uuid.UUID) (*Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.data.rentals[id]
	if !ok {
		return nil, ErrRentalNotFound
	}
	return f.attachRental(r), nil
}

func (f *fakeStore) ListRentals(_ context.Context, filter Filter) ([]*Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Rental
	for _, r := range f.data.rentals {
		if filter.CarID != nil && r.CarID != *filter.CarID {
			continue
		}
		if filter.CustomerID != nil && r.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, f.attachRental(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (f *fakeStore) FindActiveExpiredBefore(_ context.Context, activeID uuid.UUID, now time.Time) ([]*Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*Rental
	for _, r := range f.data.rentals {
		if r.StatusID == activeID && r.EndDate.Before(now) {
			out = append(out, f.attachRental(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (f *fakeStore) FindByWindow(_ context.Context, start, end time.Time) ([]*Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Rental
	for _, r := range f.data.rentals {
		if !r.StartDate.Before(start) && !r.EndDate.After(end) {
			out = append(out, f.attachRental(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeStore) CountRentalsWithViolations(_ context.Context, ids []uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if f.data.violations[id] > 0 {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) LoadEvents(_ context.Context, rentalID uuid.UUID) ([]eventlog.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]eventlog.Event(nil), f.data.events[rentalID]...), nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if f.beforeTx != nil {
		f.beforeTx()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	staged := f.data.clone()
	if err := fn(&fakeTx{store: f, data: staged}); err != nil {
		return err
	}
	f.data = staged
	return nil
}

type fakeTx struct {
	store *fakeStore
	data  *state
}

func (t *fakeTx) InsertRental(_ context.Context, r *Rental) error {
	if _, ok := t.data.rentals[r.ID]; ok {
		return errors.New("duplicate rental id")
	}
	t.data.rentals[r.ID] = *r
	return nil
}

func (t *fakeTx) ReplaceRental(_ context.Context, r *Rental) error {
	if _, ok := t.data.rentals[r.ID]; !ok {
		return ErrRentalNotFound
	}
	t.data.rentals[r.ID] = *r
	return nil
}

func (t *fakeTx) DeleteRental(_ context.Context, id uuid.UUID) error {
	if _, ok := t.data.rentals[id]; !ok {
		return ErrRentalNotFound
	}
	delete(t.data.rentals, id)
	delete(t.data.violations, id)
	return nil
}

func (t *fakeTx) SetRentalStatus(_ context.Context, id, from, to uuid.UUID) (bool, error) {
	r, ok := t.data.rentals[id]
	if !ok || r.StatusID != from {
		return false, nil
	}
	r.StatusID = to
	t.data.rentals[id] = r
	return true, nil
}

func (t *fakeTx) CompareAndSetCarStatus(_ context.Context, carID, statusID uuid.UUID, version int) error {
	car, ok := t.data.cars[carID]
	if !ok || car.Version != version {
		return fleet.ErrVersionConflict
	}
	car.StatusID = &statusID
	car.Version++
	t.data.cars[carID] = car
	return nil
}

func (t *fakeTx) SetCarStatus(_ context.Context, carID, statusID uuid.UUID) error {
	if t.store.failRelease[carID] {
		return errors.New("injected car update failure")
	}
	car, ok := t.data.cars[carID]
	if !ok {
		return fleet.ErrCarNotFound
	}
	car.StatusID = &statusID
	car.Version++
	t.data.cars[carID] = car
	return nil
}

func (t *fakeTx) AppendEvent(_ context.Context, rentalID uuid.UUID, event eventlog.Event) error {
	event.AggregateID = rentalID
	event.AggregateType = AggregateType
	event.Version = len(t.data.events[rentalID]) + 1
	t.data.events[rentalID] = append(t.data.events[rentalID], event)
	return nil
}
