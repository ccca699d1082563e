// internal/status/implementation_test.go
package status

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	rows     map[Kind][]*Status
	findErr  error
	creates  int
	raceWith *Status // inserted behind the caller's back on the first create
}

func newMemStore() *memStore {
	return &memStore{rows: map[Kind][]*Status{}}
}

func (m *memStore) FindStatusByName(_ context.Context, kind Kind, name string) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, st := range m.rows[kind] {
		if strings.EqualFold(st.Name, name) {
			return st, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindStatusByID(_ context.Context, kind Kind, id uuid.UUID) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.rows[kind] {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateStatus(_ context.Context, kind Kind, st *Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.raceWith != nil {
		m.rows[kind] = append(m.rows[kind], m.raceWith)
		m.raceWith = nil
	}
	for _, existing := range m.rows[kind] {
		if strings.EqualFold(existing.Name, st.Name) {
			return ErrDuplicate
		}
	}
	m.rows[kind] = append(m.rows[kind], st)
	return nil
}

func (m *memStore) ListStatuses(_ context.Context, kind Kind) ([]*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Status(nil), m.rows[kind]...), nil
}

func TestResolveCreatesMissingStatus(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, KindRental, Active)
	require.NoError(t, err)
	assert.Equal(t, Active, first.Name)

	second, err := svc.Resolve(ctx, KindRental, Active)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.creates)
}

func TestResolveKeepsCatalogsApart(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	rental, err := svc.Resolve(ctx, KindRental, Active)
	require.NoError(t, err)
	car, err := svc.Resolve(ctx, KindCar, Active)
	require.NoError(t, err)

	assert.NotEqual(t, rental.ID, car.ID)
}

func TestResolveRereadsAfterLosingCreateRace(t *testing.T) {
	store := newMemStore()
	winner := &Status{ID: uuid.New(), Name: Completed}
	store.raceWith = winner
	svc := NewService(store)

	st, err := svc.Resolve(context.Background(), KindRental, Completed)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, st.ID)
}

func TestResolveReportsStoreFailure(t *testing.T) {
	store := newMemStore()
	store.findErr = errors.New("connection refused")
	svc := NewService(store)

	_, err := svc.Resolve(context.Background(), KindCar, Rented)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.findErr)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, Kind("colour"), "Red")
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = svc.Create(ctx, KindCar, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Create(ctx, KindCar, "Maintenance")
	require.NoError(t, err)
	_, err = svc.Create(ctx, KindCar, "Maintenance")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStatusIsIgnoresCase(t *testing.T) {
	st := &Status{Name: "rEnTeD"}
	assert.True(t, st.Is(Rented))
	assert.False(t, st.Is(Available))

	var none *Status
	assert.False(t, none.Is(Rented))
}

func TestResolveReusesDifferentlyCasedName(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	admin, err := svc.Create(ctx, KindRental, "active")
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, KindRental, Active)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = svc.Create(ctx, KindRental, "ACTIVE")
	assert.ErrorIs(t, err, ErrDuplicate)

	list, err := svc.List(ctx, KindRental)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
