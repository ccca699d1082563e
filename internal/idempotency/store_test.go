// internal/idempotency/store_test.go
package idempotency

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "idem.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClaimIsExclusive(t *testing.T) {
	s := newTestStore(t, time.Hour)

	existing, claimed, err := s.Claim("k1", "fp")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Nil(t, existing)

	existing, claimed, err = s.Claim("k1", "fp")
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NotNil(t, existing)
	assert.True(t, existing.InFlight())

	require.NoError(t, s.Release("k1"))
	_, claimed, err = s.Claim("k1", "fp")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimIgnoresExpiredRecords(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.Complete("k1", Record{Fingerprint: "fp", Status: http.StatusCreated}))

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, claimed, err := s.Claim("k1", "other")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMiddlewareReplaysSuccessfulResponse(t *testing.T) {
	s := newTestStore(t, time.Hour)
	var calls atomic.Int32
	h := Middleware(s, logr.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"r1"}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(body))
		req.Header.Set(HeaderKey, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"car_id":"c1"}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := send(`{"car_id":"c1"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.JSONEq(t, `{"id":"r1"}`, second.Body.String())
	assert.Equal(t, int32(1), calls.Load())

	mismatch := send(`{"car_id":"c2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, mismatch.Code)
}

func TestMiddlewareFreesKeyAfterFailure(t *testing.T) {
	s := newTestStore(t, time.Hour)
	var calls atomic.Int32
	h := Middleware(s, logr.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for _, want := range []int{http.StatusConflict, http.StatusCreated} {
		req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(`{}`))
		req.Header.Set(HeaderKey, "retry-me")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	s := newTestStore(t, time.Hour)
	var calls atomic.Int32
	h := Middleware(s, logr.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/rentals", nil))
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestMiddlewareRejectsOversizedBody(t *testing.T) {
	s := newTestStore(t, time.Hour)
	var calls atomic.Int32
	h := Middleware(s, logr.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(body))
		req.Header.Set(HeaderKey, "big")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	oversized := send(strings.Repeat("x", maxBody+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, oversized.Code)
	assert.Zero(t, calls.Load())

	// The key was never claimed, so a body at the limit goes through.
	assert.Equal(t, http.StatusCreated, send(strings.Repeat("x", maxBody)).Code)
	assert.Equal(t, int32(1), calls.Load())
}
