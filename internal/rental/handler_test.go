// internal/rental/handler_test.go
package rental

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldegalts/car-rental/internal/httpx"
	"github.com/aldegalts/car-rental/internal/status"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 1, 31, 15, 4, 0, 0, time.UTC)
	for _, raw := range []string{"2025-01-31T15:04:00Z", "2025-01-31T15:04:00", "2025-01-31T15:04"} {
		got, err := parseTime(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	day, err := parseTime("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, 31, day.Day())

	_, err = parseTime("31/01/2025")
	assert.Error(t, err)
	_, err = parseTime("")
	assert.Error(t, err)
}

func newHandlerRouter(h *harness) http.Handler {
	handler := NewHandler(h.svc)
	r := chi.NewRouter()
	r.Post("/rentals", handler.HandleCreate)
	r.Get("/rentals/{rentalID}/valid", handler.HandleValid)
	r.Get("/admin/rental-statistics", handler.HandleStatistics)
	r.Get("/me/rentals/{rentalID}", handler.HandleGetMine)
	return r
}

func TestHandleCreateMapsErrors(t *testing.T) {
	h := newHarness(t)
	router := newHandlerRouter(h)
	car := h.addCar(status.Available)
	customer := "6f1c58a4-3f55-4a55-9d47-6a3a1b5f6e10"

	post := func(body string, header bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/rentals", strings.NewReader(body))
		if header {
			req.Header.Set(httpx.HeaderCustomerID, customer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	body := `{"car_id":"` + car.ID.String() + `","start_date":"2025-03-10T12:00","end_date":"2025-03-12T12:00","total_amount":"250.00"}`
	rec := post(body, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), customer)

	rec = post(body, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(`{"car_id":"`+h.addCar("").ID.String()+`","start_date":"2025-03-10","end_date":"2025-03-11"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "customer id is required")

	rec = post(`{"car_id":"0b8f6c8e-1d1a-4a9e-9a55-1f0f8a7e3c21","start_date":"2025-03-10","end_date":"2025-03-11"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(`{"car_id":"`+h.addCar("").ID.String()+`","start_date":"2025-03-12","end_date":"2025-03-10"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatistics(t *testing.T) {
	h := newHarness(t)
	router := newHandlerRouter(h)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := h.addRental(h.addCar(""), status.Completed, start.AddDate(0, 0, i), start.AddDate(0, 0, i+1))
		if i == 0 {
			h.store.addViolation(r.ID)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/admin/rental-statistics?start_date=2025-01-01T00:00&end_date=2025-01-31T00:00", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"start_date": "2025-01-01T00:00:00Z",
		"end_date": "2025-01-31T00:00:00Z",
		"total_rentals": 3,
		"rentals_with_violations": 1,
		"percent_with_violations": 33.33,
		"percent_without_violations": 66.67
	}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/admin/rental-statistics?start_date=2025-02-01&end_date=2025-01-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetMineRequiresOwner(t *testing.T) {
	h := newHarness(t)
	router := newHandlerRouter(h)
	r := h.addRental(h.addCar(status.Rented), status.Active, epoch, epoch.Add(time.Hour))

	get := func(customer string) int {
		req := httptest.NewRequest(http.MethodGet, "/me/rentals/"+r.ID.String(), nil)
		if customer != "" {
			req.Header.Set(httpx.HeaderCustomerID, customer)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get(r.CustomerID.String()))
	assert.Equal(t, http.StatusNotFound, get("0b8f6c8e-1d1a-4a9e-9a55-1f0f8a7e3c21"))
	assert.Equal(t, http.StatusUnauthorized, get(""))
}

func TestHandleValid(t *testing.T) {
	h := newHarness(t)
	router := newHandlerRouter(h)
	r := h.addRental(h.addCar(status.Rented), status.Active, epoch, epoch.Add(time.Hour))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rentals/"+r.ID.String()+"/valid", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rental_id":"`+r.ID.String()+`","valid":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rentals/not-a-uuid/valid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
