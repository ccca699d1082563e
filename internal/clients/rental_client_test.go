// internal/clients/rental_client_test.go
package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldegalts/car-rental/internal/httpx"
)

func TestRentalClientSweep(t *testing.T) {
	done := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/sweep", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(httpx.HeaderAdminKey))
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"count": 1, "completed": []uuid.UUID{done}, "failed": []any{},
		})
	}))
	defer srv.Close()

	out, err := NewRentalClient(srv.URL, "secret").Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, []uuid.UUID{done}, out.Completed)
}

func TestRentalClientStatistics(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, start.Format(time.RFC3339), r.URL.Query().Get("start_date"))
		assert.Equal(t, end.Format(time.RFC3339), r.URL.Query().Get("end_date"))
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"total_rentals": 3, "percent_with_violations": 33.33, "percent_without_violations": 66.67,
		})
	}))
	defer srv.Close()

	out, err := NewRentalClient(srv.URL, "").Statistics(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, out.TotalRentals)
	assert.Equal(t, 33.33, out.PercentWithViolations)
}

func TestRentalClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "rental not found")
	}))
	defer srv.Close()

	_, err := NewRentalClient(srv.URL, "").IsValid(context.Background(), uuid.New())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "rental not found", apiErr.Message)
}
