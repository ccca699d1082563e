// internal/rental/statistics_test.go
package rental

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aldegalts/car-rental/internal/status"
)

func TestStatisticsExampleWindow(t *testing.T) {
	h := newHarness(t)
	windowStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	var contained []uuid.UUID
	for i := 0; i < 10; i++ {
		start := windowStart.AddDate(0, 0, i)
		r := h.addRental(h.addCar(""), status.Completed, start, start.AddDate(0, 0, 2))
		contained = append(contained, r.ID)
		if i < 4 {
			h.store.addViolation(r.ID)
			h.store.addViolation(r.ID)
		}
	}
	// Straddling either edge keeps a rental out of the window.
	h.addRental(h.addCar(""), status.Completed, windowStart.Add(-time.Hour), windowStart.AddDate(0, 0, 1))
	h.addRental(h.addCar(""), status.Completed, windowEnd.AddDate(0, 0, -1), windowEnd.Add(time.Hour))

	stats, err := h.svc.ComputeStatistics(context.Background(), windowStart, windowEnd)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalRentals)
	assert.Equal(t, 4, stats.RentalsWithViolations)
	assert.InDelta(t, 40.0, stats.PercentWithViolations, 1e-9)
	assert.InDelta(t, 60.0, stats.PercentWithoutViolations, 1e-9)

	var got []uuid.UUID
	for _, r := range stats.Rentals {
		got = append(got, r.ID)
		assert.True(t, r.Status.Is(status.Completed))
	}
	assert.ElementsMatch(t, contained, got)
}

func TestStatisticsEmptyWindow(t *testing.T) {
	h := newHarness(t)

	stats, err := h.svc.ComputeStatistics(context.Background(), epoch, epoch.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRentals)
	assert.Zero(t, stats.PercentWithViolations)
	assert.Zero(t, stats.PercentWithoutViolations)
	assert.Empty(t, stats.Rentals)

	body, err := json.Marshal(stats.Report())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"rentals":[]`)
}

func TestStatisticsRejectsInvertedWindow(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ComputeStatistics(context.Background(), epoch, epoch.Add(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestStatisticsDoesNotSweep(t *testing.T) {
	h := newHarness(t)
	r := h.addRental(h.addCar(status.Rented), status.Active, epoch.AddDate(0, 0, -3), epoch.AddDate(0, 0, -1))

	_, err := h.svc.ComputeStatistics(context.Background(), epoch.AddDate(0, 0, -5), epoch)
	require.NoError(t, err)
	assert.True(t, h.rental(r.ID).Status.Is(status.Active))
}

func TestStatisticsReportRounds(t *testing.T) {
	st := &Statistics{TotalRentals: 3, RentalsWithViolations: 1, PercentWithViolations: 100.0 / 3}
	st.PercentWithoutViolations = 100 - st.PercentWithViolations

	report := st.Report()
	assert.Equal(t, 33.33, report.PercentWithViolations)
	assert.Equal(t, 66.67, report.PercentWithoutViolations)
}

func TestStatisticsPercentageLaw(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		windowStart := epoch
		windowEnd := epoch.AddDate(0, 0, 30)

		total := rapid.IntRange(0, 25).Draw(rt, "total")
		with := 0
		for i := 0; i < total; i++ {
			offset := rapid.IntRange(0, 28).Draw(rt, "offset")
			start := windowStart.AddDate(0, 0, offset)
			r := h.addRental(h.addCar(""), status.Completed, start, start.AddDate(0, 0, 1))
			if rapid.Bool().Draw(rt, "violated") {
				h.store.addViolation(r.ID)
				with++
			}
		}

		stats, err := h.svc.ComputeStatistics(context.Background(), windowStart, windowEnd)
		if err != nil {
			rt.Fatalf("ComputeStatistics: %v", err)
		}
		if stats.TotalRentals != total || stats.RentalsWithViolations != with {
			rt.Fatalf("counted %d/%d, want %d/%d", stats.RentalsWithViolations, stats.TotalRentals, with, total)
		}
		sum := stats.PercentWithViolations + stats.PercentWithoutViolations
		switch {
		case total == 0 && sum != 0:
			rt.Fatalf("empty window reported %v", sum)
		case total > 0 && (sum < 100-1e-9 || sum > 100+1e-9):
			rt.Fatalf("percentages sum to %v", sum)
		}
	})
}
