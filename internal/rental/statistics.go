// internal/rental/statistics.go
package rental

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Statistics is the violation rate over rentals fully contained in a window.
type Statistics struct {
	WindowStart              time.Time
	WindowEnd                time.Time
	TotalRentals             int
	Rentals                  []*Rental
	RentalsWithViolations    int
	PercentWithViolations    float64
	PercentWithoutViolations float64
}

// ComputeStatistics counts rentals with start >= start and end <= end, and
// the share of them carrying at least one violation. It does not sweep.
func (s *service) ComputeStatistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	start, end = normalize(start), normalize(end)
	if start.After(end) {
		return nil, ErrInvalidWindow
	}

	stats := &Statistics{WindowStart: start, WindowEnd: end}

	rentals, err := s.store.FindByWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find rentals in window: %w", err)
	}
	stats.Rentals = rentals
	if len(rentals) == 0 {
		return stats, nil
	}

	ids := make([]uuid.UUID, len(rentals))
	for i, r := range rentals {
		ids[i] = r.ID
	}

	with, err := s.store.CountRentalsWithViolations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count rentals with violations: %w", err)
	}

	stats.TotalRentals = len(ids)
	stats.RentalsWithViolations = with
	stats.PercentWithViolations = float64(with) * 100 / float64(len(ids))
	stats.PercentWithoutViolations = 100 - stats.PercentWithViolations
	return stats, nil
}

// StatisticsReport is the wire form of Statistics.
type StatisticsReport struct {
	StartDate                time.Time `json:"start_date"`
	EndDate                  time.Time `json:"end_date"`
	TotalRentals             int       `json:"total_rentals"`
	Rentals                  []*Rental `json:"rentals"`
	RentalsWithViolations    int       `json:"rentals_with_violations"`
	PercentWithViolations    float64   `json:"percent_with_violations"`
	PercentWithoutViolations float64   `json:"percent_without_violations"`
}

// Report rounds the percentages to two decimals.
func (st *Statistics) Report() StatisticsReport {
	rentals := st.Rentals
	if rentals == nil {
		rentals = []*Rental{}
	}
	return StatisticsReport{
		StartDate:                st.WindowStart,
		EndDate:                  st.WindowEnd,
		TotalRentals:             st.TotalRentals,
		Rentals:                  rentals,
		RentalsWithViolations:    st.RentalsWithViolations,
		PercentWithViolations:    round2(st.PercentWithViolations),
		PercentWithoutViolations: round2(st.PercentWithoutViolations),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
