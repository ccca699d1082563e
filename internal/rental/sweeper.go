// internal/rental/sweeper.go
package rental

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

// Sweeper runs SweepExpired on a fixed interval.
type Sweeper struct {
	service  Service
	interval time.Duration
	log      logr.Logger

	runs      prometheus.Counter
	completed prometheus.Counter
	failures  prometheus.Counter
	lastRun   prometheus.Gauge
}

// NewSweeper registers the sweep collectors with reg.
func NewSweeper(service Service, interval time.Duration, log logr.Logger, reg prometheus.Registerer) *Sweeper {
	s := &Sweeper{
		service:  service,
		interval: interval,
		log:      log.WithName("sweeper"),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carrental_sweep_runs_total",
			Help: "Background expiry sweeps run.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carrental_sweep_completed_total",
			Help: "Rentals completed by background sweeps.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carrental_sweep_failures_total",
			Help: "Rentals or whole sweeps that failed.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carrental_sweep_last_run_timestamp_seconds",
			Help: "Unix time of the last background sweep.",
		}),
	}
	reg.MustRegister(s.runs, s.completed, s.failures, s.lastRun)
	return s
}

// Run sweeps until ctx is cancelled. A non-positive interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("background sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("background sweep started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("background sweep stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	s.runs.Inc()
	s.lastRun.SetToCurrentTime()

	result, err := s.service.SweepExpired(ctx)
	if err != nil {
		s.failures.Inc()
		s.log.Error(err, "background sweep failed")
		return
	}
	s.completed.Add(float64(result.Count()))
	s.failures.Add(float64(len(result.Failed)))
	if result.Count() > 0 || len(result.Failed) > 0 {
		s.log.V(1).Info("background sweep finished", "completed", result.Count(), "failed", len(result.Failed))
	}
}
