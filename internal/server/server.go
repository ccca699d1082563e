// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/aldegalts/car-rental/internal/fleet"
	"github.com/aldegalts/car-rental/internal/httpx"
	"github.com/aldegalts/car-rental/internal/idempotency"
	"github.com/aldegalts/car-rental/internal/rental"
	"github.com/aldegalts/car-rental/internal/status"
	"github.com/aldegalts/car-rental/internal/violation"
)

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Log        logr.Logger
	DB         Pinger
	Statuses   status.Service
	Fleet      fleet.Service
	Rentals    rental.Service
	Violations violation.Service

	// AdminKey guards the back-office routes. Nil rejects every admin call.
	AdminKey *httpx.AdminKey
	// Idempotency enables Idempotency-Key handling on rental creation.
	Idempotency *idempotency.Store
	// CreateLimiter throttles rental creation when set.
	CreateLimiter *rate.Limiter

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// New builds the router.
func New(d Deps) http.Handler {
	statuses := status.NewHandler(d.Statuses)
	cars := fleet.NewHandler(d.Fleet)
	rentals := rental.NewHandler(d.Rentals)
	violations := violation.NewHandler(d.Violations)
	admin := httpx.RequireAdmin(d.AdminKey)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(d.Log.WithName("http")))
	if d.Registerer != nil {
		r.Use(httpx.NewMetrics(d.Registerer).Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.Ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/cars", func(r chi.Router) {
		r.Get("/", cars.HandleList)
		r.Get("/{carID}", cars.HandleGet)
		r.With(admin).Post("/", cars.HandleCreate)
		r.With(admin).Put("/{carID}", cars.HandleUpdate)
		r.With(admin).Delete("/{carID}", cars.HandleDelete)
	})

	r.Route("/statuses/{kind}", func(r chi.Router) {
		r.Get("/", statuses.HandleList)
		r.With(admin).Post("/", statuses.HandleCreate)
	})

	r.Route("/rentals", func(r chi.Router) {
		create := r.With()
		if d.CreateLimiter != nil {
			create = create.With(httpx.RateLimit(d.CreateLimiter))
		}
		if d.Idempotency != nil {
			create = create.With(idempotency.Middleware(d.Idempotency, d.Log))
		}
		create.Post("/", rentals.HandleCreate)

		r.With(admin).Get("/", rentals.HandleList)
		r.Route("/{rentalID}", func(r chi.Router) {
			r.Get("/valid", rentals.HandleValid)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", rentals.HandleGet)
				r.Put("/", rentals.HandleUpdate)
				r.Delete("/", rentals.HandleDelete)
				r.Get("/history", rentals.HandleHistory)
				r.Get("/violations", violations.HandleListForRental)
				r.Post("/violations", violations.HandleCreate)
			})
		})
	})

	r.Route("/violations", func(r chi.Router) {
		r.Use(admin)
		r.Get("/", violations.HandleList)
		r.Get("/{violationID}", violations.HandleGet)
		r.Put("/{violationID}", violations.HandleUpdate)
		r.Delete("/{violationID}", violations.HandleDelete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin)
		r.Post("/sweep", rentals.HandleSweep)
		r.Get("/rental-statistics", rentals.HandleStatistics)
	})

	r.Route("/me", func(r chi.Router) {
		r.Get("/rentals", rentals.HandleListMine)
		r.Get("/rentals/{rentalID}", rentals.HandleGetMine)
		r.Get("/violations", violations.HandleListMine)
		r.Get("/violations/{violationID}", violations.HandleGetMine)
	})

	return r
}
