// cmd/rental/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/aldegalts/car-rental/internal/config"
	"github.com/aldegalts/car-rental/internal/fleet"
	"github.com/aldegalts/car-rental/internal/httpx"
	"github.com/aldegalts/car-rental/internal/idempotency"
	"github.com/aldegalts/car-rental/internal/rental"
	"github.com/aldegalts/car-rental/internal/server"
	"github.com/aldegalts/car-rental/internal/status"
	"github.com/aldegalts/car-rental/internal/storage"
	"github.com/aldegalts/car-rental/internal/telemetry"
	"github.com/aldegalts/car-rental/internal/violation"
)

func main() {
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	cfg, err := config.Load()
	if err != nil {
		logger.Error(err, "failed to load configuration")
		os.Exit(1)
	}
	stdr.SetVerbosity(cfg.LogVerbosity)

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "service stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logr.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.Migrate()
	if err != nil {
		return err
	}
	logger.Info("database ready", "driver", cfg.DatabaseDriver, "migrations_applied", applied)

	var adminKey *httpx.AdminKey
	if cfg.AdminKeyHash != "" {
		adminKey, err = httpx.NewAdminKey(cfg.AdminKeyHash, cfg.AdminKeySalt)
		if err != nil {
			return err
		}
	} else {
		logger.Info("ADMIN_KEY_HASH not set, admin routes are locked")
	}

	var idem *idempotency.Store
	if cfg.IdempotencyDB != "" {
		idem, err = idempotency.New(cfg.IdempotencyDB, cfg.IdempotencyTTL)
		if err != nil {
			return err
		}
		defer idem.Close()
	}

	var limiter *rate.Limiter
	if cfg.CreateRatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.CreateRatePerMinute)/60), cfg.CreateRatePerMinute)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	statuses := status.NewService(db)
	rentals := rental.NewService(db, statuses, logger, rental.WithSweepOnRead(cfg.SweepOnRead))

	handler := server.New(server.Deps{
		Log:           logger,
		DB:            db,
		Statuses:      statuses,
		Fleet:         fleet.NewService(db, statuses),
		Rentals:       rentals,
		Violations:    violation.NewService(db),
		AdminKey:      adminKey,
		Idempotency:   idem,
		CreateLimiter: limiter,
		Registerer:    reg,
		Gatherer:      reg,
	})

	sweeper := rental.NewSweeper(rentals, cfg.SweepInterval, logger, reg)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting car rental service", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
