package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hackgods/salon-booking/internal/appointment"
	"github.com/hackgods/salon-booking/internal/calendar"
	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/db"
	"github.com/hackgods/salon-booking/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "reconcile-worker")
	logger.Info("reconcile worker starting up",
		"env", cfg.Env, "interval", cfg.WorkerInterval, "grace", cfg.UnconfirmedGrace)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	cal, err := calendar.New(rootCtx, cfg.Calendar, logger)
	if err != nil {
		logger.Error("calendar client error", "error", err)
		os.Exit(1)
	}

	// purging only needs the store and the calendar
	svc := appointment.NewService(appointment.Deps{
		Repo:      appointment.NewPgRepository(pgPool),
		Scheduler: cal,
		Logger:    logger,
	}, cfg)

	// Run once at startup
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reconcile worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger *slog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	purged, err := svc.PurgeUnconfirmed(runCtx)
	if err != nil {
		logger.Error("reconcile run error", "error", err)
		return
	}
	logger.Info("reconcile run complete", "purged", purged, "took", time.Since(start))
}
