package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/api"
	"github.com/hackgods/salon-booking/internal/appointment"
	"github.com/hackgods/salon-booking/internal/calendar"
	"github.com/hackgods/salon-booking/internal/catalog"
	"github.com/hackgods/salon-booking/internal/config"
	"github.com/hackgods/salon-booking/internal/db"
	"github.com/hackgods/salon-booking/internal/logging"
	"github.com/hackgods/salon-booking/internal/notify"
	"github.com/hackgods/salon-booking/internal/payment"
	"github.com/hackgods/salon-booking/internal/pricing"
	redisclient "github.com/hackgods/salon-booking/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	if err := run(cfg, logger); err != nil {
		logger.Error("api-server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	if err := db.Migrate(rootCtx, pgPool); err != nil {
		return err
	}
	logger.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	// Gateways
	cal, err := calendar.New(rootCtx, cfg.Calendar, logger.With("gateway", "calendar"))
	if err != nil {
		return err
	}
	paypal, err := payment.New(cfg.PayPal, logger.With("gateway", "paypal"))
	if err != nil {
		return err
	}
	mailer := notify.NewMailer(cfg.Mail, cfg.Booking, logger.With("gateway", "smtp"))

	fees, err := pricing.NewCalculator(cfg.PayPal.FeeRate, cfg.PayPal.FixedFee)
	if err != nil {
		return err
	}
	services := catalog.Default(cfg.Booking.LoyaltyDiscount)

	users := account.NewPgRepository(pgPool)
	accounts := account.NewService(users, mailer, logger, cfg.JWTSecret, cfg.TokenTTL)

	bookings := appointment.NewService(appointment.Deps{
		Repo:      appointment.NewPgRepository(pgPool),
		Users:     users,
		Catalog:   services,
		Fees:      fees,
		Scheduler: cal,
		Payments:  paypal,
		Notifier:  mailer,
		Locker:    redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL),
		Claims:    redisclient.NewRedisOrderClaims(rdb, cfg.OrderClaimTTL),
		Logger:    logger,
	}, cfg)

	routerCfg := api.RouterConfig{
		Accounts: accounts,
		Bookings: bookings,
		Orders:   paypal,
		Catalog:  services,
		Fees:     fees,
		Health: api.NewHealthHandler([]api.Dependency{
			{Name: "postgres", Pinger: pgPool, Critical: true},
			{Name: "redis", Pinger: redisclient.Pinger{Client: rdb}, Critical: true},
			{Name: "calendar", Pinger: cal},
		}, cfg.Env, version, cfg.Booking.BusinessName),
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthLimiter:    api.NewRateLimiter(rootCtx, 1, 5),
	}
	if cfg.AuthRequired {
		routerCfg.AuthSecret = cfg.JWTSecret
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	// let queued confirmation mails go out before the process exits
	bookings.Wait()
	return err
}
