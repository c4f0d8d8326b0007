package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/appointment"
	"github.com/hackgods/salon-booking/internal/catalog"
	"github.com/hackgods/salon-booking/internal/pricing"
)

type AccountService interface {
	Register(ctx context.Context, in account.RegisterInput) (*account.Registration, error)
	Login(ctx context.Context, email, password string) (*account.Session, error)
	GetProfile(ctx context.Context, id string) (*account.Profile, error)
}

type BookingService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.BookingResult, error)
	ListAppointments(ctx context.Context, userID string) ([]appointment.Summary, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, gross decimal.Decimal, description string) (string, error)
}

type RouterConfig struct {
	Accounts AccountService
	Bookings BookingService
	Orders   OrderCreator
	Catalog  *catalog.Catalog
	Fees     pricing.Calculator
	Health   *HealthHandler
	Logger   *slog.Logger

	// AuthSecret enables bearer tokens on user-scoped routes when set.
	AuthSecret     string
	AllowedOrigins []string

	// Limits register and login; nil disables limiting.
	AuthLimiter *RateLimiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	}).Handler)

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Status)
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Get("/services", listServicesHandler(cfg.Catalog))

	// Auth endpoints
	r.Group(func(r chi.Router) {
		if cfg.AuthLimiter != nil {
			r.Use(cfg.AuthLimiter.Middleware)
		}
		r.Post("/auth/register", registerHandler(cfg.Accounts, cfg.Logger))
		r.Post("/auth/login", loginHandler(cfg.Accounts, cfg.Logger))
	})

	r.Post("/api/paypal/calculate-gross-price", grossPriceHandler(cfg.Fees, cfg.Logger))
	r.Post("/api/paypal/create-order", createOrderHandler(cfg.Orders, cfg.Logger))

	// User-scoped endpoints
	r.Group(func(r chi.Router) {
		if cfg.AuthSecret != "" {
			r.Use(RequireUser(cfg.AuthSecret))
		}
		r.Get("/auth/user/{userId}", getUserHandler(cfg.Accounts, cfg.Logger))
		r.Get("/appointments/{userId}", listAppointmentsHandler(cfg.Bookings, cfg.Logger))
		r.Post("/appointments", createAppointmentHandler(cfg.Bookings, cfg.Logger))
		r.Post("/api/paypal/capture-order", captureOrderHandler(cfg.Bookings, cfg.Logger))
	})

	return r
}
