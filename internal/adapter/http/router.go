package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/booklend/internal/adapter/http/handler"
	"github.com/iho/booklend/internal/adapter/http/middleware"
	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/metrics"
	"github.com/iho/booklend/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	BookHandler    *handler.BookHandler
	LendingHandler *handler.LendingHandler
	UserHandler    *handler.UserHandler
	LedgerHandler  *handler.LedgerHandler
	HealthHandler  *handler.HealthHandler

	Authenticator    *middleware.Authenticator
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	authn := cfg.Authenticator
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	// Mutations honour Idempotency-Key once the caller is known.
	idempotent := func(next http.Handler) http.Handler { return next }
	if cfg.IdempotencyStore != nil {
		idempotent = middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Limit)
			}
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
		})

		// Books: public reads, admin writes
		r.Route("/books", func(r chi.Router) {
			r.Get("/", cfg.BookHandler.List)
			r.Get("/{id}", cfg.BookHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(authn.Require, adminOnly, idempotent)
				r.Post("/", cfg.BookHandler.Create)
				r.Put("/{id}", cfg.BookHandler.Update)
				r.Delete("/{id}", cfg.BookHandler.Delete)
			})
		})

		// Users and lending
		r.Route("/users", func(r chi.Router) {
			r.Use(authn.Require, idempotent)

			r.Get("/me", cfg.AuthHandler.Me)
			r.Post("/borrow", cfg.LendingHandler.Borrow)
			r.Post("/return", cfg.LendingHandler.Return)
			r.Get("/{userId}/history", cfg.LendingHandler.History)
			r.Get("/{userId}/loans", cfg.LendingHandler.OpenLoans)
			r.Get("/{userId}/books/{bookId}/borrowed", cfg.LendingHandler.IsBorrowed)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", cfg.UserHandler.List)
				r.Delete("/{userId}", cfg.UserHandler.Delete)
			})
		})

		// Availability consistency
		r.Route("/ledger", func(r chi.Router) {
			r.Use(authn.Require, adminOnly)
			r.Get("/consistency", cfg.LedgerHandler.CheckConsistency)
			r.Post("/reconcile", cfg.LedgerHandler.Reconcile)
		})
	})

	return r
}
