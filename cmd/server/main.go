package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/booklend/internal/adapter/http"
	"github.com/iho/booklend/internal/adapter/http/handler"
	"github.com/iho/booklend/internal/adapter/http/middleware"
	"github.com/iho/booklend/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/booklend/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/booklend/internal/adapter/repository/redis"
	"github.com/iho/booklend/internal/infrastructure/auth"
	"github.com/iho/booklend/internal/infrastructure/config"
	"github.com/iho/booklend/internal/infrastructure/eventpublisher"
	"github.com/iho/booklend/internal/infrastructure/logger"
	"github.com/iho/booklend/internal/infrastructure/metrics"
	"github.com/iho/booklend/internal/infrastructure/postgres"
	"github.com/iho/booklend/internal/infrastructure/redis"
	"github.com/iho/booklend/internal/usecase"
)

const limiterCleanupInterval = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// repositories is the storage backend selected by STORE_DRIVER.
type repositories struct {
	txManager usecase.TransactionManager
	books     usecase.BookRepository
	loans     usecase.LoanRepository
	users     usecase.UserRepository
	outbox    usecase.OutboxRepository
	audit     usecase.AuditRepository
	retrier   usecase.Retrier
	checks    map[string]handler.Pinger
	close     func()
}

// app is the fully wired service.
type app struct {
	router    http.Handler
	publisher *eventpublisher.EventPublisher
	limiter   *middleware.RateLimiter
	close     func()
}

func run(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	a, err := build(ctx, cfg, l, metrics.New())
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if a.publisher != nil {
		go func() {
			if err := a.publisher.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				l.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}
	go sweepLimiters(workerCtx, a.limiter, l)

	serveErr := make(chan error, 1)
	go func() {
		l.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	l.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// build wires storage, caches, use cases and the HTTP router.
func build(ctx context.Context, cfg *config.Config, l zerolog.Logger, m *metrics.Metrics) (*app, error) {
	repos, err := openStore(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	closers := []func(){repos.close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		redisClient      *goredis.Client
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
		eventSink        eventpublisher.Publisher = eventpublisher.NewLogPublisher(l)
	)
	if cfg.RedisEnabled {
		redisClient, err = redis.Connect(ctx, cfg.RedisURL, cfg.DatabaseConnectTimeout, l)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		l.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(redisClient, m)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient, m)
		eventSink = redisRepo.NewEventPublisher(redisClient, cfg.EventChannel, m)
		repos.checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	outbox := repos.outbox
	if !cfg.EventsEnabled {
		outbox = postgresRepo.NewNullOutboxRepository()
	}

	idGen := postgresRepo.NewULIDGenerator()

	// Use cases
	lendingOpts := []usecase.LendingOption{usecase.WithLogger(l)}
	if repos.retrier != nil {
		lendingOpts = append(lendingOpts, usecase.WithRetrier(repos.retrier))
	}
	if cache != nil {
		lendingOpts = append(lendingOpts, usecase.WithBookCache(cache, cfg.BookCacheTTL))
	}
	lendingUC := usecase.NewLendingUseCase(repos.txManager, repos.books, repos.loans, repos.users, outbox, repos.audit, idGen, m, lendingOpts...)
	catalogUC := usecase.NewCatalogUseCase(repos.txManager, repos.books, repos.loans, outbox, repos.audit, idGen, m, cache, l)
	userUC := usecase.NewUserUseCase(repos.txManager, repos.users, repos.loans, repos.audit, idGen, m)
	reconciliationUC := usecase.NewReconciliationUseCase(repos.txManager, repos.books, repos.loans, repos.audit, idGen, m, l)

	if created, err := userUC.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword); err != nil {
		closeAll()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	} else if created {
		l.Info().Str("username", cfg.BootstrapAdminUsername).Msg("bootstrap admin created")
	}

	// Access
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	authenticator := middleware.NewAuthenticator(jwtManager)
	if !cfg.AuthEnabled {
		l.Warn().Msg("authentication disabled, every request acts as the system admin")
		authenticator = middleware.NewTrustedAuthenticator()
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:      handler.NewAuthHandler(userUC, jwtManager, m),
		BookHandler:      handler.NewBookHandler(catalogUC),
		LendingHandler:   handler.NewLendingHandler(lendingUC),
		UserHandler:      handler.NewUserHandler(userUC),
		LedgerHandler:    handler.NewLedgerHandler(reconciliationUC),
		HealthHandler:    handler.NewHealthHandler(repos.checks),
		Authenticator:    authenticator,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      limiter,
		Metrics:          m,
		Logger:           l,
	})

	var publisher *eventpublisher.EventPublisher
	if cfg.EventsEnabled {
		publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: repos.outbox,
			Publisher:  eventSink,
			Logger:     l,
			Metrics:    m,
			Interval:   cfg.EventPublishInterval,
			Retention:  7 * 24 * time.Hour,
		})
	}

	return &app{router: router, publisher: publisher, limiter: limiter, close: closeAll}, nil
}

func openStore(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*repositories, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		l.Warn().Msg("using in-memory store, data is lost on restart")
		s := memory.NewStore()
		return &repositories{
			txManager: s,
			books:     memory.NewBookRepository(s),
			loans:     memory.NewLoanRepository(s),
			users:     memory.NewUserRepository(s),
			outbox:    memory.NewOutboxRepository(s),
			audit:     memory.NewAuditRepository(s),
			checks:    map[string]handler.Pinger{},
			close:     func() {},
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, l); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.Connect(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	}, cfg.DatabaseConnectTimeout, l)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	l.Info().Msg("connected to postgres")

	return &repositories{
		txManager: postgresRepo.NewTxManager(pool),
		books:     postgresRepo.NewBookRepository(pool),
		loans:     postgresRepo.NewLoanRepository(pool),
		users:     postgresRepo.NewUserRepository(pool),
		outbox:    postgresRepo.NewOutboxRepository(pool),
		audit:     postgresRepo.NewAuditRepository(pool),
		retrier:   postgresRepo.NewRetrier(l),
		checks: map[string]handler.Pinger{
			"postgres": handler.PingFunc(func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
				defer cancel()
				return pool.Ping(ctx)
			}),
		},
		close: pool.Close,
	}, nil
}

// sweepLimiters drops idle per-client limiters until ctx ends.
func sweepLimiters(ctx context.Context, rl *middleware.RateLimiter, l zerolog.Logger) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := rl.CleanupLimiters(time.Hour); removed > 0 {
				l.Debug().Int("removed", removed).Msg("rate limiters cleaned up")
			}
		}
	}
}
