// Package app wires the storefront's dependencies and runs its servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/receipt"
	"github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	receiptIdempotencyPrefix = "storefront:receipts:processed"
	receiptIdempotencyTTL    = 7 * 24 * time.Hour
	rateLimitVisitorTTL      = 10 * time.Minute
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	reg := prometheus.DefaultRegisterer

	a.tracerShutdown, err = tracing.Init(ctx, cfg.Tracing(handler.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, a.pool, handler.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	var publisher event.Publisher = event.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("no kafka brokers configured, domain events are discarded")
	}

	// Product logos for receipts go through a retrying, circuit-broken client.
	if err := httpclient.RegisterMetrics(reg); err != nil {
		return nil, fmt.Errorf("register circuit breaker metrics: %w", err)
	}
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.LogoFetchTimeout
	clientCfg.PublicOnly = !cfg.LogoAllowPrivate
	logos := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("product-logos"), logger)
	renderer := receipt.NewRenderer(logos, receipt.Config{
		ContactEmail: cfg.ContactEmail,
		FetchTimeout: cfg.LogoFetchTimeout,
	}, logger)

	// Build the dependency graph.
	userRepo := postgres.NewUserRepository(a.pool)
	productRepo := postgres.NewProductRepository(a.pool)
	cartRepo := postgres.NewCartRepository(a.pool)
	orderRepo := postgres.NewOrderRepository(a.pool)
	catalogCache := redisrepo.NewCatalogCache(a.redis, cfg.CatalogCacheTTL, reg)
	sessionStore := redisrepo.NewSessionStore(a.redis)

	hasher := auth.NewPasswordHasher(cfg.PasswordSecret, cfg.PasswordScheme)
	sessions := auth.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL)

	userService := service.NewUserService(userRepo, hasher, sessions, sessionStore, publisher, logger)
	productService := service.NewProductService(productRepo, catalogCache, publisher, logger, cfg.CatalogPerPage)
	cartService := service.NewCartService(cartRepo, productRepo, publisher, logger)
	orderService := service.NewOrderService(orderRepo, catalogCache, publisher, renderer, logger)

	if cfg.ReceiptWorkerEnabled && a.producer != nil {
		worker := receipt.NewWorker(orderRepo, renderer, cfg.MediaDir, logger)
		idem := pkgkafka.NewRedisIdempotencyStore(a.redis, receiptIdempotencyPrefix, receiptIdempotencyTTL)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:    cfg.KafkaBrokers,
			GroupID:    cfg.KafkaConsumerGroup,
			Topic:      event.TopicOrderPlaced,
			MaxRetries: 3,
			RetryDelay: time.Second,
		}, pkgkafka.IdempotentHandler(idem, worker.Handle, logger), logger).WithDLQ(a.dlq)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	a.limiter = middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, rateLimitVisitorTTL, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		Users:          userService,
		Products:       productService,
		Carts:          cartService,
		Orders:         orderService,
		Health:         healthHandler,
		Metrics:        middleware.NewHTTPMetrics(reg, handler.ServiceName),
		Gatherer:       prometheus.DefaultGatherer,
		AuthLimiter:    a.limiter,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.HTTPWriteTimeout,
		Logger:         logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server and the receipt consumer and blocks until ctx
// is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if a.consumer != nil {
		go func() {
			a.logger.Info("starting receipt consumer", slog.String("topic", event.TopicOrderPlaced))
			if err := a.consumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("receipt consumer: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}
	stopConsumer()

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// first, then spans are flushed, then Kafka and the stores are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp opened. It tolerates partially
// initialised apps.
func (a *App) closeResources() error {
	var errs []error
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer: %w", err))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq producer: %w", err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
	}
	return errors.Join(errs...)
}
