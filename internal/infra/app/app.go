package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/config"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/database"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/ids"
	kafkainfra "github.com/SADDAMSER/BaladyClone-sub006/internal/infra/kafka"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/logger"
	redisinfra "github.com/SADDAMSER/BaladyClone-sub006/internal/infra/redis"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/schema"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/security"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/telemetry"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository/objectstore"
	postgresrepo "github.com/SADDAMSER/BaladyClone-sub006/internal/repository/postgres"
	redisrepo "github.com/SADDAMSER/BaladyClone-sub006/internal/repository/redis"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/routes"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	geoMode, err := usecase.ParseGeoMatchMode(cfg.LBAC.GeoMatchMode)
	if err != nil {
		return nil, err
	}

	tokens, err := security.NewTokenManager(cfg.Auth.SigningSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	application := &Application{cfg: cfg, logger: log, tracer: tracer}
	ok := false
	defer func() {
		if !ok {
			application.release()
		}
	}()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	application.pool = pool

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	application.redis = redisClient

	// A nil store switches the limiter to in-process buckets.
	var rateLimitStore port.RateLimitStore
	var cache routes.CacheChecker
	if redisClient != nil {
		rateLimitWindow := cfg.RateLimit.WindowDuration
		if rateLimitWindow <= 0 {
			rateLimitWindow = time.Minute
		}
		rateLimitStore = redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: redisClient.RateLimitPrefix(),
			TTL:       rateLimitWindow * 2,
		})
		cache = redisClient
	} else {
		log.Info("redis not configured, rate limiting per instance")
	}

	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			application.producer = producer
			events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		events = kafkainfra.NewStubPublisher(log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	decisions, err := telemetry.NewDecisionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("init decision metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	validator, err := schema.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("init record validator: %w", err)
	}
	log.Info("record validator loaded", zap.Strings("tables", validator.Tables()))

	store, err := objectstore.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	opts := []usecase.Option{usecase.WithLogger(log), usecase.WithDecisionObserver(decisions)}

	geo := usecase.NewGeographicAccessResolver(repos.Geographic, geoMode, opts...)
	roles := usecase.NewRoleAssignmentResolver(repos.Roles, opts...)
	access := usecase.NewAccessControlService(geo, roles, repos.Applications, repos.SurveySessions, opts...)
	objectACL, err := usecase.NewObjectACLService(
		store,
		usecase.NewMembershipRegistry(access),
		ids.NewGenerator(),
		usecase.ObjectACLConfig{PathPrefix: cfg.Storage.PathPrefix, UploadURLTTL: cfg.Storage.UploadURLTTL},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("init object acl service: %w", err)
	}
	mobileAuth := usecase.NewMobileAuthService(tokens, hasher, repos.Users, roles, geo, opts...)
	syncService := usecase.NewSyncService(repos.Sync, validator, access, events, usecase.SyncConfig{
		MaxDeltasPerPush: cfg.Sync.MaxDeltasPerPush,
		PullPageSize:     cfg.Sync.PullPageSize,
	}, opts...)

	application.engine = routes.Register(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		RateLimiter:    middleware.NewRateLimiter(rateLimitStore, log),
		Events:         events,
		Observer:       decisions,
		HTTPMetrics:    httpMetrics,
		Gatherer:       registry,
		TracerProvider: tracer.Provider(),
		Database:       pool,
		Cache:          cache,
		Services: routes.ServiceSet{
			MobileAuth: mobileAuth,
			Access:     access,
			ObjectACL:  objectACL,
			Sync:       syncService,
		},
	})

	ok = true
	return application, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.release()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting portal API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// release closes every backing resource that was opened, in reverse order.
func (a *Application) release() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
		a.producer = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
		a.tracer = nil
	}
}
