package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/infra/config"
	"github.com/Ezra31448/soap-api/internal/infra/database"
	kafkainfra "github.com/Ezra31448/soap-api/internal/infra/kafka"
	"github.com/Ezra31448/soap-api/internal/infra/logger"
	redisinfra "github.com/Ezra31448/soap-api/internal/infra/redis"
	"github.com/Ezra31448/soap-api/internal/infra/security"
	"github.com/Ezra31448/soap-api/internal/infra/telemetry"
	postgresrepo "github.com/Ezra31448/soap-api/internal/repository/postgres"
	redisrepo "github.com/Ezra31448/soap-api/internal/repository/redis"
	"github.com/Ezra31448/soap-api/internal/transport/http/middleware"
	"github.com/Ezra31448/soap-api/internal/transport/http/routes"
	"github.com/Ezra31448/soap-api/internal/usecase"
)

// Application owns the wired service graph and the resources that must be
// released on shutdown.
type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	producer  *kafkainfra.Producer
	telemetry *telemetry.Provider
}

// New builds the application from configuration: connections first, then
// repositories, services and the HTTP engine.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	telemetryProvider, err := telemetry.Attach(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.App.Env, cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	jwtManager := security.NewJWTManager(keyProvider)

	signingKID := cfg.JWT.SigningKeyID
	if signingKID == "" {
		if ider, ok := keyProvider.(interface{ SigningKID() string }); ok {
			signingKID = ider.SigningKID()
		}
	}
	if signingKID == "" {
		signingKID = "v1"
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	revocations := redisrepo.NewRevocationRepository(redisClient.Client(), cfg.Redis.RevocationPrefix)
	permissionCache := redisrepo.NewPermissionCache(redisClient.Client(), cfg.Redis.PermissionCachePrefix)

	rateLimitTTL := cfg.Redis.RateLimitTTL
	if rateLimitTTL <= 0 {
		rateLimitTTL = 2 * cfg.RateLimit.WindowDuration
	}
	if rateLimitTTL <= 0 {
		rateLimitTTL = 2 * time.Hour
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitTTL,
	})

	repos := postgresrepo.NewRepositories(pool)
	store := postgresrepo.NewStore(pool)

	var eventPublisher port.EventPublisher
	var kafkaProducer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			kafkaProducer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordPolicy := security.NewPasswordPolicy()

	engineMetrics, err := telemetry.NewEngineMetrics(nil)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init engine metrics: %w", err)
	}

	revocationPolicy := domain.NewDegradationPolicy(domain.ParseDegradationPolicyMode(cfg.JWT.RevocationPolicy))
	log.Info("credential verification configured",
		zap.String("revocation_policy", string(revocationPolicy.Mode())),
	)

	authzService := usecase.NewAuthorizationService(repos.Users, repos.Roles, repos.Permissions, repos.Audit, log).
		WithCache(permissionCache, cfg.Redis.PermissionCacheTTL)
	auditService := usecase.NewAuditService(repos.Audit, authzService, log).
		WithMetrics(engineMetrics)
	tokenService := usecase.NewTokenService(cfg, jwtManager, signingKID, revocations, log).
		WithEvents(eventPublisher).
		WithMetrics(engineMetrics).
		WithDegradationPolicy(revocationPolicy)
	authService := usecase.NewAuthService(cfg, repos.Users, repos.Roles, tokenService, authzService, auditService, log).
		WithRateLimiter(rateLimitStore).
		WithMetrics(engineMetrics)
	registrationService := usecase.NewRegistrationService(repos.Users, repos.Roles, store, passwordPolicy, log).
		WithEvents(eventPublisher)
	userService := usecase.NewUserService(repos.Users, store, authzService, tokenService, passwordPolicy, log).
		WithEvents(eventPublisher)
	roleService := usecase.NewRoleService(repos.Users, repos.Roles, repos.Permissions, store, authzService, log).
		WithEvents(eventPublisher)
	passwordResetService := usecase.NewPasswordResetService(cfg, repos.Users, repos.Tokens, store, passwordPolicy, tokenService, auditService, log).
		WithRateLimiter(rateLimitStore).
		WithEvents(eventPublisher).
		WithResetTTL(cfg.PasswordReset.TokenTTL)

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		JWTManager:  jwtManager,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			Users:         userService,
			Roles:         roleService,
			PasswordReset: passwordResetService,
			Audit:         auditService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		producer:  kafkaProducer,
		telemetry: telemetryProvider,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts everything
// down in reverse construction order.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown telemetry", zap.Error(err))
		}
	}()

	var handler http.Handler = a.engine
	if tracer := a.telemetry.Tracer(); tracer != nil {
		handler = otelhttp.NewHandler(handler, "auth-api",
			otelhttp.WithTracerProvider(tracer.TracerProvider()),
		)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
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
