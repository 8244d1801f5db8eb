package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/infra/config"
	"github.com/clx1415926/taobei-app/internal/infra/database"
	kafkainfra "github.com/clx1415926/taobei-app/internal/infra/kafka"
	"github.com/clx1415926/taobei-app/internal/infra/logger"
	redisinfra "github.com/clx1415926/taobei-app/internal/infra/redis"
	"github.com/clx1415926/taobei-app/internal/infra/security"
	"github.com/clx1415926/taobei-app/internal/infra/telemetry"
	postgresrepo "github.com/clx1415926/taobei-app/internal/repository/postgres"
	redisrepo "github.com/clx1415926/taobei-app/internal/repository/redis"
	"github.com/clx1415926/taobei-app/internal/transport/http/middleware"
	"github.com/clx1415926/taobei-app/internal/transport/http/routes"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	tracer  *telemetry.TracerProvider
	sweeper *usecase.Sweeper
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	telemetryProvider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	signer, err := security.NewJWTSigner(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token signer: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	var generator port.CodeGenerator = security.NumericCodeGenerator{}
	if cfg.Code.FixedCode != "" {
		if !cfg.App.IsDevelopment() {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("fixed verification code is only allowed outside production")
		}
		log.Warn("using fixed verification code, development only")
		generator = security.FixedCodeGenerator{Code: cfg.Code.FixedCode}
	}

	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	users := postgresrepo.NewUserRepository(pool)
	codes := postgresrepo.NewVerificationCodeRepository(pool)
	sessions := postgresrepo.NewSessionRepository(pool)
	failures := postgresrepo.NewLoginFailureRepository(pool)
	catalog := postgresrepo.NewCatalogRepository(pool)

	codeService := usecase.NewVerificationCodeService(codes, generator, publisher, log, usecase.CodePolicy{
		TTL:             cfg.Code.TTL,
		DailyLimit:      cfg.Code.DailyLimit,
		IPCooldown:      cfg.Code.IPCooldown,
		ResendCountdown: cfg.Code.ResendCountdown,
		LogCodes:        cfg.App.IsDevelopment(),
	})

	passwordService := usecase.NewPasswordService(users, hasher, log, usecase.PasswordPolicy{
		FailLimit:    cfg.Password.FailLimit,
		LockDuration: cfg.Password.LockDuration,
		HistoryDepth: cfg.Password.HistoryDepth,
	})

	sessionService := usecase.NewSessionService(sessions, signer, publisher, log, cfg.Session.TTL)

	authService := usecase.NewAuthService(users, failures, codeService, passwordService, sessionService, publisher, log, usecase.AuthPolicy{
		IPFailureWindow: cfg.Login.IPFailureWindow,
		IPFailureLimit:  cfg.Login.IPFailureLimit,
	})

	catalogService := usecase.NewCatalogService(catalog, log)

	sweeper := usecase.NewSweeper(codes, sessions, failures, log, usecase.SweeperConfig{
		Interval:         cfg.Sweeper.Interval,
		FailureRetention: cfg.Sweeper.FailureRetention,
	})

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), "taobei:rate-limit", rateLimitWindow*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Telemetry:   telemetryProvider,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:      authService,
			Codes:     codeService,
			Passwords: passwordService,
			Sessions:  sessionService,
			Catalog:   catalogService,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		tracer:  tracer,
		sweeper: sweeper,
	}, nil
}

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
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting taobei API",
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
		stopSweeper()
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
