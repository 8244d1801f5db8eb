package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/infra/config"
	"github.com/clx1415926/taobei-app/internal/infra/telemetry"
	"github.com/clx1415926/taobei-app/internal/transport/http/handlers"
	"github.com/clx1415926/taobei-app/internal/transport/http/middleware"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Codes     *usecase.VerificationCodeService
	Passwords *usecase.PasswordService
	Sessions  *usecase.SessionService
	Catalog   *usecase.CatalogService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Telemetry   *telemetry.Provider
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Codes, deps.Services.Sessions, deps.Telemetry)
		authGroup := api.Group("/auth")
		authHandler.RegisterRoutes(authGroup,
			buildRateLimitChain(deps, "auth_send_code_ip", ratePicker{sendCode: true}),
			buildRateLimitChain(deps, "auth_login_ip", ratePicker{login: true}),
			buildRateLimitChain(deps, "auth_register_ip", ratePicker{register: true}),
		)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Auth, deps.Services.Passwords, deps.Services.Sessions)
		passwordGroup := api.Group("/password")
		passwordHandler.RegisterRoutes(passwordGroup, buildRateLimitChain(deps, "password_reset_ip", ratePicker{reset: true}))

		userHandler := handlers.NewUserHandler(deps.Services.Auth, deps.Services.Sessions)
		userHandler.RegisterRoutes(api.Group("/user"))

		if deps.Services.Catalog != nil {
			catalogHandler := handlers.NewCatalogHandler(deps.Services.Catalog)
			catalogHandler.RegisterRoutes(api)
		}
	}

	return r
}

type ratePicker struct {
	sendCode bool
	login    bool
	register bool
	reset    bool
}

func (p ratePicker) limit(cfg config.RateLimitSettings) int {
	switch {
	case p.sendCode:
		return cfg.SendCodeMaxRequests
	case p.login:
		return cfg.LoginMaxRequests
	case p.register:
		return cfg.RegisterMaxRequests
	case p.reset:
		return cfg.ResetMaxRequests
	}
	return 0
}

func buildRateLimitChain(deps Dependencies, name string, picker ratePicker) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := picker.limit(deps.Config.RateLimit)
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
