package routes

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/infra/security"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/handlers"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// WebDependencies encapsulates the objects required by the session host.
type WebDependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Registerer  prometheus.Registerer
	RateLimiter *middleware.RateLimiter
	Controller  *usecase.AuthController
	Cache       CacheChecker
}

// APIDependencies encapsulates the objects required by the profile API.
type APIDependencies struct {
	Config     *config.AppConfig
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Verifier   *security.TokenVerifier
	Profiles   *usecase.ProfileService
	Database   DatabaseChecker
}

// RegisterWeb configures the session host: auth actions, session state and the guarded app surface.
func RegisterWeb(deps WebDependencies) (*gin.Engine, error) {
	if deps.Controller == nil {
		return nil, fmt.Errorf("routes: auth controller is required")
	}

	r, err := newEngine(deps.Config, deps.Logger, deps.Registerer)
	if err != nil {
		return nil, err
	}

	var healthOptions []handlers.HealthOption
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	registerHealth(r, deps.Registerer, healthOptions...)

	sessionHandler := handlers.NewSessionHandler(deps.Controller, deps.Logger)

	authGroup := r.Group("/auth")
	{
		authGroup.GET("", sessionHandler.Entry)
		authGroup.GET("/session", sessionHandler.State)
		authGroup.GET("/events", sessionHandler.Events)

		handlers.NewAuthHandler(deps.Controller).RegisterRoutes(authGroup, buildLoginMiddlewares(deps)...)

		passwordGroup := authGroup.Group("/password")
		handlers.NewPasswordHandler(deps.Controller).RegisterRoutes(passwordGroup, buildPasswordResetMiddlewares(deps)...)
	}

	entryPath := deps.Config.Auth.EntryPath
	app := r.Group("/app", middleware.RouteGuard(usecase.NewRouteGuard(deps.Controller.Store()), entryPath))
	app.GET("/*path", sessionHandler.App)

	return r, nil
}

// RegisterAPI configures the profile API.
func RegisterAPI(deps APIDependencies) (*gin.Engine, error) {
	if deps.Verifier == nil || deps.Profiles == nil {
		return nil, fmt.Errorf("routes: token verifier and profile service are required")
	}

	r, err := newEngine(deps.Config, deps.Logger, deps.Registerer)
	if err != nil {
		return nil, err
	}
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	var healthOptions []handlers.HealthOption
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	registerHealth(r, deps.Registerer, healthOptions...)

	profileHandler := handlers.NewProfileHandler(deps.Profiles, deps.Logger)
	r.GET("/", profileHandler.Welcome)
	profileHandler.RegisterRoutes(r.Group("/api/users"), middleware.BearerAuth(deps.Verifier))

	host := fmt.Sprintf("%s:%d", deps.Config.App.Host, deps.Config.App.Port)
	handlers.RegisterSwagger(r, host)

	return r, nil
}

func newEngine(cfg *config.AppConfig, logger *zap.Logger, registerer prometheus.Registerer) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("routes: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registerer})
	if err != nil {
		return nil, fmt.Errorf("routes: http metrics: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Handler())

	return r, nil
}

func registerHealth(r *gin.Engine, registerer prometheus.Registerer, opts ...handlers.HealthOption) {
	healthHandler := handlers.NewHealthHandler(opts...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	if gatherer, ok := registerer.(prometheus.Gatherer); ok {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
		return
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func buildLoginMiddlewares(deps WebDependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildPasswordResetMiddlewares(deps WebDependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "password_reset_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
