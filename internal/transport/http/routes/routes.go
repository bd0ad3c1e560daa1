package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/config"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/handlers"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

// Rate limit traffic classes.
const (
	RateClassAuth    = "auth"
	RateClassSync    = "sync"
	RateClassUpload  = "upload"
	RateClassSurvey  = "survey"
	RateClassGeneral = "general"
)

// Roles allowed to request attachment uploads.
var uploaderRoles = append([]string{domain.RoleAdmin}, domain.SurveyorRoleCodes...)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	MobileAuth *usecase.MobileAuthService
	Access     *usecase.AccessControlService
	ObjectACL  *usecase.ObjectACLService
	Sync       *usecase.SyncService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	RateLimiter    *middleware.RateLimiter
	Services       ServiceSet
	Events         port.EventPublisher
	Observer       port.DecisionObserver
	HTTPMetrics    *middleware.HTTPMetrics
	Gatherer       prometheus.Gatherer
	TracerProvider trace.TracerProvider
	Database       DatabaseChecker
	Cache          CacheChecker
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
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(middleware.TracingOptions{
		ServiceName:    serviceName(deps.Config),
		TracerProvider: deps.TracerProvider,
		SkipPaths:      []string{"/healthz", "/readyz", "/metrics"},
	}))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}
	if deps.Config != nil && len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
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

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	gate := middleware.NewGatekeeper(
		authenticator(deps.Services.MobileAuth),
		scopeChecker(deps.Services.Access),
		middleware.WithAuditPublisher(deps.Events),
		middleware.WithGateObserver(deps.Observer),
		middleware.WithGateLogger(deps.Logger),
	)
	authGate := gate.MobileAuthGate()

	api := r.Group("/api/v1")
	{
		mobile := api.Group("/mobile")
		mobileHandler := handlers.NewMobileAuthHandler(deps.Services.MobileAuth)
		if deps.Services.MobileAuth != nil {
			mobile.POST("/auth/login", chain(rateLimit(deps, RateClassAuth), mobileHandler.Login)...)
		}
		mobile.GET("/me", authGate, mobileHandler.Me)

		if deps.Services.Sync != nil {
			syncGroup := api.Group("/sync", chain(authGate, rateLimit(deps, RateClassSync))...)
			handlers.NewSyncHandler(deps.Services.Sync).RegisterRoutes(syncGroup)
		}

		if deps.Services.ObjectACL != nil {
			attachments := handlers.NewAttachmentHandler(deps.Services.ObjectACL)
			group := api.Group("/attachments")
			group.POST("/upload-url", chain(authGate, gate.RequireRoles(uploaderRoles...), rateLimit(deps, RateClassUpload), attachments.UploadURL)...)
			// Public objects are readable without a token.
			group.GET("/*key", chain(gate.OptionalAuthGate(), rateLimit(deps, RateClassGeneral), attachments.Download)...)
			group.PUT("/acl/*key", chain(authGate, rateLimit(deps, RateClassGeneral), attachments.ReplaceACL)...)
		}

		if deps.Services.Access != nil {
			survey := handlers.NewSurveyHandler(deps.Services.Access)
			api.GET("/survey-sessions/:id/access", chain(authGate, rateLimit(deps, RateClassSurvey), survey.SessionAccess)...)
			api.GET("/geo/check", chain(authGate, rateLimit(deps, RateClassGeneral), gate.RequireGeographicAccess(nil), survey.GeoCheck)...)
		}
	}

	return r
}

// chain drops nil handlers so optional middleware can be listed inline.
func chain(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func rateLimit(deps Dependencies, class string) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	settings := deps.Config.RateLimit
	limits := map[string]int{
		RateClassAuth:    settings.AuthMaxAttempts,
		RateClassSync:    settings.SyncMaxAttempts,
		RateClassUpload:  settings.UploadMaxAttempts,
		RateClassSurvey:  settings.SurveyMaxAttempts,
		RateClassGeneral: settings.GeneralMaxAttempts,
	}
	limit := limits[class]
	if limit <= 0 {
		return nil
	}

	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	identifier := middleware.UserOrIPIdentifier()
	if class == RateClassAuth {
		identifier = middleware.ClientIPIdentifier()
	}

	return deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       class,
		Limit:      limit,
		Window:     window,
		Identifier: identifier,
	})
}

func serviceName(cfg *config.AppConfig) string {
	if cfg == nil || cfg.Telemetry.ServiceName == "" {
		return "portal-api"
	}
	return cfg.Telemetry.ServiceName
}

func authenticator(svc *usecase.MobileAuthService) middleware.Authenticator {
	if svc == nil {
		return nil
	}
	return svc
}

func scopeChecker(svc *usecase.AccessControlService) middleware.ScopeChecker {
	if svc == nil {
		return nil
	}
	return svc
}
