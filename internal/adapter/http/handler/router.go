package handler

import (
	"wallet-reconciler/internal/adapter/http/middleware"
	redisStore "wallet-reconciler/internal/adapter/storage/redis"
	"wallet-reconciler/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ReconcileSvc   ports.ReconciliationService
	TokenSvc       ports.TokenService         // nil = trigger is unauthenticated
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	var guards []gin.HandlerFunc
	if deps.TokenSvc != nil {
		guards = append(guards, middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	}

	v1 := r.Group("/api/v1")

	reconcileHandler := NewReconciliationHandler(deps.ReconcileSvc)
	reconciliation := v1.Group("/reconciliation", guards...)
	{
		reconciliation.POST("/bank-transactions", rl("reconcile_trigger"), reconcileHandler.Trigger)
		reconciliation.GET("/runs", rl("reconcile_runs"), reconcileHandler.ListRuns)
	}

	return r
}
