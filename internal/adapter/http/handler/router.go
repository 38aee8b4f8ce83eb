package handler

import (
	"peerpay/internal/adapter/http/middleware"
	redisStore "peerpay/internal/adapter/storage/redis"
	"peerpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	TransferSvc    ports.TransferService
	QuerySvc       ports.QueryService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

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

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	accountHandler := NewAccountHandler(deps.QuerySvc)
	transferHandler := NewTransferHandler(deps.TransferSvc, deps.QuerySvc)

	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.GET("", rl("queries"), accountHandler.ListAccounts)
		accounts.GET("/me", rl("queries"), accountHandler.GetMe)
		accounts.GET("/:id/balance", rl("queries"), accountHandler.GetBalance)
		accounts.GET("/:id/transfers", rl("queries"), accountHandler.ListTransfers)
		accounts.GET("/:id/transfers/pending", rl("queries"), accountHandler.ListPending)
	}

	transfers := v1.Group("/transfers", jwtAuth)
	{
		transfers.POST("", rl("transfers"), transferHandler.Send)
		transfers.POST("/request", rl("transfers"), transferHandler.Request)
		transfers.POST("/:id/respond", rl("transfers"), transferHandler.Respond)
		transfers.GET("/:id", rl("queries"), transferHandler.GetByID)
	}

	return r
}
