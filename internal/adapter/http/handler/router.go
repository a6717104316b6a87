package handler

import (
	"time"

	"revenue-ledger/internal/adapter/http/middleware"
	redisStore "revenue-ledger/internal/adapter/storage/redis"
	"revenue-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DistributionSvc ports.DistributionService
	RefundSvc       ports.RefundService
	PayoutSvc       ports.PayoutService
	ReportingSvc    ports.ReportingService
	AdjustmentSvc   ports.AdjustmentService
	TokenSvc        ports.TokenService
	SigSvc          ports.SignatureService
	WebhookSecret   string
	TimestampDrift  time.Duration
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
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

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Gateway webhooks (HMAC-signed) ---
	webhookAuth := middleware.WebhookAuth(deps.SigSvc, deps.WebhookSecret, deps.TimestampDrift, deps.Logger)
	webhookHandler := NewWebhookHandler(deps.DistributionSvc, deps.RefundSvc)
	webhooks := v1.Group("/webhooks", webhookAuth)
	{
		webhooks.POST("/payments", rl("webhooks"), webhookHandler.HandlePayment)
		webhooks.POST("/refunds", rl("webhooks"), webhookHandler.HandleRefund)
	}

	// --- Instructor routes (JWT-authenticated) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.ReportingSvc, deps.AdjustmentSvc)
	payoutHandler := NewPayoutHandler(deps.PayoutSvc)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
	}

	payouts := v1.Group("/payouts", jwtAuth)
	{
		payouts.POST("", rl("payouts"), payoutHandler.Create)
		payouts.GET("", rl("payouts"), payoutHandler.List)
		payouts.GET("/:id", rl("payouts"), payoutHandler.Get)
		payouts.POST("/:id/cancel", rl("payouts"), payoutHandler.Cancel)
	}

	// --- Admin routes (JWT + staff role) ---
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)
	admin := v1.Group("/admin", jwtAuth, middleware.RequireStaff())
	{
		admin.GET("/payouts", rl("admin"), payoutHandler.List)
		admin.POST("/payouts/:id/decision", rl("admin"), payoutHandler.Decide)
		admin.POST("/refunds", rl("admin"), webhookHandler.HandleRefund)
		admin.POST("/wallets/:instructorId/adjustments", rl("admin"), walletHandler.Adjust)
		admin.GET("/wallets/:instructorId/verify", rl("admin"), walletHandler.VerifyLedger)
		admin.GET("/dashboard/stats", rl("dashboard"), dashboardHandler.GetStats)
	}

	return r
}
