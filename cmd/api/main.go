package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"revenue-ledger/config"
	httpHandler "revenue-ledger/internal/adapter/http/handler"
	pgStorage "revenue-ledger/internal/adapter/storage/postgres"
	redisStorage "revenue-ledger/internal/adapter/storage/redis"
	"revenue-ledger/internal/core/ports"
	"revenue-ledger/internal/service"
	"revenue-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Revenue Ledger")

	defaultPercent, err := cfg.Ledger.InstructorPercent()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger configuration")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	revenueRepo := pgStorage.NewRevenueRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	payoutTxRepo := pgStorage.NewPayoutTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	authz := service.NewRoleAuthorizer()

	// Initialize business services
	walletStore := service.NewWalletStore(walletRepo, ledgerRepo, log)
	distributionSvc := service.NewDistributionService(
		revenueRepo,
		walletStore,
		idempotencyCache,
		transactor,
		defaultPercent,
		log,
	)
	payoutSvc := service.NewPayoutService(
		payoutRepo,
		payoutTxRepo,
		walletStore,
		transactor,
		authz,
		cfg.Ledger.MinPayout,
		log,
	)
	refundSvc := service.NewRefundService(revenueRepo, walletStore, transactor, log)
	reportingSvc := service.NewReportingService(walletRepo, revenueRepo, payoutRepo, ledgerRepo, authz)
	adjustmentSvc := service.NewAdjustmentService(walletStore, transactor, authz, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DistributionSvc: distributionSvc,
		RefundSvc:       refundSvc,
		PayoutSvc:       payoutSvc,
		ReportingSvc:    reportingSvc,
		AdjustmentSvc:   adjustmentSvc,
		TokenSvc:        tokenSvc,
		SigSvc:          sigSvc,
		WebhookSecret:   cfg.Gateway.HMACSecret,
		TimestampDrift:  cfg.Gateway.TimestampDrift,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
