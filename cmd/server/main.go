// Package main is the entry point for the stokado API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stokado/internal/domain/auth"
	"stokado/internal/domain/catalog"
	"stokado/internal/domain/lot"
	"stokado/internal/domain/movement"
	"stokado/internal/domain/purchasing"
	"stokado/internal/domain/stock"
	v1 "stokado/internal/infrastructure/http/v1"
	"stokado/internal/infrastructure/storage/postgres"
	"stokado/internal/infrastructure/storage/postgres/auth_repo"
	"stokado/internal/infrastructure/storage/postgres/catalog_repo"
	"stokado/internal/infrastructure/storage/postgres/document_repo"
	"stokado/internal/infrastructure/storage/postgres/register_repo"
	"stokado/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stokado server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	movementRepo := document_repo.NewMovementRepo(txManager)
	purchasingRepo := document_repo.NewPurchasingRepo(txManager)
	stockRepo := register_repo.NewStockRepo(txManager)
	lotRepo := register_repo.NewLotRepo(txManager)
	catalogRepo := catalog_repo.NewCatalogRepo(txManager)
	userRepo := auth_repo.NewUserRepo(txManager)

	// --- Infrastructure services ---
	numbers := postgres.NewSequenceGenerator(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	events := postgres.NewOutboxPublisher(txManager)

	// --- JWT ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtConfig := auth.DefaultJWTConfig(jwtSecret)
	if ttl := getEnvDuration("JWT_ACCESS_TTL", 0); ttl > 0 {
		jwtConfig.AccessTokenTTL = ttl
	}
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Domain services ---
	stockService := stock.NewService(stockRepo)
	lotService := lot.NewService(lotRepo)
	catalogService := catalog.NewService(catalogRepo)
	authService := auth.NewService(userRepo, jwtService)

	movementService := movement.NewService(
		movementRepo,
		stockService,
		lotService,
		catalogRepo,
		numbers,
		txManager,
		auditService,
		events,
	)

	purchasingService := purchasing.NewService(
		purchasingRepo,
		movementService,
		numbers,
		txManager,
		events,
	)

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		ttl := getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute)
		idempotencyStore = postgres.NewIdempotencyStore(txManager, ttl)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:              pool,
		Logger:            log,
		TokenValidator:    authService,
		IdempotencyStore:  idempotencyStore,
		AuthService:       authService,
		CatalogService:    catalogService,
		MovementService:   movementService,
		StockService:      stockService,
		LotService:        lotService,
		PurchasingService: purchasingService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
