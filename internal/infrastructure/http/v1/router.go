// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stokado/internal/domain/auth"
	"stokado/internal/domain/catalog"
	"stokado/internal/domain/lot"
	"stokado/internal/domain/movement"
	"stokado/internal/domain/purchasing"
	"stokado/internal/domain/stock"
	"stokado/internal/infrastructure/http/v1/handlers"
	"stokado/internal/infrastructure/http/v1/middleware"
	"stokado/internal/infrastructure/storage/postgres"
	"stokado/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (used by health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// TokenValidator validates bearer tokens on protected routes.
	TokenValidator middleware.TokenValidator

	// IdempotencyStore backs the idempotency middleware. Nil disables it.
	IdempotencyStore *postgres.IdempotencyStore

	AuthService       *auth.Service
	CatalogService    *catalog.Service
	MovementService   *movement.Service
	StockService      *stock.Service
	LotService        *lot.Service
	PurchasingService *purchasing.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	healthHandler.RegisterRoutes(router.Group("/health"))

	base := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		// Public auth endpoints (login) plus protected user management
		publicAuth := api.Group("/auth")
		protectedAuth := api.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.TokenValidator))
		handlers.NewAuthHandler(base, cfg.AuthService).RegisterRoutes(publicAuth, protectedAuth)

		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.TokenValidator))
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		handlers.NewCatalogHandler(base, cfg.CatalogService).RegisterRoutes(protected.Group("/catalog"))
		handlers.NewMovementHandler(base, cfg.MovementService).RegisterRoutes(protected.Group("/movements"))
		handlers.NewStockHandler(base, cfg.StockService).RegisterRoutes(protected.Group("/stock"))
		handlers.NewLotHandler(base, cfg.LotService).RegisterRoutes(protected.Group("/lots"))
		handlers.NewPurchasingHandler(base, cfg.PurchasingService).RegisterRoutes(protected)
	}

	return router
}
