package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stokado/internal/domain/lot"
	"stokado/internal/infrastructure/http/v1/dto"
)

// LotHandler handles lot read endpoints. Lots are created by posting, not
// through the API.
type LotHandler struct {
	*BaseHandler
	service *lot.Service
}

// NewLotHandler creates a new lot handler.
func NewLotHandler(base *BaseHandler, service *lot.Service) *LotHandler {
	return &LotHandler{BaseHandler: base, service: service}
}

// Get handles GET /lots/:id.
func (h *LotHandler) Get(c *gin.Context) {
	lotID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.Get(c.Request.Context(), lotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLot(l))
}

// GetBalances handles GET /lots/:id/balances.
func (h *LotHandler) GetBalances(c *gin.Context) {
	lotID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	balances, err := h.service.GetBalances(c.Request.Context(), lotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromLotBalances(balances), Count: len(balances)})
}

// ListByProduct handles GET /lots/by-product/:productId.
func (h *LotHandler) ListByProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	lots, err := h.service.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromLots(lots), Count: len(lots)})
}

// ListExpiring handles GET /lots/expiring?days=30.
func (h *LotHandler) ListExpiring(c *gin.Context) {
	days := h.ParseIntQuery(c, "days", 30)
	limit := h.ParseIntQuery(c, "limit", 100)
	deadline := time.Now().UTC().AddDate(0, 0, days)

	stocks, err := h.service.ListExpiring(c.Request.Context(), deadline, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromLotStocks(stocks), Count: len(stocks)})
}

// RegisterRoutes registers lot routes.
func (h *LotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/expiring", h.ListExpiring)
	rg.GET("/by-product/:productId", h.ListByProduct)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/balances", h.GetBalances)
}
