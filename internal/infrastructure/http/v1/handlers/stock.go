package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/stock"
	"stokado/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock register read endpoints.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// GetLocationBalances handles GET /stock/locations/:id/balances.
func (h *StockHandler) GetLocationBalances(c *gin.Context) {
	locationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	balances, err := h.service.GetLocationStock(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromBalances(balances), Count: len(balances)})
}

// GetBalance handles GET /stock/balance. productId and locationId are
// required query parameters; variantId narrows to one variant and `at`
// (RFC3339) reconstructs the balance as of a past date from the ledger.
func (h *StockHandler) GetBalance(c *gin.Context) {
	key, ok := h.parseBalanceKey(c)
	if !ok {
		return
	}

	if at := h.ParseTimeQuery(c, "at"); at != nil {
		qty, err := h.service.OnHandAt(c.Request.Context(), key, *at)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.FromBalance(stock.Balance{
			ProductID:  key.ProductID,
			VariantID:  key.VariantID,
			LocationID: key.LocationID,
			QtyOnHand:  qty,
		}))
		return
	}

	balance, err := h.service.OnHand(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBalance(balance))
}

// CheckAvailability handles GET /stock/availability/check. Advisory: a
// negative verdict is a normal 200 response, not an error.
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	key, ok := h.parseBalanceKey(c)
	if !ok {
		return
	}
	qty, err := types.ParseQuantity(c.Query("qty"))
	if err != nil || !qty.IsPositive() {
		h.Error(c, apperror.NewValidation("qty must be a positive number"))
		return
	}

	resp := dto.AvailabilityCheckResponse{
		ProductID:  key.ProductID.String(),
		LocationID: key.LocationID.String(),
		Requested:  qty.Float64(),
	}
	if !id.IsNil(key.VariantID) {
		v := key.VariantID.String()
		resp.VariantID = &v
	}

	err = h.service.CheckAvailability(c.Request.Context(), key, qty)
	var appErr *apperror.AppError
	switch {
	case err == nil:
		balance, err := h.service.OnHand(c.Request.Context(), key)
		if err != nil {
			h.Error(c, err)
			return
		}
		resp.Available = true
		resp.OnHand = balance.QtyOnHand.Float64()
	case errors.As(err, &appErr) && appErr.Code == apperror.CodeInsufficientStock:
		if onHand, ok := appErr.Details["available"].(float64); ok {
			resp.OnHand = onHand
		}
	default:
		h.Error(c, err)
		return
	}
	h.OK(c, resp)
}

// Recalculate handles POST /stock/recalculate. Optional locationId and
// productId narrow the rebuild.
func (h *StockHandler) Recalculate(c *gin.Context) {
	locationID := h.ParseIDQuery(c, "locationId")
	productID := h.ParseIDQuery(c, "productId")

	if err := h.service.Recalculate(c.Request.Context(), locationID, productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func (h *StockHandler) parseBalanceKey(c *gin.Context) (stock.BalanceKey, bool) {
	productID, err := id.Parse(c.Query("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("productId is required").WithDetail("param", "productId"))
		return stock.BalanceKey{}, false
	}
	locationID, err := id.Parse(c.Query("locationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("locationId is required").WithDetail("param", "locationId"))
		return stock.BalanceKey{}, false
	}

	key := stock.BalanceKey{ProductID: productID, LocationID: locationID}
	if v := h.ParseIDQuery(c, "variantId"); v != nil {
		key.VariantID = *v
	}
	return key, true
}

// GetProductAvailability handles GET /stock/availability/:productId.
func (h *StockHandler) GetProductAvailability(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	qty, err := h.service.GetProductAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AvailabilityResponse{
		ProductID: productID.String(),
		Available: qty.Float64(),
	})
}

// GetHistory handles GET /stock/history/:productId.
func (h *StockHandler) GetHistory(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	filter := stock.HistoryFilter{
		LocationID: h.ParseIDQuery(c, "locationId"),
		VariantID:  h.ParseIDQuery(c, "variantId"),
		FromDate:   h.ParseTimeQuery(c, "dateFrom"),
		ToDate:     h.ParseTimeQuery(c, "dateTo"),
		Limit:      h.ParseIntQuery(c, "limit", 100),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if rt := c.Query("recordType"); rt != "" {
		recordType := stock.RecordType(rt)
		filter.RecordType = &recordType
	}

	entries, err := h.service.GetHistory(c.Request.Context(), productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromEntries(entries), Count: len(entries)})
}

// GetTurnover handles GET /stock/turnover. dateFrom and dateTo are required.
func (h *StockHandler) GetTurnover(c *gin.Context) {
	from := h.ParseTimeQuery(c, "dateFrom")
	to := h.ParseTimeQuery(c, "dateTo")
	if from == nil || to == nil {
		h.Error(c, apperror.NewValidation("dateFrom and dateTo are required (RFC3339)"))
		return
	}

	filter := stock.TurnoverFilter{
		LocationID: h.ParseIDQuery(c, "locationId"),
		ProductID:  h.ParseIDQuery(c, "productId"),
		FromDate:   *from,
		ToDate:     *to,
	}

	turnover, err := h.service.GetTurnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTurnover(turnover))
}

// GetEntriesByMovement handles GET /stock/entries/:movementId.
func (h *StockHandler) GetEntriesByMovement(c *gin.Context) {
	movementID, err := id.Parse(c.Param("movementId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	entries, err := h.service.GetEntriesByRecorder(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromEntries(entries), Count: len(entries)})
}

// RegisterRoutes registers stock register routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balance", h.GetBalance)
	rg.GET("/locations/:id/balances", h.GetLocationBalances)
	rg.GET("/availability/check", h.CheckAvailability)
	rg.GET("/availability/:productId", h.GetProductAvailability)
	rg.GET("/history/:productId", h.GetHistory)
	rg.GET("/turnover", h.GetTurnover)
	rg.GET("/entries/:movementId", h.GetEntriesByMovement)
	rg.POST("/recalculate", h.Recalculate)
}
