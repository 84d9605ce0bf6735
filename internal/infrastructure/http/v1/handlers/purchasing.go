package handlers

import (
	"github.com/gin-gonic/gin"

	"stokado/internal/domain/purchasing"
	"stokado/internal/infrastructure/http/v1/dto"
)

// PurchasingHandler handles purchase order and goods receipt endpoints.
type PurchasingHandler struct {
	*BaseHandler
	service *purchasing.Service
}

// NewPurchasingHandler creates a new purchasing handler.
func NewPurchasingHandler(base *BaseHandler, service *purchasing.Service) *PurchasingHandler {
	return &PurchasingHandler{BaseHandler: base, service: service}
}

// CreateOrder handles POST /purchase-orders.
func (h *PurchasingHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	po := req.ToEntity()
	if err := h.service.CreateOrder(c.Request.Context(), po); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromOrder(po))
}

// GetOrder handles GET /purchase-orders/:id.
func (h *PurchasingHandler) GetOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(po))
}

// ListOrders handles GET /purchase-orders.
func (h *PurchasingHandler) ListOrders(c *gin.Context) {
	filter := purchasing.OrderFilter{
		SupplierID: h.ParseIDQuery(c, "supplierId"),
		FromDate:   h.ParseTimeQuery(c, "dateFrom"),
		ToDate:     h.ParseTimeQuery(c, "dateTo"),
		Limit:      h.ParseIntQuery(c, "limit", 0),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		st := purchasing.POStatus(s)
		filter.Status = &st
	}

	orders, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromOrders(orders), Count: len(orders)})
}

// SendOrder handles POST /purchase-orders/:id/send.
func (h *PurchasingHandler) SendOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.SendOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(po))
}

// CancelOrder handles POST /purchase-orders/:id/cancel.
func (h *PurchasingHandler) CancelOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}

	po, err := h.service.CancelOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(po))
}

// CloseOrder handles POST /purchase-orders/:id/close.
func (h *PurchasingHandler) CloseOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.CloseOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOrder(po))
}

// Receive handles POST /purchase-orders/:id/receive. It records a goods
// receipt note and creates a draft receive movement for the delivered lines.
func (h *PurchasingHandler) Receive(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	grn, err := h.service.Receive(c.Request.Context(), orderID, req.ToReceiveLines())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromGRN(grn))
}

// ListGRNs handles GET /purchase-orders/:id/grns.
func (h *PurchasingHandler) ListGRNs(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	grns, err := h.service.ListGRNsByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromGRNs(grns), Count: len(grns)})
}

// GetTimeline handles GET /purchase-orders/:id/timeline.
func (h *PurchasingHandler) GetTimeline(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.GetTimeline(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: dto.FromTimeline(entries), Count: len(entries)})
}

// GetGRN handles GET /grns/:id.
func (h *PurchasingHandler) GetGRN(c *gin.Context) {
	grnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	grn, err := h.service.GetGRN(c.Request.Context(), grnID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromGRN(grn))
}

// RegisterRoutes registers purchasing routes.
func (h *PurchasingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/send", h.SendOrder)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/close", h.CloseOrder)
		orders.POST("/:id/receive", h.Receive)
		orders.GET("/:id/grns", h.ListGRNs)
		orders.GET("/:id/timeline", h.GetTimeline)
	}

	grns := rg.Group("/grns")
	{
		grns.GET("/:id", h.GetGRN)
	}
}
