package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stokado/internal/core/id"
	"stokado/internal/domain/movement"
	"stokado/internal/infrastructure/http/v1/dto"
)

// MovementHandler handles stock movement endpoints.
type MovementHandler struct {
	*BaseHandler
	service *movement.Service
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, service *movement.Service) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

// Create handles POST /movements.
func (h *MovementHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(m))
}

// Update handles PUT /movements/:id.
func (h *MovementHandler) Update(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(m)
	if err := h.service.Update(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}

// Get handles GET /movements/:id.
func (h *MovementHandler) Get(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}

// Delete handles DELETE /movements/:id (soft delete, drafts only).
func (h *MovementHandler) Delete(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// List handles GET /movements.
func (h *MovementHandler) List(c *gin.Context) {
	filter := movement.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if t := c.Query("type"); t != "" {
		mt := movement.Type(t)
		filter.Type = &mt
	}
	if s := c.Query("status"); s != "" {
		ms := movement.Status(s)
		filter.Status = &ms
	}
	if rt := c.Query("refType"); rt != "" {
		mrt := movement.RefType(rt)
		filter.RefType = &mrt
	}
	filter.RefID = h.ParseIDQuery(c, "refId")
	filter.FromDate = h.ParseTimeQuery(c, "dateFrom")
	filter.ToDate = h.ParseTimeQuery(c, "dateTo")

	movements, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovements(movements))
}

// Submit handles POST /movements/:id/submit.
func (h *MovementHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

// Approve handles POST /movements/:id/approve.
func (h *MovementHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Post handles POST /movements/:id/post.
func (h *MovementHandler) Post(c *gin.Context) {
	h.transition(c, h.service.Post)
}

// Reject handles POST /movements/:id/reject. A reason is required.
func (h *MovementHandler) Reject(c *gin.Context) {
	h.transitionWithReason(c, h.service.Reject)
}

// Cancel handles POST /movements/:id/cancel. A reason is required.
func (h *MovementHandler) Cancel(c *gin.Context) {
	h.transitionWithReason(c, h.service.Cancel)
}

// Reverse handles POST /movements/:id/reverse, creating a draft
// compensating movement for a posted one.
func (h *MovementHandler) Reverse(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	reversal, err := h.service.Reverse(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(reversal))
}

// CreateReturn handles POST /movements/:id/return, creating a draft RETURN
// movement against a posted issue.
func (h *MovementHandler) CreateReturn(c *gin.Context) {
	issueID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ret, err := h.service.CreateReturn(c.Request.Context(), issueID, req.ToSpecs(), req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(ret))
}

func (h *MovementHandler) transition(c *gin.Context, fn func(context.Context, id.ID) (*movement.StockMovement, error)) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	m, err := fn(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}

func (h *MovementHandler) transitionWithReason(c *gin.Context, fn func(context.Context, id.ID, string) (*movement.StockMovement, error)) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := fn(c.Request.Context(), movementID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}

// RegisterRoutes registers movement routes.
func (h *MovementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)

	rg.POST("/:id/submit", h.Submit)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/post", h.Post)
	rg.POST("/:id/reverse", h.Reverse)
	rg.POST("/:id/return", h.CreateReturn)
}
