package dto

import (
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/purchasing"
)

// --- Request DTOs ---

// POLineRequest represents an order line in create requests.
type POLineRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	VariantID string  `json:"variantId,omitempty"`
	Qty       float64 `json:"qty" binding:"required,gt=0"`
	UnitCost  float64 `json:"unitCost,omitempty"`
}

// CreateOrderRequest for POST /purchasing/orders.
type CreateOrderRequest struct {
	SupplierID string          `json:"supplierId" binding:"required"`
	Date       time.Time       `json:"date,omitempty"`
	ExpectedAt *time.Time      `json:"expectedAt,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	Lines      []POLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateOrderRequest) ToEntity() *purchasing.PurchaseOrder {
	supplierID, _ := id.Parse(r.SupplierID)

	po := purchasing.NewPurchaseOrder(supplierID)
	if !r.Date.IsZero() {
		po.Date = r.Date.UTC()
	}
	po.ExpectedAt = r.ExpectedAt
	po.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		variantID, _ := id.Parse(line.VariantID)
		po.AddLine(purchasing.POLine{
			ProductID: productID,
			VariantID: variantID,
			Qty:       types.NewQuantityFromFloat64(line.Qty),
			UnitCost:  moneyFromFloat(line.UnitCost),
		})
	}
	return po
}

// ReceiveLineRequest represents one received position of a delivery.
type ReceiveLineRequest struct {
	POLineID   string     `json:"poLineId" binding:"required"`
	Qty        float64    `json:"qty" binding:"required,gt=0"`
	LocationID string     `json:"locationId" binding:"required"`
	UnitCost   float64    `json:"unitCost,omitempty"`
	LotNumber  string     `json:"lotNumber,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// ReceiveRequest for POST /purchasing/orders/:id/receive.
type ReceiveRequest struct {
	Lines []ReceiveLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToReceiveLines converts the request to service receive lines.
func (r *ReceiveRequest) ToReceiveLines() []purchasing.ReceiveLine {
	lines := make([]purchasing.ReceiveLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		poLineID, _ := id.Parse(line.POLineID)
		locationID, _ := id.Parse(line.LocationID)
		lines = append(lines, purchasing.ReceiveLine{
			POLineID:   poLineID,
			Qty:        types.NewQuantityFromFloat64(line.Qty),
			LocationID: locationID,
			UnitCost:   moneyFromFloat(line.UnitCost),
			LotNumber:  line.LotNumber,
			ExpiryDate: line.ExpiryDate,
		})
	}
	return lines
}

// --- Response DTOs ---

// POLineResponse represents an order line in API responses.
type POLineResponse struct {
	LineID      string  `json:"lineId"`
	LineNo      int     `json:"lineNo"`
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Qty         float64 `json:"qty"`
	QtyReceived float64 `json:"qtyReceived"`
	Remaining   float64 `json:"remaining"`
	UnitCost    string  `json:"unitCost"`
}

// OrderResponse represents a purchase order in API responses.
type OrderResponse struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	SupplierID string     `json:"supplierId"`
	Status     string     `json:"status"`
	Date       time.Time  `json:"date"`
	ExpectedAt *time.Time `json:"expectedAt,omitempty"`
	Comment    string     `json:"comment,omitempty"`

	Lines []POLineResponse `json:"lines,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromOrder converts an order to the response DTO.
func FromOrder(po *purchasing.PurchaseOrder) *OrderResponse {
	resp := &OrderResponse{
		ID:         po.ID.String(),
		Number:     po.Number,
		SupplierID: po.SupplierID.String(),
		Status:     string(po.Status),
		Date:       po.Date,
		ExpectedAt: po.ExpectedAt,
		Comment:    po.Comment,
		Version:    po.Version,
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
	}

	resp.Lines = make([]POLineResponse, len(po.Lines))
	for i := range po.Lines {
		l := &po.Lines[i]
		resp.Lines[i] = POLineResponse{
			LineID:      l.LineID.String(),
			LineNo:      l.LineNo,
			ProductID:   l.ProductID.String(),
			VariantID:   optionalID(l.VariantID),
			Qty:         l.Qty.Float64(),
			QtyReceived: l.QtyReceived.Float64(),
			Remaining:   l.Remaining().Float64(),
			UnitCost:    l.UnitCost.String(),
		}
	}
	return resp
}

// FromOrders converts a slice of orders.
func FromOrders(orders []*purchasing.PurchaseOrder) []*OrderResponse {
	out := make([]*OrderResponse, len(orders))
	for i, po := range orders {
		out[i] = FromOrder(po)
	}
	return out
}

// GRNLineResponse represents a GRN line in API responses.
type GRNLineResponse struct {
	LineID     string     `json:"lineId"`
	LineNo     int        `json:"lineNo"`
	POLineID   string     `json:"poLineId"`
	ProductID  string     `json:"productId"`
	VariantID  *string    `json:"variantId,omitempty"`
	LocationID string     `json:"locationId"`
	Qty        float64    `json:"qty"`
	UnitCost   string     `json:"unitCost"`
	LotNumber  string     `json:"lotNumber,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// GRNResponse represents a goods received note in API responses.
type GRNResponse struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	OrderID    string    `json:"orderId"`
	MovementID *string   `json:"movementId,omitempty"`
	ReceivedBy string    `json:"receivedBy,omitempty"`
	Date       time.Time `json:"date"`

	Lines []GRNLineResponse `json:"lines,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// FromGRN converts a GRN to the response DTO.
func FromGRN(g *purchasing.GRN) *GRNResponse {
	resp := &GRNResponse{
		ID:         g.ID.String(),
		Number:     g.Number,
		OrderID:    g.OrderID.String(),
		MovementID: optionalID(g.MovementID),
		ReceivedBy: g.ReceivedBy,
		Date:       g.Date,
		CreatedAt:  g.CreatedAt,
	}

	resp.Lines = make([]GRNLineResponse, len(g.Lines))
	for i := range g.Lines {
		l := &g.Lines[i]
		resp.Lines[i] = GRNLineResponse{
			LineID:     l.LineID.String(),
			LineNo:     l.LineNo,
			POLineID:   l.POLineID.String(),
			ProductID:  l.ProductID.String(),
			VariantID:  optionalID(l.VariantID),
			LocationID: l.LocationID.String(),
			Qty:        l.Qty.Float64(),
			UnitCost:   l.UnitCost.String(),
			LotNumber:  l.LotNumber,
			ExpiryDate: l.ExpiryDate,
		}
	}
	return resp
}

// FromGRNs converts a slice of GRNs.
func FromGRNs(grns []*purchasing.GRN) []*GRNResponse {
	out := make([]*GRNResponse, len(grns))
	for i, g := range grns {
		out[i] = FromGRN(g)
	}
	return out
}

// TimelineEntryResponse represents one order timeline item.
type TimelineEntryResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ActorID   string    `json:"actorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromTimeline converts timeline entries.
func FromTimeline(entries []purchasing.TimelineEntry) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = TimelineEntryResponse{
			ID:        e.ID.String(),
			Kind:      string(e.Kind),
			Message:   e.Message,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
