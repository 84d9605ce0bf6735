package dto

import (
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/movement"
)

// --- Request DTOs ---

// MovementLineRequest represents a line in create/update requests.
type MovementLineRequest struct {
	ProductID      string  `json:"productId" binding:"required"`
	VariantID      string  `json:"variantId,omitempty"`
	FromLocationID string  `json:"fromLocationId,omitempty"`
	ToLocationID   string  `json:"toLocationId,omitempty"`
	Qty            float64 `json:"qty" binding:"required"`
	UnitCost       float64 `json:"unitCost,omitempty"`

	LotID         string     `json:"lotId,omitempty"`
	NewLotNumber  string     `json:"newLotNumber,omitempty"`
	NewExpiryDate *time.Time `json:"newExpiryDate,omitempty"`

	SourceLineID string `json:"sourceLineId,omitempty"`
}

func (r *MovementLineRequest) toLine() movement.MovementLine {
	productID, _ := id.Parse(r.ProductID)
	variantID, _ := id.Parse(r.VariantID)
	fromID, _ := id.Parse(r.FromLocationID)
	toID, _ := id.Parse(r.ToLocationID)
	lotID, _ := id.Parse(r.LotID)
	sourceID, _ := id.Parse(r.SourceLineID)

	return movement.MovementLine{
		ProductID:      productID,
		VariantID:      variantID,
		FromLocationID: fromID,
		ToLocationID:   toID,
		Qty:            types.NewQuantityFromFloat64(r.Qty),
		UnitCost:       moneyFromFloat(r.UnitCost),
		LotID:          lotID,
		NewLotNumber:   r.NewLotNumber,
		NewExpiryDate:  r.NewExpiryDate,
		SourceLineID:   sourceID,
	}
}

// CreateMovementRequest for POST /movements.
type CreateMovementRequest struct {
	Type    string                `json:"type" binding:"required"`
	Date    time.Time             `json:"date,omitempty"`
	Reason  string                `json:"reason,omitempty"`
	Comment string                `json:"comment,omitempty"`
	Lines   []MovementLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateMovementRequest) ToEntity() *movement.StockMovement {
	m := movement.New(movement.Type(r.Type), r.Date)
	m.Reason = r.Reason
	m.Comment = r.Comment
	for _, line := range r.Lines {
		m.AddLine(line.toLine())
	}
	return m
}

// UpdateMovementRequest for PUT /movements/:id. Only drafts and rejected
// movements accept updates.
type UpdateMovementRequest struct {
	Date    *time.Time            `json:"date,omitempty"`
	Reason  *string               `json:"reason,omitempty"`
	Comment *string               `json:"comment,omitempty"`
	Lines   []MovementLineRequest `json:"lines,omitempty"`
}

// ApplyTo applies updates to an existing movement.
func (r *UpdateMovementRequest) ApplyTo(m *movement.StockMovement) {
	if r.Date != nil {
		m.Date = r.Date.UTC()
	}
	if r.Reason != nil {
		m.Reason = *r.Reason
	}
	if r.Comment != nil {
		m.Comment = *r.Comment
	}
	if r.Lines != nil {
		m.Lines = nil
		for _, line := range r.Lines {
			m.AddLine(line.toLine())
		}
	}
}

// ReasonRequest carries the reason for reject and cancel actions.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReturnLineRequest is one returned position of an issue line.
type ReturnLineRequest struct {
	SourceLineID string     `json:"sourceLineId" binding:"required"`
	Qty          float64    `json:"qty" binding:"required,gt=0"`
	ToLocationID string     `json:"toLocationId,omitempty"`
	LotID        string     `json:"lotId,omitempty"`
	NewLotNumber string     `json:"newLotNumber,omitempty"`
	NewExpiry    *time.Time `json:"newExpiryDate,omitempty"`
}

// CreateReturnRequest for POST /movements/:id/return.
type CreateReturnRequest struct {
	Comment string              `json:"comment,omitempty"`
	Lines   []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToSpecs converts the request to return specs.
func (r *CreateReturnRequest) ToSpecs() []movement.ReturnSpec {
	specs := make([]movement.ReturnSpec, 0, len(r.Lines))
	for _, line := range r.Lines {
		sourceID, _ := id.Parse(line.SourceLineID)
		toID, _ := id.Parse(line.ToLocationID)
		lotID, _ := id.Parse(line.LotID)
		specs = append(specs, movement.ReturnSpec{
			SourceLineID:  sourceID,
			Qty:           types.NewQuantityFromFloat64(line.Qty),
			ToLocationID:  toID,
			LotID:         lotID,
			NewLotNumber:  line.NewLotNumber,
			NewExpiryDate: line.NewExpiry,
		})
	}
	return specs
}

// --- Response DTOs ---

// MovementLineResponse represents a line in API responses.
type MovementLineResponse struct {
	LineID         string  `json:"lineId"`
	LineNo         int     `json:"lineNo"`
	ProductID      string  `json:"productId"`
	VariantID      *string `json:"variantId,omitempty"`
	FromLocationID *string `json:"fromLocationId,omitempty"`
	ToLocationID   *string `json:"toLocationId,omitempty"`
	Qty            float64 `json:"qty"`
	UnitCost       string  `json:"unitCost"`

	LotID         *string    `json:"lotId,omitempty"`
	NewLotNumber  string     `json:"newLotNumber,omitempty"`
	NewExpiryDate *time.Time `json:"newExpiryDate,omitempty"`
	SourceLineID  *string    `json:"sourceLineId,omitempty"`
}

// MovementResponse represents a movement in API responses.
type MovementResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Type   string `json:"type"`
	Status string `json:"status"`

	Date    time.Time `json:"date"`
	Reason  string    `json:"reason,omitempty"`
	Comment string    `json:"comment,omitempty"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
	PostedAt    *time.Time `json:"postedAt,omitempty"`

	RejectReason string `json:"rejectReason,omitempty"`
	CancelReason string `json:"cancelReason,omitempty"`

	RefType string  `json:"refType,omitempty"`
	RefID   *string `json:"refId,omitempty"`

	Lines []MovementLineResponse `json:"lines,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromMovement converts a movement to the response DTO.
func FromMovement(m *movement.StockMovement) *MovementResponse {
	resp := &MovementResponse{
		ID:           m.ID.String(),
		Number:       m.Number,
		Type:         string(m.Type),
		Status:       string(m.Status),
		Date:         m.Date,
		Reason:       m.Reason,
		Comment:      m.Comment,
		SubmittedAt:  m.SubmittedAt,
		ApprovedAt:   m.ApprovedAt,
		ApprovedBy:   m.ApprovedBy,
		PostedAt:     m.PostedAt,
		RejectReason: m.RejectReason,
		CancelReason: m.CancelReason,
		RefType:      string(m.RefType),
		RefID:        optionalID(m.RefID),
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	resp.Lines = make([]MovementLineResponse, len(m.Lines))
	for i, line := range m.Lines {
		resp.Lines[i] = MovementLineResponse{
			LineID:         line.LineID.String(),
			LineNo:         line.LineNo,
			ProductID:      line.ProductID.String(),
			VariantID:      optionalID(line.VariantID),
			FromLocationID: optionalID(line.FromLocationID),
			ToLocationID:   optionalID(line.ToLocationID),
			Qty:            line.Qty.Float64(),
			UnitCost:       line.UnitCost.String(),
			LotID:          optionalID(line.LotID),
			NewLotNumber:   line.NewLotNumber,
			NewExpiryDate:  line.NewExpiryDate,
			SourceLineID:   optionalID(line.SourceLineID),
		}
	}
	return resp
}

// MovementListResponse represents a list of movements.
type MovementListResponse struct {
	Items []*MovementResponse `json:"items"`
	Count int                 `json:"count"`
}

// FromMovements converts a slice of movements.
func FromMovements(movements []*movement.StockMovement) MovementListResponse {
	items := make([]*MovementResponse, len(movements))
	for i, m := range movements {
		items[i] = FromMovement(m)
	}
	return MovementListResponse{Items: items, Count: len(items)}
}
