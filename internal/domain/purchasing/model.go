// Package purchasing provides purchase orders and goods received notes.
// Receiving against a PO posts a stock movement in the same transaction,
// so the ledger and the order progress can never disagree.
package purchasing

import (
	"context"
	"time"

	"stokado/internal/core/apperror"
	"stokado/internal/core/entity"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// POStatus is the lifecycle state of a purchase order.
type POStatus string

const (
	POStatusDraft             POStatus = "DRAFT"
	POStatusSent              POStatus = "SENT"
	POStatusPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POStatusFullyReceived     POStatus = "FULLY_RECEIVED"
	POStatusClosed            POStatus = "CLOSED"
	POStatusCancelled         POStatus = "CANCELLED"
)

// receivable reports whether goods may still arrive against the order.
func (s POStatus) receivable() bool {
	return s == POStatusSent || s == POStatusPartiallyReceived
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	entity.Document

	SupplierID id.ID    `db:"supplier_id" json:"supplierId"`
	Status     POStatus `db:"status" json:"status"`

	ExpectedAt *time.Time `db:"expected_at" json:"expectedAt,omitempty"`

	Lines []POLine `db:"-" json:"lines"`
}

// POLine is one ordered position. QtyReceived accumulates as GRNs post
// and never exceeds Qty.
type POLine struct {
	LineID  id.ID `db:"line_id" json:"lineId"`
	OrderID id.ID `db:"order_id" json:"-"`
	LineNo  int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`
	VariantID id.ID `db:"variant_id" json:"variantId,omitempty"`

	Qty         types.Quantity `db:"qty" json:"qty"`
	QtyReceived types.Quantity `db:"qty_received" json:"qtyReceived"`
	UnitCost    types.Money    `db:"unit_cost" json:"unitCost"`
}

// Remaining returns the quantity still expected on the line.
func (l *POLine) Remaining() types.Quantity {
	return l.Qty - l.QtyReceived
}

// NewPurchaseOrder creates a draft order for a supplier.
func NewPurchaseOrder(supplierID id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		Document:   entity.NewDocument(),
		SupplierID: supplierID,
		Status:     POStatusDraft,
	}
}

// AddLine appends an order line.
func (po *PurchaseOrder) AddLine(line POLine) {
	line.LineID = id.New()
	line.OrderID = po.ID
	line.LineNo = len(po.Lines) + 1
	po.Lines = append(po.Lines, line)
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(po.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	for i := range po.Lines {
		l := &po.Lines[i]
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("line product is required").WithDetail("lineNo", l.LineNo)
		}
		if !l.Qty.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").WithDetail("lineNo", l.LineNo)
		}
	}
	return nil
}

// LineByID returns the order line with the given identifier.
func (po *PurchaseOrder) LineByID(lineID id.ID) (*POLine, bool) {
	for i := range po.Lines {
		if po.Lines[i].LineID == lineID {
			return &po.Lines[i], true
		}
	}
	return nil, false
}

// RecomputeStatus derives the receiving status from line progress.
// Closed and cancelled orders keep their terminal status.
func (po *PurchaseOrder) RecomputeStatus() {
	if po.Status == POStatusClosed || po.Status == POStatusCancelled || po.Status == POStatusDraft {
		return
	}
	full := true
	any := false
	for i := range po.Lines {
		l := &po.Lines[i]
		if l.QtyReceived.IsPositive() {
			any = true
		}
		if l.QtyReceived < l.Qty {
			full = false
		}
	}
	switch {
	case full && len(po.Lines) > 0:
		po.Status = POStatusFullyReceived
	case any:
		po.Status = POStatusPartiallyReceived
	default:
		po.Status = POStatusSent
	}
}

// GRN is a goods received note: the record of one physical delivery
// against a purchase order.
type GRN struct {
	entity.Document

	OrderID id.ID `db:"order_id" json:"orderId"`

	// MovementID is the posted RECEIVE movement this delivery produced.
	MovementID id.ID `db:"movement_id" json:"movementId"`

	ReceivedBy string `db:"received_by" json:"receivedBy"`

	Lines []GRNLine `db:"-" json:"lines"`
}

// GRNLine records the received quantity for one order line.
type GRNLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	GRNID  id.ID `db:"grn_id" json:"-"`
	LineNo int   `db:"line_no" json:"lineNo"`

	POLineID  id.ID `db:"po_line_id" json:"poLineId"`
	ProductID id.ID `db:"product_id" json:"productId"`
	VariantID id.ID `db:"variant_id" json:"variantId,omitempty"`

	LocationID id.ID `db:"location_id" json:"locationId"`

	Qty      types.Quantity `db:"qty" json:"qty"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`

	LotNumber  string     `db:"lot_number" json:"lotNumber,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`
}

// NewGRN creates a goods received note for an order.
func NewGRN(orderID id.ID, receivedBy string) *GRN {
	return &GRN{
		Document:   entity.NewDocument(),
		OrderID:    orderID,
		ReceivedBy: receivedBy,
	}
}

// AddLine appends a receipt line.
func (g *GRN) AddLine(line GRNLine) {
	line.LineID = id.New()
	line.GRNID = g.ID
	line.LineNo = len(g.Lines) + 1
	g.Lines = append(g.Lines, line)
}

// TimelineKind classifies order timeline items.
type TimelineKind string

const (
	TimelineCreated   TimelineKind = "created"
	TimelineSent      TimelineKind = "sent"
	TimelineReceived  TimelineKind = "received"
	TimelineClosed    TimelineKind = "closed"
	TimelineCancelled TimelineKind = "cancelled"
)

// TimelineEntry is one item of an order's activity trail.
type TimelineEntry struct {
	ID      id.ID        `db:"id" json:"id"`
	OrderID id.ID        `db:"order_id" json:"orderId"`
	Kind    TimelineKind `db:"kind" json:"kind"`
	Message string       `db:"message" json:"message"`
	ActorID string       `db:"actor_id" json:"actorId"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewTimelineEntry creates a timeline item for an order.
func NewTimelineEntry(orderID id.ID, kind TimelineKind, message, actorID string) TimelineEntry {
	return TimelineEntry{
		ID:        id.New(),
		OrderID:   orderID,
		Kind:      kind,
		Message:   message,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}
}
