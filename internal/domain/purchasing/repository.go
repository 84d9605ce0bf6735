package purchasing

import (
	"context"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// OrderFilter for purchase order listings.
type OrderFilter struct {
	SupplierID *id.ID
	Status     *POStatus
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Repository defines storage operations for purchasing documents.
type Repository interface {
	// Purchase orders

	CreateOrder(ctx context.Context, po *PurchaseOrder) error
	UpdateOrder(ctx context.Context, po *PurchaseOrder) error
	GetOrder(ctx context.Context, orderID id.ID) (*PurchaseOrder, error)

	// GetOrderForUpdate loads the order and lines with a row lock on the
	// header; receiving serializes on it
	GetOrderForUpdate(ctx context.Context, orderID id.ID) (*PurchaseOrder, error)

	ListOrders(ctx context.Context, filter OrderFilter) ([]*PurchaseOrder, error)

	// AddReceivedQty adds delta to the line's received quantity
	AddReceivedQty(ctx context.Context, lineID id.ID, delta types.Quantity) error

	// Goods received notes

	CreateGRN(ctx context.Context, g *GRN) error
	GetGRN(ctx context.Context, grnID id.ID) (*GRN, error)
	ListGRNsByOrder(ctx context.Context, orderID id.ID) ([]*GRN, error)

	// Timeline

	AppendTimeline(ctx context.Context, entry TimelineEntry) error
	GetTimeline(ctx context.Context, orderID id.ID) ([]TimelineEntry, error)
}
