// Package lot provides batch tracking: lot identities per product and
// per-lot location balances maintained alongside the stock register.
package lot

import (
	"context"
	"strings"
	"time"

	"stokado/internal/core/apperror"
	"stokado/internal/core/entity"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// Lot identifies a received batch of one product. The lot number is
// unique within the product.
type Lot struct {
	entity.BaseCatalog

	ProductID id.ID  `db:"product_id" json:"productId"`
	Number    string `db:"number" json:"number"`

	// ExpiryDate is nil for non-perishables; expiring lots sort first
	// in FIFO allocation.
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	ReceivedAt time.Time `db:"received_at" json:"receivedAt"`
}

// NewLot creates a lot for a product.
func NewLot(productID id.ID, number string, expiry *time.Time) *Lot {
	return &Lot{
		BaseCatalog: entity.NewBaseCatalog(),
		ProductID:   productID,
		Number:      strings.TrimSpace(number),
		ExpiryDate:  expiry,
		ReceivedAt:  time.Now().UTC(),
	}
}

// Validate implements entity.Validatable.
func (l *Lot) Validate(ctx context.Context) error {
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("lot product is required")
	}
	if l.Number == "" {
		return apperror.NewValidation("lot number is required")
	}
	return nil
}

// Balance is the on-hand quantity of one lot at one location.
type Balance struct {
	LotID      id.ID `db:"lot_id" json:"lotId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	QtyOnHand types.Quantity `db:"qty_on_hand" json:"qtyOnHand"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Stock joins a lot with its balance at a location, the unit the FIFO
// allocator works over.
type Stock struct {
	LotID      id.ID          `db:"lot_id" json:"lotId"`
	Number     string         `db:"number" json:"number"`
	ExpiryDate *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
	ReceivedAt time.Time      `db:"received_at" json:"receivedAt"`
	QtyOnHand  types.Quantity `db:"qty_on_hand" json:"qtyOnHand"`
}

// Allocation is a quantity taken from one lot by the FIFO allocator.
type Allocation struct {
	LotID id.ID          `json:"lotId"`
	Qty   types.Quantity `json:"qty"`
}
