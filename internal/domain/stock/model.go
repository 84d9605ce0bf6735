// Package stock provides the stock accumulation register: the append-only
// entry ledger and the materialized on-hand balances derived from it.
package stock

import (
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// RecordType defines entry direction.
type RecordType string

const (
	// RecordTypeReceipt increases the balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases the balance
	RecordTypeExpense RecordType = "expense"
)

// Entry is one row of the stock ledger. Entries are append-only: posted
// entries are never updated or deleted, corrections come in as new
// entries from reversal movements.
type Entry struct {
	ID id.ID `db:"id" json:"id"`

	// RecorderID/RecorderLineID identify the movement document line
	// that produced this entry.
	RecorderID     id.ID  `db:"recorder_id" json:"recorderId"`
	RecorderLineID id.ID  `db:"recorder_line_id" json:"recorderLineId"`
	RecorderType   string `db:"recorder_type" json:"recorderType"`

	Period     time.Time  `db:"period" json:"period"`
	RecordType RecordType `db:"record_type" json:"recordType"`

	ProductID id.ID `db:"product_id" json:"productId"`
	// VariantID is id.Nil for products without variants; the nil UUID keeps
	// the balance key uniformly three-part.
	VariantID  id.ID `db:"variant_id" json:"variantId"`
	LocationID id.ID `db:"location_id" json:"locationId"`
	LotID      id.ID `db:"lot_id" json:"lotId,omitempty"`

	Qty      types.Quantity `db:"qty" json:"qty"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry creates a ledger entry for a movement line.
func NewEntry(recorderID, recorderLineID id.ID, period time.Time, recordType RecordType) Entry {
	return Entry{
		ID:             id.New(),
		RecorderID:     recorderID,
		RecorderLineID: recorderLineID,
		RecorderType:   "StockMovement",
		Period:         period.UTC(),
		RecordType:     recordType,
		CreatedAt:      time.Now().UTC(),
	}
}

// SignedQty returns the quantity with expense entries negated.
func (e *Entry) SignedQty() types.Quantity {
	if e.RecordType == RecordTypeExpense {
		return e.Qty.Neg()
	}
	return e.Qty
}

// BalanceKey identifies one balance row. VariantID uses the nil UUID for
// variant-less products so the key is always fully populated.
type BalanceKey struct {
	ProductID  id.ID
	VariantID  id.ID
	LocationID id.ID
}

// Key returns the balance key of the entry.
func (e *Entry) Key() BalanceKey {
	return BalanceKey{
		ProductID:  e.ProductID,
		VariantID:  e.VariantID,
		LocationID: e.LocationID,
	}
}

// Balance is the materialized on-hand quantity for one product position
// at one location. Negative balances are allowed.
type Balance struct {
	ProductID  id.ID `db:"product_id" json:"productId"`
	VariantID  id.ID `db:"variant_id" json:"variantId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	QtyOnHand types.Quantity `db:"qty_on_hand" json:"qtyOnHand"`

	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}
