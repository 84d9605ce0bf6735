package dto

import (
	"time"

	"stokado/internal/domain/stock"
)

// BalanceResponse represents one balance row in API responses.
type BalanceResponse struct {
	ProductID      string     `json:"productId"`
	VariantID      *string    `json:"variantId,omitempty"`
	LocationID     string     `json:"locationId"`
	QtyOnHand      float64    `json:"qtyOnHand"`
	LastMovementAt *time.Time `json:"lastMovementAt,omitempty"`
}

// FromBalance converts a balance to the response DTO.
func FromBalance(b stock.Balance) BalanceResponse {
	return BalanceResponse{
		ProductID:      b.ProductID.String(),
		VariantID:      optionalID(b.VariantID),
		LocationID:     b.LocationID.String(),
		QtyOnHand:      b.QtyOnHand.Float64(),
		LastMovementAt: b.LastMovementAt,
	}
}

// FromBalances converts a slice of balances.
func FromBalances(balances []stock.Balance) []BalanceResponse {
	out := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = FromBalance(b)
	}
	return out
}

// AvailabilityCheckResponse is the verdict of a point availability check.
type AvailabilityCheckResponse struct {
	ProductID  string  `json:"productId"`
	VariantID  *string `json:"variantId,omitempty"`
	LocationID string  `json:"locationId"`
	Requested  float64 `json:"requested"`
	Available  bool    `json:"available"`
	OnHand     float64 `json:"onHand"`
}

// EntryResponse represents one ledger entry in API responses.
type EntryResponse struct {
	ID             string    `json:"id"`
	RecorderID     string    `json:"recorderId"`
	RecorderLineID string    `json:"recorderLineId"`
	Period         time.Time `json:"period"`
	RecordType     string    `json:"recordType"`
	ProductID      string    `json:"productId"`
	VariantID      *string   `json:"variantId,omitempty"`
	LocationID     string    `json:"locationId"`
	LotID          *string   `json:"lotId,omitempty"`
	Qty            float64   `json:"qty"`
	UnitCost       string    `json:"unitCost"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FromEntry converts a ledger entry to the response DTO.
func FromEntry(e stock.Entry) EntryResponse {
	return EntryResponse{
		ID:             e.ID.String(),
		RecorderID:     e.RecorderID.String(),
		RecorderLineID: e.RecorderLineID.String(),
		Period:         e.Period,
		RecordType:     string(e.RecordType),
		ProductID:      e.ProductID.String(),
		VariantID:      optionalID(e.VariantID),
		LocationID:     e.LocationID.String(),
		LotID:          optionalID(e.LotID),
		Qty:            e.Qty.Float64(),
		UnitCost:       e.UnitCost.String(),
		CreatedAt:      e.CreatedAt,
	}
}

// FromEntries converts a slice of ledger entries.
func FromEntries(entries []stock.Entry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = FromEntry(e)
	}
	return out
}

// TurnoverResponse represents a turnover report.
type TurnoverResponse struct {
	LocationID     *string `json:"locationId,omitempty"`
	ProductID      *string `json:"productId,omitempty"`
	OpeningBalance float64 `json:"openingBalance"`
	Receipt        float64 `json:"receipt"`
	Expense        float64 `json:"expense"`
	ClosingBalance float64 `json:"closingBalance"`
}

// FromTurnover converts a turnover to the response DTO.
func FromTurnover(t stock.Turnover) TurnoverResponse {
	return TurnoverResponse{
		LocationID:     optionalID(t.LocationID),
		ProductID:      optionalID(t.ProductID),
		OpeningBalance: t.OpeningBalance.Float64(),
		Receipt:        t.Receipt.Float64(),
		Expense:        t.Expense.Float64(),
		ClosingBalance: t.ClosingBalance.Float64(),
	}
}

// AvailabilityResponse reports the total on-hand quantity of a product.
type AvailabilityResponse struct {
	ProductID string  `json:"productId"`
	Available float64 `json:"available"`
}
