package dto

import (
	"time"

	"stokado/internal/domain/lot"
)

// LotResponse represents a lot in API responses.
type LotResponse struct {
	ID         string     `json:"id"`
	ProductID  string     `json:"productId"`
	Number     string     `json:"number"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	ReceivedAt time.Time  `json:"receivedAt"`
}

// FromLot converts a lot to the response DTO.
func FromLot(l *lot.Lot) *LotResponse {
	return &LotResponse{
		ID:         l.ID.String(),
		ProductID:  l.ProductID.String(),
		Number:     l.Number,
		ExpiryDate: l.ExpiryDate,
		ReceivedAt: l.ReceivedAt,
	}
}

// FromLots converts a slice of lots.
func FromLots(lots []*lot.Lot) []*LotResponse {
	out := make([]*LotResponse, len(lots))
	for i, l := range lots {
		out[i] = FromLot(l)
	}
	return out
}

// LotBalanceResponse represents a lot balance at a location.
type LotBalanceResponse struct {
	LotID      string  `json:"lotId"`
	LocationID string  `json:"locationId"`
	QtyOnHand  float64 `json:"qtyOnHand"`
}

// FromLotBalances converts a slice of lot balances.
func FromLotBalances(balances []lot.Balance) []LotBalanceResponse {
	out := make([]LotBalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = LotBalanceResponse{
			LotID:      b.LotID.String(),
			LocationID: b.LocationID.String(),
			QtyOnHand:  b.QtyOnHand.Float64(),
		}
	}
	return out
}

// LotStockResponse joins a lot with its on-hand quantity.
type LotStockResponse struct {
	LotID      string     `json:"lotId"`
	Number     string     `json:"number"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	ReceivedAt time.Time  `json:"receivedAt"`
	QtyOnHand  float64    `json:"qtyOnHand"`
}

// FromLotStocks converts a slice of lot stock rows.
func FromLotStocks(stocks []lot.Stock) []LotStockResponse {
	out := make([]LotStockResponse, len(stocks))
	for i, s := range stocks {
		out[i] = LotStockResponse{
			LotID:      s.LotID.String(),
			Number:     s.Number,
			ExpiryDate: s.ExpiryDate,
			ReceivedAt: s.ReceivedAt,
			QtyOnHand:  s.QtyOnHand.Float64(),
		}
	}
	return out
}
