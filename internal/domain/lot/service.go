package lot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/pkg/logger"
)

// Service provides lot tracking operations. Writes run on the querier
// from context; the posting path owns the transaction.
type Service struct {
	repo Repository
}

// NewService creates a new lot service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the lot a receiving line refers to, creating it when the
// line describes a new one. Existing lots must belong to the product.
func (s *Service) Resolve(ctx context.Context, productID, lotID id.ID, newNumber string, newExpiry *time.Time) (id.ID, error) {
	if !id.IsNil(lotID) {
		l, err := s.repo.GetByID(ctx, lotID)
		if err != nil {
			return id.Nil(), fmt.Errorf("get lot: %w", err)
		}
		if l.ProductID != productID {
			return id.Nil(), apperror.NewValidation("lot belongs to a different product").
				WithDetail("lotId", lotID.String())
		}
		return l.ID, nil
	}

	if newNumber == "" {
		return id.Nil(), nil
	}

	// Same number on the same product resolves to the existing lot.
	existing, err := s.repo.GetByNumber(ctx, productID, newNumber)
	if err == nil {
		return existing.ID, nil
	}
	if !apperror.IsNotFound(err) {
		return id.Nil(), fmt.Errorf("get lot by number: %w", err)
	}

	l := NewLot(productID, newNumber, newExpiry)
	if err := l.Validate(ctx); err != nil {
		return id.Nil(), err
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return id.Nil(), fmt.Errorf("create lot: %w", err)
	}

	logger.Info(ctx, "created lot",
		"lot_id", l.ID,
		"product_id", productID,
		"number", l.Number,
	)
	return l.ID, nil
}

// AllocateFIFO assigns the issued quantity to lots at the location,
// earliest expiry first. Lot rows are locked for the transaction. When
// tracked stock does not cover the quantity the remainder is returned
// untracked; the main register is authoritative and may go negative.
func (s *Service) AllocateFIFO(ctx context.Context, productID, locationID id.ID, qty types.Quantity) ([]Allocation, types.Quantity, error) {
	if !qty.IsPositive() {
		return nil, 0, apperror.NewValidation("allocation quantity must be positive")
	}

	stocks, err := s.repo.GetStockForUpdate(ctx, productID, locationID)
	if err != nil {
		return nil, 0, fmt.Errorf("get lot stock: %w", err)
	}

	allocations, remainder := AllocateFromStock(stocks, qty)
	return allocations, remainder, nil
}

// AllocateFromStock walks lots in FIFO order and splits the quantity
// across them. Returns the allocations and the unallocated remainder.
func AllocateFromStock(stocks []Stock, qty types.Quantity) ([]Allocation, types.Quantity) {
	SortFIFO(stocks)

	var allocations []Allocation
	remaining := qty
	for _, st := range stocks {
		if !remaining.IsPositive() {
			break
		}
		if !st.QtyOnHand.IsPositive() {
			continue
		}
		take := st.QtyOnHand
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, Allocation{LotID: st.LotID, Qty: take})
		remaining -= take
	}
	return allocations, remaining
}

// SortFIFO orders lot stock for consumption: earliest expiry first, lots
// without expiry last, ties broken by receipt time.
func SortFIFO(stocks []Stock) {
	sort.SliceStable(stocks, func(i, j int) bool {
		a, b := stocks[i], stocks[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ReceivedAt.Before(b.ReceivedAt)
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		default:
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
	})
}

// Apply adds a signed delta to a lot balance.
func (s *Service) Apply(ctx context.Context, lotID, locationID id.ID, delta types.Quantity) error {
	if id.IsNil(lotID) || id.IsNil(locationID) {
		return apperror.NewValidation("lot and location are required")
	}
	if delta.IsZero() {
		return nil
	}
	if err := s.repo.ApplyDelta(ctx, lotID, locationID, delta); err != nil {
		return fmt.Errorf("apply lot delta: %w", err)
	}
	return nil
}

// Get returns a lot by identifier.
func (s *Service) Get(ctx context.Context, lotID id.ID) (*Lot, error) {
	return s.repo.GetByID(ctx, lotID)
}

// ListByProduct returns all lots of a product.
func (s *Service) ListByProduct(ctx context.Context, productID id.ID) ([]*Lot, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// GetBalances returns a lot's balances across locations.
func (s *Service) GetBalances(ctx context.Context, lotID id.ID) ([]Balance, error) {
	return s.repo.GetBalances(ctx, lotID)
}

// ListExpiring returns lots expiring before the deadline with stock on hand.
func (s *Service) ListExpiring(ctx context.Context, deadline time.Time, limit int) ([]Stock, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListExpiring(ctx, deadline, limit)
}
