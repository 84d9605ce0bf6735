package stock

import (
	"context"
	"fmt"
	"time"

	"stokado/internal/core/actor"
	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/pkg/logger"
)

// Service provides business operations for the stock register.
// Transactions are managed by the caller (the posting path of the
// movement service); all writes here run on the querier from context.
type Service struct {
	repo Repository
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Apply records ledger entries and folds their deltas into the balance
// table. Deltas are aggregated per balance key first so a movement
// touching the same position on several lines issues one upsert.
func (s *Service) Apply(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	for i := range entries {
		e := &entries[i]
		if !e.Qty.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("entry %d: quantity must be positive", i))
		}
		if id.IsNil(e.RecorderID) || id.IsNil(e.RecorderLineID) {
			return apperror.NewValidation(fmt.Sprintf("entry %d: recorder is required", i))
		}
		if id.IsNil(e.ProductID) || id.IsNil(e.LocationID) {
			return apperror.NewValidation(fmt.Sprintf("entry %d: product and location are required", i))
		}
	}

	if err := s.repo.CreateEntries(ctx, entries); err != nil {
		return fmt.Errorf("create entries: %w", err)
	}

	type agg struct {
		key   BalanceKey
		delta types.Quantity
	}
	order := make([]BalanceKey, 0, len(entries))
	deltas := make(map[BalanceKey]*agg, len(entries))
	for i := range entries {
		e := &entries[i]
		key := e.Key()
		a, ok := deltas[key]
		if !ok {
			a = &agg{key: key}
			deltas[key] = a
			order = append(order, key)
		}
		a.delta += e.SignedQty()
	}

	for _, key := range order {
		a := deltas[key]
		if a.delta.IsZero() {
			continue
		}
		if err := s.repo.ApplyDelta(ctx, a.key, a.delta, entries[0].Period); err != nil {
			return fmt.Errorf("apply balance delta for %s: %w", a.key.ProductID, err)
		}
	}

	logger.Info(ctx, "recorded stock entries",
		"count", len(entries),
		"recorder_id", entries[0].RecorderID,
	)
	return nil
}

// OnHand returns the current balance for a product position at a location.
func (s *Service) OnHand(ctx context.Context, key BalanceKey) (Balance, error) {
	return s.repo.GetBalance(ctx, key)
}

// CheckAvailability reports whether the requested quantity is on hand,
// taking a row lock so the answer holds until the caller's transaction
// ends. Posting never calls this; it is an advisory check for clients.
func (s *Service) CheckAvailability(ctx context.Context, key BalanceKey, requiredQty types.Quantity) error {
	balance, err := s.repo.GetBalanceForUpdate(ctx, key)
	if err != nil {
		return fmt.Errorf("get balance for %s: %w", key.ProductID, err)
	}
	if balance.QtyOnHand < requiredQty {
		return apperror.NewInsufficientStock(
			key.ProductID.String(),
			requiredQty.Float64(),
			balance.QtyOnHand.Float64(),
		)
	}
	return nil
}

// OnHandAt reconstructs the balance for a position as of a past date by
// summing ledger entries up to it.
func (s *Service) OnHandAt(ctx context.Context, key BalanceKey, date time.Time) (types.Quantity, error) {
	return s.repo.GetBalanceAtDate(ctx, key, date)
}

// GetProductAvailability returns total on-hand quantity across locations.
func (s *Service) GetProductAvailability(ctx context.Context, productID id.ID) (types.Quantity, error) {
	balances, err := s.repo.GetBalancesByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("get balances: %w", err)
	}

	var total types.Quantity
	for _, b := range balances {
		total += b.QtyOnHand
	}
	return total, nil
}

// GetLocationStock returns all products with non-zero stock at a location.
func (s *Service) GetLocationStock(ctx context.Context, locationID id.ID) ([]Balance, error) {
	return s.repo.GetBalancesByLocation(ctx, locationID, BalanceFilter{
		ExcludeZero: true,
	})
}

// GetHistory returns the ledger history for a product.
func (s *Service) GetHistory(ctx context.Context, productID id.ID, filter HistoryFilter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.GetHistory(ctx, productID, filter)
}

// GetTurnover generates a turnover report for a period.
func (s *Service) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	if filter.ToDate.Before(filter.FromDate) {
		return Turnover{}, apperror.NewValidation("turnover period end before start")
	}
	return s.repo.GetTurnover(ctx, filter)
}

// GetEntriesByRecorder returns the entries a movement produced.
func (s *Service) GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]Entry, error) {
	return s.repo.GetEntriesByRecorder(ctx, recorderID)
}

// Recalculate rebuilds materialized balance rows from the ledger,
// optionally narrowed to one location or product. Maintenance operation,
// manager role required.
func (s *Service) Recalculate(ctx context.Context, locationID, productID *id.ID) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanApprove() {
		return apperror.NewForbidden("balance recalculation requires manager role")
	}

	if err := s.repo.RecalculateBalances(ctx, locationID, productID); err != nil {
		return fmt.Errorf("recalculate balances: %w", err)
	}
	logger.Info(ctx, "balances recalculated", "actor", a.ID)
	return nil
}
