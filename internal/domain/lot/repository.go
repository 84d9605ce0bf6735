package lot

import (
	"context"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// Repository defines storage operations for lots and lot balances.
type Repository interface {
	// Create inserts a new lot
	Create(ctx context.Context, lot *Lot) error

	// GetByID returns a lot by identifier
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)

	// GetByNumber returns a lot by product and number
	GetByNumber(ctx context.Context, productID id.ID, number string) (*Lot, error)

	// ListByProduct returns all lots of a product
	ListByProduct(ctx context.Context, productID id.ID) ([]*Lot, error)

	// ApplyDelta atomically adds delta to a lot balance row, creating it
	// when absent
	ApplyDelta(ctx context.Context, lotID, locationID id.ID, delta types.Quantity) error

	// GetStockForUpdate returns lots with positive balance at a location,
	// row-locked, ordered for FIFO (earliest expiry first, then receipt time)
	GetStockForUpdate(ctx context.Context, productID, locationID id.ID) ([]Stock, error)

	// GetBalances returns lot balances for a lot across locations
	GetBalances(ctx context.Context, lotID id.ID) ([]Balance, error)

	// ListExpiring returns lots whose expiry falls before the deadline and
	// which still have positive stock somewhere
	ListExpiring(ctx context.Context, deadline time.Time, limit int) ([]Stock, error)
}
