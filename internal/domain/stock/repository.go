package stock

import (
	"context"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// Repository defines storage operations for the stock register.
type Repository interface {
	// Entry operations

	// CreateEntries batch inserts ledger entries (used during posting)
	CreateEntries(ctx context.Context, entries []Entry) error

	// GetEntriesByRecorder retrieves all entries produced by a movement
	GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]Entry, error)

	// Balance operations

	// ApplyDelta atomically adds delta to the balance row, creating it when
	// absent. The add happens inside the database so concurrent postings
	// never lose updates.
	ApplyDelta(ctx context.Context, key BalanceKey, delta types.Quantity, movedAt time.Time) error

	// GetBalance returns the current balance for a key (zero row if absent)
	GetBalance(ctx context.Context, key BalanceKey) (Balance, error)

	// GetBalanceForUpdate returns the balance with a row lock
	GetBalanceForUpdate(ctx context.Context, key BalanceKey) (Balance, error)

	// GetBalancesByLocation returns balances at a location
	GetBalancesByLocation(ctx context.Context, locationID id.ID, filter BalanceFilter) ([]Balance, error)

	// GetBalancesByProduct returns balances for a product across locations
	GetBalancesByProduct(ctx context.Context, productID id.ID) ([]Balance, error)

	// GetBalanceAtDate computes the balance as of a date from the ledger
	GetBalanceAtDate(ctx context.Context, key BalanceKey, date time.Time) (types.Quantity, error)

	// Reporting

	// GetHistory returns ledger history for a product
	GetHistory(ctx context.Context, productID id.ID, filter HistoryFilter) ([]Entry, error)

	// GetTurnover calculates receipt and expense totals for a period
	GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error)

	// Maintenance

	// RecalculateBalances rebuilds balance rows from the ledger
	RecalculateBalances(ctx context.Context, locationID, productID *id.ID) error
}

// BalanceFilter for filtering balance queries.
type BalanceFilter struct {
	ProductIDs  []id.ID
	ExcludeZero bool
	MinQty      *types.Quantity
	MaxQty      *types.Quantity
}

// HistoryFilter for filtering ledger history.
type HistoryFilter struct {
	LocationID *id.ID
	VariantID  *id.ID
	RecordType *RecordType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// TurnoverFilter for turnover reports.
type TurnoverFilter struct {
	LocationID *id.ID
	ProductID  *id.ID
	FromDate   time.Time
	ToDate     time.Time
}

// Turnover represents receipt/expense totals for a period.
type Turnover struct {
	LocationID     id.ID          `json:"locationId,omitempty"`
	ProductID      id.ID          `json:"productId,omitempty"`
	OpeningBalance types.Quantity `json:"openingBalance"`
	Receipt        types.Quantity `json:"receipt"`
	Expense        types.Quantity `json:"expense"`
	ClosingBalance types.Quantity `json:"closingBalance"`
}
