// Package register_repo provides PostgreSQL implementations for the
// accumulation register repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/stock"
	"stokado/internal/infrastructure/storage/postgres"
)

const (
	stockEntriesTable  = "reg_stock_entries"
	stockBalancesTable = "reg_stock_balances"
)

var stockEntryCols = []string{
	"id", "recorder_id", "recorder_line_id", "recorder_type",
	"period", "record_type",
	"product_id", "variant_id", "location_id", "lot_id",
	"qty", "unit_cost", "created_at",
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository. Entries go into the append-only
// ledger table; balances are kept current by ApplyDelta upserts issued in
// the same transaction as the entries.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txm,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateEntries batch inserts ledger entries.
func (r *StockRepo) CreateEntries(ctx context.Context, entries []stock.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction, which posting always is.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{
				e.ID, e.RecorderID, e.RecorderLineID, e.RecorderType,
				e.Period, e.RecordType,
				e.ProductID, e.VariantID, e.LocationID, e.LotID,
				e.Qty, e.UnitCost, e.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, stockEntriesTable, stockEntryCols, rows); err != nil {
			return fmt.Errorf("copy entries: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(stockEntriesTable).Columns(stockEntryCols...)
	for _, e := range entries {
		q = q.Values(
			e.ID, e.RecorderID, e.RecorderLineID, e.RecorderType,
			e.Period, e.RecordType,
			e.ProductID, e.VariantID, e.LocationID, e.LotID,
			e.Qty, e.UnitCost, e.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert entries: %w", err)
	}
	return nil
}

// GetEntriesByRecorder retrieves entries produced by a movement.
func (r *StockRepo) GetEntriesByRecorder(ctx context.Context, recorderID id.ID) ([]stock.Entry, error) {
	q := r.builder.Select(stockEntryCols...).
		From(stockEntriesTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []stock.Entry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

// ApplyDelta atomically adds delta to the balance row, creating it when
// absent. The arithmetic runs inside the database, so concurrent postings
// to the same key serialize on the row without lost updates.
func (r *StockRepo) ApplyDelta(ctx context.Context, key stock.BalanceKey, delta types.Quantity, movedAt time.Time) error {
	sql := `
		INSERT INTO reg_stock_balances
			(product_id, variant_id, location_id, qty_on_hand, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_id, variant_id, location_id)
		DO UPDATE SET
			qty_on_hand = reg_stock_balances.qty_on_hand + EXCLUDED.qty_on_hand,
			last_movement_at = GREATEST(reg_stock_balances.last_movement_at, EXCLUDED.last_movement_at),
			updated_at = NOW()
	`
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		key.ProductID, key.VariantID, key.LocationID, delta, movedAt,
	)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	return nil
}

// GetBalance returns the current balance for a key, a zero row if absent.
func (r *StockRepo) GetBalance(ctx context.Context, key stock.BalanceKey) (stock.Balance, error) {
	return r.getBalance(ctx, key, false)
}

// GetBalanceForUpdate returns the balance with a pessimistic lock.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, key stock.BalanceKey) (stock.Balance, error) {
	return r.getBalance(ctx, key, true)
}

func (r *StockRepo) getBalance(ctx context.Context, key stock.BalanceKey, lock bool) (stock.Balance, error) {
	sql := `
		SELECT product_id, variant_id, location_id, qty_on_hand, last_movement_at, updated_at
		FROM reg_stock_balances
		WHERE product_id = $1 AND variant_id = $2 AND location_id = $3
	`
	if lock {
		sql += " FOR UPDATE"
	}

	var balance stock.Balance
	err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &balance, sql,
		key.ProductID, key.VariantID, key.LocationID,
	)
	if err != nil {
		if pgxscan.NotFound(err) {
			return stock.Balance{
				ProductID:  key.ProductID,
				VariantID:  key.VariantID,
				LocationID: key.LocationID,
				QtyOnHand:  0,
			}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// GetBalancesByLocation returns balances at a location.
func (r *StockRepo) GetBalancesByLocation(ctx context.Context, locationID id.ID, filter stock.BalanceFilter) ([]stock.Balance, error) {
	q := r.builder.Select(
		"product_id", "variant_id", "location_id",
		"qty_on_hand", "last_movement_at", "updated_at",
	).From(stockBalancesTable).
		Where(squirrel.Eq{"location_id": locationID})

	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"qty_on_hand": int64(0)})
	}
	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}
	if filter.MinQty != nil {
		q = q.Where(squirrel.GtOrEq{"qty_on_hand": int64(*filter.MinQty)})
	}
	if filter.MaxQty != nil {
		q = q.Where(squirrel.LtOrEq{"qty_on_hand": int64(*filter.MaxQty)})
	}

	q = q.OrderBy("product_id", "variant_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// GetBalancesByProduct returns non-zero balances for a product across locations.
func (r *StockRepo) GetBalancesByProduct(ctx context.Context, productID id.ID) ([]stock.Balance, error) {
	q := r.builder.Select(
		"product_id", "variant_id", "location_id",
		"qty_on_hand", "last_movement_at", "updated_at",
	).From(stockBalancesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.NotEq{"qty_on_hand": int64(0)}).
		OrderBy("location_id", "variant_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// GetBalanceAtDate computes the balance as of a date from the ledger.
func (r *StockRepo) GetBalanceAtDate(ctx context.Context, key stock.BalanceKey, date time.Time) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(
			SUM(CASE WHEN record_type = 'receipt' THEN qty ELSE -qty END),
			0
		)
		FROM reg_stock_entries
		WHERE product_id = $1
		  AND variant_id = $2
		  AND location_id = $3
		  AND period <= $4
	`

	var total int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql,
		key.ProductID, key.VariantID, key.LocationID, date,
	).Scan(&total)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("calculate balance at date: %w", err)
	}
	return types.Quantity(total), nil
}

// GetHistory returns ledger history for a product, newest first.
func (r *StockRepo) GetHistory(ctx context.Context, productID id.ID, filter stock.HistoryFilter) ([]stock.Entry, error) {
	q := r.builder.Select(stockEntryCols...).
		From(stockEntriesTable).
		Where(squirrel.Eq{"product_id": productID})

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.VariantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *filter.VariantID})
	}
	if filter.RecordType != nil {
		q = q.Where(squirrel.Eq{"record_type": *filter.RecordType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"period": *filter.ToDate})
	}

	q = q.OrderBy("period DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []stock.Entry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return entries, nil
}

// GetTurnover calculates receipt and expense totals for a period, plus the
// opening and closing balances around it. The period is [FromDate, ToDate).
func (r *StockRepo) GetTurnover(ctx context.Context, filter stock.TurnoverFilter) (stock.Turnover, error) {
	var result stock.Turnover

	args := []any{filter.FromDate, filter.ToDate}
	conditions := "period >= $1 AND period < $2"
	argIndex := 3

	if filter.LocationID != nil {
		conditions += fmt.Sprintf(" AND location_id = $%d", argIndex)
		args = append(args, *filter.LocationID)
		result.LocationID = *filter.LocationID
		argIndex++
	}
	if filter.ProductID != nil {
		conditions += fmt.Sprintf(" AND product_id = $%d", argIndex)
		args = append(args, *filter.ProductID)
		result.ProductID = *filter.ProductID
		argIndex++
	}

	sql := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(CASE WHEN record_type = 'receipt' THEN qty ELSE 0 END), 0) AS receipt,
			COALESCE(SUM(CASE WHEN record_type = 'expense' THEN qty ELSE 0 END), 0) AS expense
		FROM reg_stock_entries
		WHERE %s
	`, conditions)

	querier := r.txManager.GetQuerier(ctx)
	var receipt, expense int64
	err := querier.QueryRow(ctx, sql, args...).Scan(&receipt, &expense)
	if err != nil && err != pgx.ErrNoRows {
		return result, fmt.Errorf("calculate turnover: %w", err)
	}
	result.Receipt = types.Quantity(receipt)
	result.Expense = types.Quantity(expense)

	openingArgs := []any{filter.FromDate}
	openingConditions := "period < $1"
	argIndex = 2

	if filter.LocationID != nil {
		openingConditions += fmt.Sprintf(" AND location_id = $%d", argIndex)
		openingArgs = append(openingArgs, *filter.LocationID)
		argIndex++
	}
	if filter.ProductID != nil {
		openingConditions += fmt.Sprintf(" AND product_id = $%d", argIndex)
		openingArgs = append(openingArgs, *filter.ProductID)
	}

	openingSQL := fmt.Sprintf(`
		SELECT COALESCE(
			SUM(CASE WHEN record_type = 'receipt' THEN qty ELSE -qty END),
			0
		)
		FROM reg_stock_entries
		WHERE %s
	`, openingConditions)

	var opening int64
	err = querier.QueryRow(ctx, openingSQL, openingArgs...).Scan(&opening)
	if err != nil && err != pgx.ErrNoRows {
		return result, fmt.Errorf("calculate opening balance: %w", err)
	}
	result.OpeningBalance = types.Quantity(opening)
	result.ClosingBalance = result.OpeningBalance + result.Receipt - result.Expense

	return result, nil
}

// RecalculateBalances rebuilds balance rows from the ledger. Scoped to a
// location, a product, or both when the pointers are set. Existing rows in
// scope are replaced, so entries and balances agree afterwards.
func (r *StockRepo) RecalculateBalances(ctx context.Context, locationID, productID *id.ID) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := r.txManager.GetQuerier(ctx)

		scope := ""
		args := []any{}
		argIndex := 1
		if locationID != nil {
			scope += fmt.Sprintf(" AND location_id = $%d", argIndex)
			args = append(args, *locationID)
			argIndex++
		}
		if productID != nil {
			scope += fmt.Sprintf(" AND product_id = $%d", argIndex)
			args = append(args, *productID)
		}

		deleteSQL := "DELETE FROM reg_stock_balances WHERE TRUE" + scope
		if _, err := querier.Exec(ctx, deleteSQL, args...); err != nil {
			return fmt.Errorf("clear balances: %w", err)
		}

		rebuildSQL := fmt.Sprintf(`
			INSERT INTO reg_stock_balances
				(product_id, variant_id, location_id, qty_on_hand, last_movement_at, updated_at)
			SELECT
				product_id, variant_id, location_id,
				SUM(CASE WHEN record_type = 'receipt' THEN qty ELSE -qty END),
				MAX(period),
				NOW()
			FROM reg_stock_entries
			WHERE TRUE%s
			GROUP BY product_id, variant_id, location_id
		`, scope)
		if _, err := querier.Exec(ctx, rebuildSQL, args...); err != nil {
			return fmt.Errorf("rebuild balances: %w", err)
		}
		return nil
	})
}
