package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/lot"
	"stokado/internal/infrastructure/storage/postgres"
)

const (
	lotsTable        = "cat_lots"
	lotBalancesTable = "reg_lot_balances"
)

var lotCols = []string{
	"id", "deletion_mark", "version",
	"product_id", "number", "expiry_date", "received_at",
}

// Ensure interface compliance.
var _ lot.Repository = (*LotRepo)(nil)

// LotRepo implements lot.Repository over the lot catalog and the per-lot
// balance register.
type LotRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txManager: txm,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, l *lot.Lot) error {
	q := r.builder.Insert(lotsTable).
		Columns(lotCols...).
		Values(l.ID, l.DeletionMark, l.Version,
			l.ProductID, l.Number, l.ExpiryDate, l.ReceivedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetByID returns a lot by identifier.
func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	return r.getOne(ctx, squirrel.Eq{"id": lotID}, lotID.String())
}

// GetByNumber returns a lot by product and number.
func (r *LotRepo) GetByNumber(ctx context.Context, productID id.ID, number string) (*lot.Lot, error) {
	return r.getOne(ctx, squirrel.Eq{"product_id": productID, "number": number}, number)
}

func (r *LotRepo) getOne(ctx context.Context, where squirrel.Eq, ref string) (*lot.Lot, error) {
	q := r.builder.Select(lotCols...).
		From(lotsTable).
		Where(where).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lot.Lot
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", ref)
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return &l, nil
}

// ListByProduct returns all lots of a product, oldest receipt first.
func (r *LotRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*lot.Lot, error) {
	q := r.builder.Select(lotCols...).
		From(lotsTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("received_at", "number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []*lot.Lot
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}
	return lots, nil
}

// ApplyDelta atomically adds delta to a lot balance row, creating it when
// absent. Same upsert shape as the main balance register.
func (r *LotRepo) ApplyDelta(ctx context.Context, lotID, locationID id.ID, delta types.Quantity) error {
	sql := `
		INSERT INTO reg_lot_balances (lot_id, location_id, qty_on_hand, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (lot_id, location_id)
		DO UPDATE SET
			qty_on_hand = reg_lot_balances.qty_on_hand + EXCLUDED.qty_on_hand,
			updated_at = NOW()
	`
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, lotID, locationID, delta); err != nil {
		return fmt.Errorf("apply lot balance delta: %w", err)
	}
	return nil
}

// GetStockForUpdate returns lots with positive balance at a location,
// row-locked and ordered for FIFO. Lots without expiry sort after
// expiring ones, ties break on receipt time.
func (r *LotRepo) GetStockForUpdate(ctx context.Context, productID, locationID id.ID) ([]lot.Stock, error) {
	sql := `
		SELECT l.id AS lot_id, l.number, l.expiry_date, l.received_at, b.qty_on_hand
		FROM reg_lot_balances b
		JOIN cat_lots l ON l.id = b.lot_id
		WHERE l.product_id = $1
		  AND b.location_id = $2
		  AND b.qty_on_hand > 0
		  AND l.deletion_mark = false
		ORDER BY l.expiry_date ASC NULLS LAST, l.received_at ASC
		FOR UPDATE OF b
	`

	var stocks []lot.Stock
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &stocks, sql, productID, locationID); err != nil {
		return nil, fmt.Errorf("select lot stock: %w", err)
	}
	return stocks, nil
}

// GetBalances returns the lot's balances across locations.
func (r *LotRepo) GetBalances(ctx context.Context, lotID id.ID) ([]lot.Balance, error) {
	q := r.builder.Select("lot_id", "location_id", "qty_on_hand", "updated_at").
		From(lotBalancesTable).
		Where(squirrel.Eq{"lot_id": lotID}).
		Where(squirrel.NotEq{"qty_on_hand": int64(0)}).
		OrderBy("location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []lot.Balance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select lot balances: %w", err)
	}
	return balances, nil
}

// ListExpiring returns lots expiring before the deadline that still have
// positive stock somewhere, soonest expiry first.
func (r *LotRepo) ListExpiring(ctx context.Context, deadline time.Time, limit int) ([]lot.Stock, error) {
	sql := `
		SELECT l.id AS lot_id, l.number, l.expiry_date, l.received_at,
		       SUM(b.qty_on_hand) AS qty_on_hand
		FROM cat_lots l
		JOIN reg_lot_balances b ON b.lot_id = l.id
		WHERE l.expiry_date IS NOT NULL
		  AND l.expiry_date < $1
		  AND l.deletion_mark = false
		GROUP BY l.id, l.number, l.expiry_date, l.received_at
		HAVING SUM(b.qty_on_hand) > 0
		ORDER BY l.expiry_date ASC
		LIMIT $2
	`

	var stocks []lot.Stock
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &stocks, sql, deadline, limit); err != nil {
		return nil, fmt.Errorf("select expiring lots: %w", err)
	}
	return stocks, nil
}
