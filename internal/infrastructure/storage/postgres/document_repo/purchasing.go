package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/purchasing"
	"stokado/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "doc_purchase_orders"
	orderLinesTable = "doc_purchase_order_lines"
	grnsTable       = "doc_grns"
	grnLinesTable   = "doc_grn_lines"
	timelineTable   = "doc_po_timeline"
)

var (
	orderLineCols = []string{
		"line_id", "order_id", "line_no", "product_id", "variant_id",
		"qty", "qty_received", "unit_cost",
	}
	grnLineCols = []string{
		"line_id", "grn_id", "line_no", "po_line_id", "product_id",
		"variant_id", "location_id", "qty", "unit_cost",
		"lot_number", "expiry_date",
	}
)

// Compile-time check that PurchasingRepo implements purchasing.Repository.
var _ purchasing.Repository = (*PurchasingRepo)(nil)

// PurchasingRepo implements purchasing.Repository over the order, GRN,
// and timeline tables.
type PurchasingRepo struct {
	orders *BaseDocumentRepo[*purchasing.PurchaseOrder]
	grns   *BaseDocumentRepo[*purchasing.GRN]
}

// NewPurchasingRepo creates a new purchasing repository.
func NewPurchasingRepo(txm *postgres.TxManager) *PurchasingRepo {
	return &PurchasingRepo{
		orders: NewBaseDocumentRepo(
			txm,
			ordersTable,
			postgres.ExtractDBColumns[purchasing.PurchaseOrder](),
			func() *purchasing.PurchaseOrder { return &purchasing.PurchaseOrder{} },
		),
		grns: NewBaseDocumentRepo(
			txm,
			grnsTable,
			postgres.ExtractDBColumns[purchasing.GRN](),
			func() *purchasing.GRN { return &purchasing.GRN{} },
		),
	}
}

// CreateOrder inserts the order and its lines.
func (r *PurchasingRepo) CreateOrder(ctx context.Context, po *purchasing.PurchaseOrder) error {
	if err := r.orders.Create(ctx, po); err != nil {
		return err
	}
	return r.insertOrderLines(ctx, po.Lines)
}

// UpdateOrder saves the header and line progress with optimistic locking.
func (r *PurchasingRepo) UpdateOrder(ctx context.Context, po *purchasing.PurchaseOrder) error {
	return r.orders.Update(ctx, po)
}

// GetOrder returns the order with lines.
func (r *PurchasingRepo) GetOrder(ctx context.Context, orderID id.ID) (*purchasing.PurchaseOrder, error) {
	po, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return r.withOrderLines(ctx, po)
}

// GetOrderForUpdate returns the order with lines and a header row lock.
func (r *PurchasingRepo) GetOrderForUpdate(ctx context.Context, orderID id.ID) (*purchasing.PurchaseOrder, error) {
	po, err := r.orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return r.withOrderLines(ctx, po)
}

func (r *PurchasingRepo) withOrderLines(ctx context.Context, po *purchasing.PurchaseOrder) (*purchasing.PurchaseOrder, error) {
	q := r.orders.Builder().
		Select(orderLineCols...).
		From(orderLinesTable).
		Where(squirrel.Eq{"order_id": po.ID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchasing.POLine
	if err := pgxscan.Select(ctx, r.orders.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	po.Lines = lines
	return po, nil
}

func (r *PurchasingRepo) insertOrderLines(ctx context.Context, lines []purchasing.POLine) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.orders.Builder().
		Insert(orderLinesTable).
		Columns(orderLineCols...)
	for _, l := range lines {
		q = q.Values(
			l.LineID, l.OrderID, l.LineNo, l.ProductID, l.VariantID,
			l.Qty, l.QtyReceived, l.UnitCost,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := r.orders.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

// ListOrders retrieves order headers with filtering, newest first.
func (r *PurchasingRepo) ListOrders(ctx context.Context, filter purchasing.OrderFilter) ([]*purchasing.PurchaseOrder, error) {
	q := r.orders.Builder().
		Select(postgres.ExtractDBColumns[purchasing.PurchaseOrder]()...).
		From(ordersTable).
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	q = q.OrderBy("date DESC", "number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []*purchasing.PurchaseOrder
	if err := pgxscan.Select(ctx, r.orders.Querier(ctx), &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// AddReceivedQty adds delta to the line's received quantity.
func (r *PurchasingRepo) AddReceivedQty(ctx context.Context, lineID id.ID, delta types.Quantity) error {
	sql := "UPDATE " + orderLinesTable + " SET qty_received = qty_received + $1 WHERE line_id = $2"
	result, err := r.orders.Querier(ctx).Exec(ctx, sql, delta, lineID)
	if err != nil {
		return fmt.Errorf("add received qty: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order line %s not found", lineID)
	}
	return nil
}

// CreateGRN inserts the GRN and its lines.
func (r *PurchasingRepo) CreateGRN(ctx context.Context, g *purchasing.GRN) error {
	if err := r.grns.Create(ctx, g); err != nil {
		return err
	}
	if len(g.Lines) == 0 {
		return nil
	}

	q := r.grns.Builder().
		Insert(grnLinesTable).
		Columns(grnLineCols...)
	for _, l := range g.Lines {
		q = q.Values(
			l.LineID, l.GRNID, l.LineNo, l.POLineID, l.ProductID,
			l.VariantID, l.LocationID, l.Qty, l.UnitCost,
			l.LotNumber, l.ExpiryDate,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert grn lines: %w", err)
	}
	if _, err := r.grns.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert grn lines: %w", err)
	}
	return nil
}

// GetGRN returns a GRN with lines.
func (r *PurchasingRepo) GetGRN(ctx context.Context, grnID id.ID) (*purchasing.GRN, error) {
	g, err := r.grns.GetByID(ctx, grnID)
	if err != nil {
		return nil, err
	}

	q := r.grns.Builder().
		Select(grnLineCols...).
		From(grnLinesTable).
		Where(squirrel.Eq{"grn_id": grnID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchasing.GRNLine
	if err := pgxscan.Select(ctx, r.grns.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get grn lines: %w", err)
	}
	g.Lines = lines
	return g, nil
}

// ListGRNsByOrder returns GRN headers recorded against an order.
func (r *PurchasingRepo) ListGRNsByOrder(ctx context.Context, orderID id.ID) ([]*purchasing.GRN, error) {
	q := r.grns.Builder().
		Select(postgres.ExtractDBColumns[purchasing.GRN]()...).
		From(grnsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var grns []*purchasing.GRN
	if err := pgxscan.Select(ctx, r.grns.Querier(ctx), &grns, sql, args...); err != nil {
		return nil, fmt.Errorf("list grns: %w", err)
	}
	return grns, nil
}

// AppendTimeline inserts a timeline item.
func (r *PurchasingRepo) AppendTimeline(ctx context.Context, entry purchasing.TimelineEntry) error {
	sql := `
		INSERT INTO ` + timelineTable + ` (id, order_id, kind, message, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.orders.Querier(ctx).Exec(ctx, sql,
		entry.ID, entry.OrderID, entry.Kind, entry.Message, entry.ActorID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert timeline entry: %w", err)
	}
	return nil
}

// GetTimeline returns the order's timeline, oldest first.
func (r *PurchasingRepo) GetTimeline(ctx context.Context, orderID id.ID) ([]purchasing.TimelineEntry, error) {
	q := r.orders.Builder().
		Select("id", "order_id", "kind", "message", "actor_id", "created_at").
		From(timelineTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []purchasing.TimelineEntry
	if err := pgxscan.Select(ctx, r.orders.Querier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("get timeline: %w", err)
	}
	return entries, nil
}
