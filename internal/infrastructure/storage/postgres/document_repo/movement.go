package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
	"stokado/internal/domain/movement"
	"stokado/internal/infrastructure/storage/postgres"
)

const (
	movementsTable     = "doc_stock_movements"
	movementLinesTable = "doc_stock_movement_lines"
)

var movementLineCols = []string{
	"line_id", "movement_id", "line_no", "product_id", "variant_id",
	"from_location_id", "to_location_id", "qty", "unit_cost",
	"lot_id", "new_lot_number", "new_expiry_date", "source_line_id",
}

// Compile-time check that MovementRepo implements movement.Repository.
var _ movement.Repository = (*MovementRepo)(nil)

// MovementRepo implements movement.Repository.
type MovementRepo struct {
	*BaseDocumentRepo[*movement.StockMovement]
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			movementsTable,
			postgres.ExtractDBColumns[movement.StockMovement](),
			func() *movement.StockMovement { return &movement.StockMovement{} },
		),
	}
}

// Create inserts the header and its lines.
func (r *MovementRepo) Create(ctx context.Context, m *movement.StockMovement) error {
	if err := r.BaseDocumentRepo.Create(ctx, m); err != nil {
		return err
	}
	return r.insertLines(ctx, m.ID, m.Lines)
}

// GetByID retrieves a movement with its lines.
func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	m, err := r.BaseDocumentRepo.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	return r.withLines(ctx, m)
}

// GetForUpdate retrieves a movement with its lines and a header row lock.
func (r *MovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*movement.StockMovement, error) {
	m, err := r.BaseDocumentRepo.GetForUpdate(ctx, movementID)
	if err != nil {
		return nil, err
	}
	return r.withLines(ctx, m)
}

func (r *MovementRepo) withLines(ctx context.Context, m *movement.StockMovement) (*movement.StockMovement, error) {
	q := r.Builder().
		Select(movementLineCols...).
		From(movementLinesTable).
		Where(squirrel.Eq{"movement_id": m.ID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []movement.MovementLine
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	m.Lines = lines
	return m, nil
}

// ReplaceLines rewrites the line set of a draft.
func (r *MovementRepo) ReplaceLines(ctx context.Context, movementID id.ID, lines []movement.MovementLine) error {
	deleteSQL := "DELETE FROM " + movementLinesTable + " WHERE movement_id = $1"
	if _, err := r.Querier(ctx).Exec(ctx, deleteSQL, movementID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}
	return r.insertLines(ctx, movementID, lines)
}

func (r *MovementRepo) insertLines(ctx context.Context, movementID id.ID, lines []movement.MovementLine) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(movementLinesTable).
		Columns(movementLineCols...)

	// Absent references are stored as the zero UUID, matching the balance
	// key convention, so columns stay NOT NULL.
	for _, l := range lines {
		q = q.Values(
			l.LineID, movementID, l.LineNo, l.ProductID, l.VariantID,
			l.FromLocationID, l.ToLocationID, l.Qty, l.UnitCost,
			l.LotID, l.NewLotNumber, l.NewExpiryDate, l.SourceLineID,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// GetLine returns a single line by identifier.
func (r *MovementRepo) GetLine(ctx context.Context, lineID id.ID) (*movement.MovementLine, error) {
	return r.getLine(ctx, lineID, false)
}

// GetLineForUpdate returns a line with a row lock.
func (r *MovementRepo) GetLineForUpdate(ctx context.Context, lineID id.ID) (*movement.MovementLine, error) {
	return r.getLine(ctx, lineID, true)
}

func (r *MovementRepo) getLine(ctx context.Context, lineID id.ID, lock bool) (*movement.MovementLine, error) {
	q := r.Builder().
		Select(movementLineCols...).
		From(movementLinesTable).
		Where(squirrel.Eq{"line_id": lineID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var line movement.MovementLine
	if err := pgxscan.Get(ctx, r.Querier(ctx), &line, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement line", lineID.String())
		}
		return nil, fmt.Errorf("get line: %w", err)
	}
	return &line, nil
}

// SumPostedReturns sums quantities of POSTED return lines referencing the
// source line.
func (r *MovementRepo) SumPostedReturns(ctx context.Context, sourceLineID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(l.qty), 0)
		FROM ` + movementLinesTable + ` l
		JOIN ` + movementsTable + ` m ON m.id = l.movement_id
		WHERE l.source_line_id = $1
		  AND m.type = $2
		  AND m.status = $3
	`

	var total types.Quantity
	err := r.Querier(ctx).QueryRow(ctx, sql, sourceLineID, movement.TypeReturn, movement.StatusPosted).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum posted returns: %w", err)
	}
	return total, nil
}

// List retrieves movement headers with filtering, newest first.
func (r *MovementRepo) List(ctx context.Context, filter movement.ListFilter) ([]*movement.StockMovement, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[movement.StockMovement]()...).
		From(movementsTable).
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.RefType != nil {
		q = q.Where(squirrel.Eq{"ref_type": *filter.RefType})
	}
	if filter.RefID != nil {
		q = q.Where(squirrel.Eq{"ref_id": *filter.RefID})
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

	var movements []*movement.StockMovement
	if err := pgxscan.Select(ctx, r.Querier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}
