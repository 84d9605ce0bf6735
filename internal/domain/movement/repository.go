package movement

import (
	"context"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// ListFilter for movement listings.
type ListFilter struct {
	Type     *Type
	Status   *Status
	RefType  *RefType
	RefID    *id.ID
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines storage operations for movement documents.
type Repository interface {
	// Create inserts the header and its lines
	Create(ctx context.Context, m *StockMovement) error

	// Update saves the header with optimistic locking on version
	Update(ctx context.Context, m *StockMovement) error

	// ReplaceLines rewrites the line set of a draft
	ReplaceLines(ctx context.Context, movementID id.ID, lines []MovementLine) error

	// GetByID returns the movement with its lines
	GetByID(ctx context.Context, movementID id.ID) (*StockMovement, error)

	// GetForUpdate returns the movement with its lines and a row lock on
	// the header
	GetForUpdate(ctx context.Context, movementID id.ID) (*StockMovement, error)

	// GetLine returns a single line by identifier
	GetLine(ctx context.Context, lineID id.ID) (*MovementLine, error)

	// GetLineForUpdate returns a line with a row lock. Return posting locks
	// the original issue line this way so concurrent returns serialize.
	GetLineForUpdate(ctx context.Context, lineID id.ID) (*MovementLine, error)

	// SumPostedReturns sums quantities of POSTED return lines referencing
	// the source line
	SumPostedReturns(ctx context.Context, sourceLineID id.ID) (types.Quantity, error)

	// List returns movement headers matching the filter, newest first
	List(ctx context.Context, filter ListFilter) ([]*StockMovement, error)
}
