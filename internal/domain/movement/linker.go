package movement

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

// BuildReversal derives a draft movement that exactly undoes a posted one.
// The corrective document goes through the normal workflow; the original
// ledger entries stay untouched.
//
// Type mapping: a receipt is undone by an issue from the same location,
// an issue by a receipt back to it, a transfer by the reverse transfer,
// and an adjustment by the negated adjustment.
func BuildReversal(orig *StockMovement) (*StockMovement, error) {
	if orig.Status != StatusPosted {
		return nil, apperror.NewWrongState("reverse", string(orig.Status))
	}

	var revType Type
	switch orig.Type {
	case TypeReceive, TypeReturn:
		revType = TypeIssue
	case TypeIssue:
		revType = TypeReceive
	case TypeTransfer:
		revType = TypeTransfer
	case TypeAdjust:
		revType = TypeAdjust
	default:
		return nil, apperror.NewValidation("unknown movement type").
			WithDetail("type", string(orig.Type))
	}

	rev := New(revType, time.Now().UTC())
	rev.RefType = RefReversalOf
	rev.RefID = orig.ID
	rev.Reason = fmt.Sprintf("reversal of %s", orig.Number)

	for i := range orig.Lines {
		ol := &orig.Lines[i]
		line := MovementLine{
			ProductID: ol.ProductID,
			VariantID: ol.VariantID,
			UnitCost:  ol.UnitCost,
			LotID:     ol.LotID,
		}
		switch orig.Type {
		case TypeReceive, TypeReturn:
			line.FromLocationID = ol.ToLocationID
			line.Qty = ol.Qty
		case TypeIssue:
			line.ToLocationID = ol.FromLocationID
			line.Qty = ol.Qty
		case TypeTransfer:
			line.FromLocationID = ol.ToLocationID
			line.ToLocationID = ol.FromLocationID
			line.Qty = ol.Qty
		case TypeAdjust:
			line.ToLocationID = ol.ToLocationID
			line.Qty = ol.Qty.Neg()
		}
		rev.AddLine(line)
	}
	return rev, nil
}

// Reverse creates a draft reversal for a posted movement. The draft still
// needs to pass submit, approve, and post before it touches the ledger.
func (s *Service) Reverse(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	orig, err := s.repo.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}

	rev, err := BuildReversal(orig)
	if err != nil {
		return nil, err
	}
	if err := s.Create(ctx, rev); err != nil {
		return nil, err
	}

	logger.Info(ctx, "reversal drafted",
		"original_id", orig.ID,
		"original_number", orig.Number,
		"reversal_id", rev.ID,
	)
	return rev, nil
}

// ReturnSpec describes one line of a customer return.
type ReturnSpec struct {
	// SourceLineID is the issue line being returned against
	SourceLineID id.ID
	Qty          types.Quantity
	// ToLocationID receives the goods; defaults to the location the
	// original issue shipped from
	ToLocationID id.ID
	// Lot assignment, optional
	LotID         id.ID
	NewLotNumber  string
	NewExpiryDate *time.Time
}

// CreateReturn drafts a RETURN movement against a posted issue. Remaining
// quantities are checked here for early feedback and enforced again with
// row locks when the return posts.
func (s *Service) CreateReturn(ctx context.Context, issueID id.ID, specs []ReturnSpec, comment string) (*StockMovement, error) {
	if _, err := actor.Require(ctx); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, apperror.NewValidation("return has no lines")
	}

	issue, err := s.repo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Type != TypeIssue {
		return nil, apperror.NewValidation("returns can only reference issue movements").
			WithDetail("type", string(issue.Type))
	}
	if issue.Status != StatusPosted {
		return nil, apperror.NewWrongState("return", string(issue.Status))
	}

	ret := New(TypeReturn, time.Now().UTC())
	ret.RefType = RefReturnOf
	ret.RefID = issue.ID
	ret.Comment = comment

	for _, spec := range specs {
		orig, ok := issue.LineByID(spec.SourceLineID)
		if !ok {
			return nil, apperror.NewNotFound("issue line", spec.SourceLineID)
		}
		if !spec.Qty.IsPositive() {
			return nil, apperror.NewValidation("return quantity must be positive").
				WithDetail("sourceLineId", spec.SourceLineID.String())
		}

		returned, err := s.repo.SumPostedReturns(ctx, spec.SourceLineID)
		if err != nil {
			return nil, fmt.Errorf("sum posted returns: %w", err)
		}
		remaining := orig.Qty - returned
		if spec.Qty > remaining {
			return nil, apperror.NewOverReturn(spec.SourceLineID.String(), spec.Qty.Float64(), remaining.Float64())
		}

		toLocation := spec.ToLocationID
		if id.IsNil(toLocation) {
			toLocation = orig.FromLocationID
		}
		ret.AddLine(MovementLine{
			ProductID:     orig.ProductID,
			VariantID:     orig.VariantID,
			ToLocationID:  toLocation,
			Qty:           spec.Qty,
			UnitCost:      orig.UnitCost,
			LotID:         spec.LotID,
			NewLotNumber:  spec.NewLotNumber,
			NewExpiryDate: spec.NewExpiryDate,
			SourceLineID:  orig.LineID,
		})
	}

	if err := s.Create(ctx, ret); err != nil {
		return nil, err
	}

	logger.Info(ctx, "return drafted",
		"issue_id", issue.ID,
		"issue_number", issue.Number,
		"return_id", ret.ID,
		"lines", len(ret.Lines),
	)
	return ret, nil
}
