package purchasing

import (
	"context"
	"fmt"
	"time"

	"stokado/internal/core/actor"
	"stokado/internal/core/apperror"
	"stokado/internal/core/id"
	"stokado/internal/core/sequence"
	"stokado/internal/core/tx"
	"stokado/internal/core/types"
	"stokado/internal/domain/event"
	"stokado/internal/domain/movement"
	"stokado/pkg/logger"
)

// Document number families.
const (
	OrderNumberPrefix = "PO"
	GRNNumberPrefix   = "GRN"
)

// Service provides purchase order lifecycle and goods receiving.
type Service struct {
	repo      Repository
	movements *movement.Service
	numbers   sequence.Generator
	txm       tx.Manager
	events    event.Publisher
}

// NewService creates a new purchasing service.
func NewService(
	repo Repository,
	movements *movement.Service,
	numbers sequence.Generator,
	txm tx.Manager,
	events event.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		movements: movements,
		numbers:   numbers,
		txm:       txm,
		events:    events,
	}
}

// CreateOrder stores a new draft purchase order.
func (s *Service) CreateOrder(ctx context.Context, po *PurchaseOrder) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return apperror.NewForbidden("viewer role cannot create orders")
	}

	po.Status = POStatusDraft
	if err := po.Validate(ctx); err != nil {
		return err
	}
	if len(po.Lines) == 0 {
		return apperror.NewValidation("order has no lines")
	}

	po.CreatedBy = a.ID
	po.UpdatedBy = a.ID

	// Number assignment shares the insert transaction so a failed create
	// rolls the sequence row back with it, keeping numbering gapless.
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if po.Number == "" {
			cfg := sequence.DefaultConfig(OrderNumberPrefix)
			number, err := s.numbers.Next(ctx, cfg, sequence.DefaultOptions(), po.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			po.Number = number
		}
		if err := s.repo.CreateOrder(ctx, po); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.repo.AppendTimeline(ctx, NewTimelineEntry(po.ID, TimelineCreated, "order created", a.ID))
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase order created", "id", po.ID, "number", po.Number)
	return nil
}

// SendOrder marks a draft order as sent to the supplier, opening it for
// receiving.
func (s *Service) SendOrder(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanWrite() {
		return nil, apperror.NewForbidden("viewer role cannot send orders")
	}

	var po *PurchaseOrder
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		po, err = s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if po.Status != POStatusDraft {
			return apperror.NewWrongState("send", string(po.Status))
		}
		po.Status = POStatusSent
		po.UpdatedBy = a.ID
		po.Touch()
		if err := s.repo.UpdateOrder(ctx, po); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return s.repo.AppendTimeline(ctx, NewTimelineEntry(po.ID, TimelineSent, "order sent to supplier", a.ID))
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// CancelOrder terminates an order that has not received any goods.
func (s *Service) CancelOrder(ctx context.Context, orderID id.ID, reason string) (*PurchaseOrder, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanApprove() {
		return nil, apperror.NewForbidden("cancelling orders requires manager role")
	}

	var po *PurchaseOrder
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		po, err = s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if po.Status != POStatusDraft && po.Status != POStatusSent {
			return apperror.NewWrongState("cancel", string(po.Status))
		}
		for i := range po.Lines {
			if po.Lines[i].QtyReceived.IsPositive() {
				return apperror.NewWrongState("cancel", string(po.Status))
			}
		}
		po.Status = POStatusCancelled
		po.UpdatedBy = a.ID
		po.Touch()
		if err := s.repo.UpdateOrder(ctx, po); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		msg := "order cancelled"
		if reason != "" {
			msg = "order cancelled: " + reason
		}
		return s.repo.AppendTimeline(ctx, NewTimelineEntry(po.ID, TimelineCancelled, msg, a.ID))
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// CloseOrder closes an order, ending receiving even with quantities
// outstanding.
func (s *Service) CloseOrder(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanApprove() {
		return nil, apperror.NewForbidden("closing orders requires manager role")
	}

	var po *PurchaseOrder
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		po, err = s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !po.Status.receivable() && po.Status != POStatusFullyReceived {
			return apperror.NewWrongState("close", string(po.Status))
		}
		po.Status = POStatusClosed
		po.UpdatedBy = a.ID
		po.Touch()
		if err := s.repo.UpdateOrder(ctx, po); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return s.repo.AppendTimeline(ctx, NewTimelineEntry(po.ID, TimelineClosed, "order closed", a.ID))
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// GetOrder returns an order with lines.
func (s *Service) GetOrder(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders returns orders matching the filter.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]*PurchaseOrder, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListOrders(ctx, filter)
}

// ReceiveLine describes one received position of a delivery.
type ReceiveLine struct {
	POLineID   id.ID
	Qty        types.Quantity
	LocationID id.ID
	// UnitCost overrides the order line cost when the invoice differs;
	// zero keeps the ordered cost.
	UnitCost   types.Money
	LotNumber  string
	ExpiryDate *time.Time
}

// Receive records a delivery against an order. In one transaction it
// creates the GRN, posts the backing RECEIVE movement to the ledger,
// advances received quantities, and recomputes the order status.
// Receiving more than a line's remaining quantity is rejected.
func (s *Service) Receive(ctx context.Context, orderID id.ID, lines []ReceiveLine) (*GRN, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanWrite() {
		return nil, apperror.NewForbidden("viewer role cannot receive goods")
	}
	if len(lines) == 0 {
		return nil, apperror.NewValidation("delivery has no lines")
	}

	var grn *GRN
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		po, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !po.Status.receivable() {
			return apperror.NewWrongState("receive", string(po.Status))
		}

		grn = NewGRN(po.ID, a.ID)
		cfg := sequence.DefaultConfig(GRNNumberPrefix)
		number, err := s.numbers.Next(ctx, cfg, sequence.DefaultOptions(), grn.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		grn.Number = number
		grn.CreatedBy = a.ID
		grn.UpdatedBy = a.ID

		mv := movement.New(movement.TypeReceive, grn.Date)
		mv.RefType = movement.RefGRN
		mv.RefID = grn.ID
		mv.Comment = fmt.Sprintf("receipt against %s", po.Number)

		for _, rl := range lines {
			line, ok := po.LineByID(rl.POLineID)
			if !ok {
				return apperror.NewNotFound("order line", rl.POLineID)
			}
			if !rl.Qty.IsPositive() {
				return apperror.NewValidation("received quantity must be positive").
					WithDetail("poLineId", rl.POLineID.String())
			}
			if id.IsNil(rl.LocationID) {
				return apperror.NewValidation("receiving location is required").
					WithDetail("poLineId", rl.POLineID.String())
			}
			remaining := line.Remaining()
			if rl.Qty > remaining {
				return apperror.NewOverReceipt(rl.POLineID.String(), rl.Qty.Float64(), remaining.Float64())
			}

			cost := rl.UnitCost
			if !cost.IsPositive() {
				cost = line.UnitCost
			}

			grn.AddLine(GRNLine{
				POLineID:   line.LineID,
				ProductID:  line.ProductID,
				VariantID:  line.VariantID,
				LocationID: rl.LocationID,
				Qty:        rl.Qty,
				UnitCost:   cost,
				LotNumber:  rl.LotNumber,
				ExpiryDate: rl.ExpiryDate,
			})
			mv.AddLine(movement.MovementLine{
				ProductID:     line.ProductID,
				VariantID:     line.VariantID,
				ToLocationID:  rl.LocationID,
				Qty:           rl.Qty,
				UnitCost:      cost,
				NewLotNumber:  rl.LotNumber,
				NewExpiryDate: rl.ExpiryDate,
			})

			line.QtyReceived += rl.Qty
			if err := s.repo.AddReceivedQty(ctx, line.LineID, rl.Qty); err != nil {
				return fmt.Errorf("add received qty: %w", err)
			}
		}

		if err := s.movements.CreatePosted(ctx, mv); err != nil {
			return err
		}
		grn.MovementID = mv.ID

		if err := s.repo.CreateGRN(ctx, grn); err != nil {
			return fmt.Errorf("create grn: %w", err)
		}

		po.RecomputeStatus()
		po.UpdatedBy = a.ID
		po.Touch()
		if err := s.repo.UpdateOrder(ctx, po); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		msg := fmt.Sprintf("delivery %s received, %d lines", grn.Number, len(grn.Lines))
		if err := s.repo.AppendTimeline(ctx, NewTimelineEntry(po.ID, TimelineReceived, msg, a.ID)); err != nil {
			return err
		}

		payload := event.GRNReceived{
			GRNID:           grn.ID,
			Number:          grn.Number,
			PurchaseOrderID: po.ID,
			MovementID:      mv.ID,
			ActorID:         a.ID,
			OccurredAt:      time.Now().UTC(),
		}
		if err := s.events.Publish(ctx, event.TypeGRNReceived, grn.ID, payload); err != nil {
			logger.Warn(ctx, "event publish failed",
				"event_type", event.TypeGRNReceived,
				"grn_id", grn.ID,
				"error", err,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "goods received",
		"grn_id", grn.ID,
		"grn_number", grn.Number,
		"order_id", orderID,
		"movement_id", grn.MovementID,
	)
	return grn, nil
}

// GetGRN returns a goods received note with lines.
func (s *Service) GetGRN(ctx context.Context, grnID id.ID) (*GRN, error) {
	return s.repo.GetGRN(ctx, grnID)
}

// ListGRNsByOrder returns the deliveries recorded against an order.
func (s *Service) ListGRNsByOrder(ctx context.Context, orderID id.ID) ([]*GRN, error) {
	return s.repo.ListGRNsByOrder(ctx, orderID)
}

// GetTimeline returns the order's activity trail.
func (s *Service) GetTimeline(ctx context.Context, orderID id.ID) ([]TimelineEntry, error) {
	return s.repo.GetTimeline(ctx, orderID)
}
