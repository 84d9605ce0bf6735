package movement

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
	"stokado/internal/domain/audit"
	"stokado/internal/domain/catalog"
	"stokado/internal/domain/event"
	"stokado/internal/domain/lot"
	"stokado/internal/domain/stock"
	"stokado/pkg/logger"
)

// NumberPrefix is the document number family for stock movements.
const NumberPrefix = "MV"

// Service provides business operations for stock movement documents:
// draft CRUD, the approval workflow, and ledger posting.
type Service struct {
	repo     Repository
	register *stock.Service
	lots     *lot.Service
	catalog  catalog.Resolver
	numbers  sequence.Generator
	txm      tx.Manager
	auditor  audit.Logger
	events   event.Publisher
}

// NewService creates a new movement service.
func NewService(
	repo Repository,
	register *stock.Service,
	lots *lot.Service,
	cat catalog.Resolver,
	numbers sequence.Generator,
	txm tx.Manager,
	auditor audit.Logger,
	events event.Publisher,
) *Service {
	return &Service{
		repo:     repo,
		register: register,
		lots:     lots,
		catalog:  cat,
		numbers:  numbers,
		txm:      txm,
		auditor:  auditor,
		events:   events,
	}
}

// Create stores a new DRAFT movement, assigning its document number.
func (s *Service) Create(ctx context.Context, m *StockMovement) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return apperror.NewForbidden("viewer role cannot create movements")
	}

	m.Status = StatusDraft
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.resolveRefs(ctx, m); err != nil {
		return err
	}

	m.CreatedBy = a.ID
	m.UpdatedBy = a.ID

	// Number assignment shares the insert transaction so a failed create
	// rolls the sequence row back with it, keeping numbering gapless.
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if m.Number == "" {
			cfg := sequence.DefaultConfig(NumberPrefix)
			number, err := s.numbers.Next(ctx, cfg, sequence.DefaultOptions(), m.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			m.Number = number
		}
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, a, m, audit.ActionCreate, nil)
	logger.Info(ctx, "movement created",
		"id", m.ID,
		"number", m.Number,
		"type", m.Type,
	)
	return nil
}

// Update replaces the header fields and lines of an editable movement.
func (s *Service) Update(ctx context.Context, m *StockMovement) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return apperror.NewForbidden("viewer role cannot edit movements")
	}

	current, err := s.repo.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	if !current.Editable() {
		return apperror.NewWrongState("update", string(current.Status))
	}
	m.Status = current.Status
	m.Type = current.Type
	m.Number = current.Number

	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.resolveRefs(ctx, m); err != nil {
		return err
	}

	m.UpdatedBy = a.ID
	m.Touch()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		if err := s.repo.ReplaceLines(ctx, m.ID, m.Lines); err != nil {
			return fmt.Errorf("replace lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, a, m, audit.ActionUpdate, nil)
	return nil
}

// Delete soft-deletes a draft. Documents past DRAFT are cancelled or
// reversed instead, never removed.
func (s *Service) Delete(ctx context.Context, movementID id.ID) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return apperror.NewForbidden("viewer role cannot delete movements")
	}

	var m *StockMovement
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m.Status != StatusDraft {
			return apperror.NewWrongState("delete", string(m.Status))
		}
		if !a.CanApprove() && m.CreatedBy != a.ID {
			return apperror.NewForbidden("only the creator or a manager may delete")
		}

		m.MarkDeleted()
		m.UpdatedBy = a.ID
		m.Touch()
		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, a, m, audit.ActionDelete, nil)
	logger.Info(ctx, "movement deleted", "id", m.ID, "number", m.Number)
	return nil
}

// GetByID retrieves a movement with its lines.
func (s *Service) GetByID(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	return s.repo.GetByID(ctx, movementID)
}

// List returns movement headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*StockMovement, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// Submit moves a movement into the approval queue.
func (s *Service) Submit(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanWrite() {
		return nil, apperror.NewForbidden("viewer role cannot submit movements")
	}

	return s.transition(ctx, movementID, event.TypeMovementSubmitted, func(m *StockMovement) error {
		return m.Submit(ctx, time.Now().UTC())
	})
}

// Approve marks a submitted movement as approved.
func (s *Service) Approve(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanApprove() {
		return nil, apperror.NewForbidden("approval requires manager role")
	}

	return s.transition(ctx, movementID, event.TypeMovementApproved, func(m *StockMovement) error {
		return m.Approve(a.ID, time.Now().UTC())
	})
}

// Reject sends a submitted movement back with a reason.
func (s *Service) Reject(ctx context.Context, movementID id.ID, reason string) (*StockMovement, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanApprove() {
		return nil, apperror.NewForbidden("rejection requires manager role")
	}

	return s.transition(ctx, movementID, event.TypeMovementRejected, func(m *StockMovement) error {
		return m.Reject(reason)
	})
}

// Cancel terminates a not-yet-posted movement. The creator may cancel
// their own document; managers may cancel any.
func (s *Service) Cancel(ctx context.Context, movementID id.ID, reason string) (*StockMovement, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, movementID, event.TypeMovementCancelled, func(m *StockMovement) error {
		if !a.CanApprove() && m.CreatedBy != a.ID {
			return apperror.NewForbidden("only the creator or a manager may cancel")
		}
		return m.Cancel(reason)
	})
}

// transition loads the movement under lock, applies the state change, and
// saves it, emitting the workflow event on success.
func (s *Service) transition(ctx context.Context, movementID id.ID, eventType string, apply func(*StockMovement) error) (*StockMovement, error) {
	a := actor.FromContext(ctx)

	var m *StockMovement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}

		from := m.Status
		if err := apply(m); err != nil {
			return err
		}
		m.UpdatedBy = a.ID
		m.Touch()

		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}

		s.publishTransition(ctx, eventType, m, from, a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, a, m, audit.ActionStatus, map[string]any{"status": string(m.Status)})
	logger.Info(ctx, "movement transition",
		"id", m.ID,
		"number", m.Number,
		"status", m.Status,
	)
	return m, nil
}

// Post writes an approved movement to the stock ledger. Everything runs
// in one transaction: the ledger entries, balance deltas, lot balances,
// last-cost refresh, the status change, and the outbox event.
func (s *Service) Post(ctx context.Context, movementID id.ID) (*StockMovement, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if !a.CanPost() {
		return nil, apperror.NewForbidden("posting requires manager role")
	}

	var m *StockMovement
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}

		from := m.Status
		now := time.Now().UTC()
		if err := m.Post(now); err != nil {
			return err
		}

		if m.Type == TypeReturn {
			if err := s.checkReturnQuantities(ctx, m); err != nil {
				return err
			}
		}

		entries, err := s.buildEntries(ctx, m)
		if err != nil {
			return err
		}
		if err := s.register.Apply(ctx, entries); err != nil {
			return err
		}
		if err := s.refreshLastCosts(ctx, m); err != nil {
			return err
		}

		m.UpdatedBy = a.ID
		m.Touch()
		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}

		s.publishTransition(ctx, event.TypeMovementPosted, m, from, a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, a, m, audit.ActionPost, nil)
	logger.Info(ctx, "movement posted",
		"id", m.ID,
		"number", m.Number,
		"type", m.Type,
		"lines", len(m.Lines),
	)
	return m, nil
}

// CreatePosted stores a movement and posts it in the same transaction,
// skipping the approval workflow. Used by document integrations whose own
// workflow already authorized the stock change (goods receipt against a
// purchase order).
func (s *Service) CreatePosted(ctx context.Context, m *StockMovement) error {
	a, err := actor.Require(ctx)
	if err != nil {
		return err
	}
	if !a.CanWrite() {
		return apperror.NewForbidden("viewer role cannot create movements")
	}

	m.Status = StatusDraft
	if len(m.Lines) == 0 {
		return apperror.NewValidation("movement has no lines")
	}
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.resolveRefs(ctx, m); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if m.Number == "" {
			cfg := sequence.DefaultConfig(NumberPrefix)
			number, err := s.numbers.Next(ctx, cfg, sequence.DefaultOptions(), m.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			m.Number = number
		}
		m.CreatedBy = a.ID
		m.UpdatedBy = a.ID

		now := time.Now().UTC()
		m.SubmittedAt = &now
		m.ApprovedAt = &now
		m.ApprovedBy = a.ID
		m.Status = StatusPosted
		m.PostedAt = &now

		if m.Type == TypeReturn {
			if err := s.checkReturnQuantities(ctx, m); err != nil {
				return err
			}
		}
		entries, err := s.buildEntries(ctx, m)
		if err != nil {
			return err
		}

		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		if err := s.register.Apply(ctx, entries); err != nil {
			return err
		}
		if err := s.refreshLastCosts(ctx, m); err != nil {
			return err
		}

		s.publishTransition(ctx, event.TypeMovementPosted, m, StatusDraft, a)
		s.logAudit(ctx, a, m, audit.ActionPost, nil)
		logger.Info(ctx, "movement created and posted",
			"id", m.ID,
			"number", m.Number,
			"type", m.Type,
		)
		return nil
	})
}

// resolveRefs verifies every catalog reference on the document exists and
// is consistent (variant belongs to the line's product).
func (s *Service) resolveRefs(ctx context.Context, m *StockMovement) error {
	seenLoc := map[id.ID]bool{}
	checkLoc := func(locID id.ID) error {
		if id.IsNil(locID) || seenLoc[locID] {
			return nil
		}
		if _, err := s.catalog.GetLocation(ctx, locID); err != nil {
			return err
		}
		seenLoc[locID] = true
		return nil
	}

	for i := range m.Lines {
		l := &m.Lines[i]
		if _, err := s.catalog.GetProduct(ctx, l.ProductID); err != nil {
			return err
		}
		if !id.IsNil(l.VariantID) {
			v, err := s.catalog.GetVariant(ctx, l.VariantID)
			if err != nil {
				return err
			}
			if v.ProductID != l.ProductID {
				return apperror.NewValidation("variant belongs to a different product").
					WithDetail("lineNo", l.LineNo).
					WithDetail("variantId", l.VariantID.String())
			}
		}
		if err := checkLoc(l.FromLocationID); err != nil {
			return err
		}
		if err := checkLoc(l.ToLocationID); err != nil {
			return err
		}
	}
	return nil
}

// checkReturnQuantities enforces the over-return rule at posting time.
// Each original issue line is row-locked, then the remaining quantity is
// recomputed from the ledger of already POSTED returns.
func (s *Service) checkReturnQuantities(ctx context.Context, m *StockMovement) error {
	for i := range m.Lines {
		l := &m.Lines[i]

		orig, err := s.repo.GetLineForUpdate(ctx, l.SourceLineID)
		if err != nil {
			return err
		}
		parent, err := s.repo.GetByID(ctx, orig.MovementID)
		if err != nil {
			return err
		}
		if parent.Type != TypeIssue || parent.Status != StatusPosted {
			return apperror.NewValidation("return must reference a posted issue line").
				WithDetail("lineNo", l.LineNo).
				WithDetail("sourceLineId", l.SourceLineID.String())
		}
		if orig.ProductID != l.ProductID {
			return apperror.NewValidation("return product differs from the issued product").
				WithDetail("lineNo", l.LineNo)
		}

		returned, err := s.repo.SumPostedReturns(ctx, l.SourceLineID)
		if err != nil {
			return fmt.Errorf("sum posted returns: %w", err)
		}
		remaining := orig.Qty - returned
		if l.Qty > remaining {
			return apperror.NewOverReturn(l.SourceLineID.String(), l.Qty.Float64(), remaining.Float64())
		}
	}
	return nil
}

// buildEntries turns movement lines into ledger entries and maintains lot
// balances along the way.
func (s *Service) buildEntries(ctx context.Context, m *StockMovement) ([]stock.Entry, error) {
	var entries []stock.Entry

	add := func(l *MovementLine, recordType stock.RecordType, locationID, lotID id.ID, qty types.Quantity) {
		e := stock.NewEntry(m.ID, l.LineID, m.Date, recordType)
		e.ProductID = l.ProductID
		e.VariantID = l.VariantID
		e.LocationID = locationID
		e.LotID = lotID
		e.Qty = qty
		e.UnitCost = l.UnitCost
		entries = append(entries, e)
	}

	for i := range m.Lines {
		l := &m.Lines[i]
		switch m.Type {
		case TypeReceive, TypeReturn:
			lotID, err := s.lots.Resolve(ctx, l.ProductID, l.LotID, l.NewLotNumber, l.NewExpiryDate)
			if err != nil {
				return nil, err
			}
			l.LotID = lotID
			add(l, stock.RecordTypeReceipt, l.ToLocationID, lotID, l.Qty)
			if !id.IsNil(lotID) {
				if err := s.lots.Apply(ctx, lotID, l.ToLocationID, l.Qty); err != nil {
					return nil, err
				}
			}

		case TypeIssue:
			allocs, rest, err := s.allocateOut(ctx, l, l.FromLocationID)
			if err != nil {
				return nil, err
			}
			for _, al := range allocs {
				add(l, stock.RecordTypeExpense, l.FromLocationID, al.LotID, al.Qty)
				if err := s.lots.Apply(ctx, al.LotID, l.FromLocationID, al.Qty.Neg()); err != nil {
					return nil, err
				}
			}
			if rest.IsPositive() {
				add(l, stock.RecordTypeExpense, l.FromLocationID, id.Nil(), rest)
			}

		case TypeTransfer:
			allocs, rest, err := s.allocateOut(ctx, l, l.FromLocationID)
			if err != nil {
				return nil, err
			}
			for _, al := range allocs {
				add(l, stock.RecordTypeExpense, l.FromLocationID, al.LotID, al.Qty)
				add(l, stock.RecordTypeReceipt, l.ToLocationID, al.LotID, al.Qty)
				if err := s.lots.Apply(ctx, al.LotID, l.FromLocationID, al.Qty.Neg()); err != nil {
					return nil, err
				}
				if err := s.lots.Apply(ctx, al.LotID, l.ToLocationID, al.Qty); err != nil {
					return nil, err
				}
			}
			if rest.IsPositive() {
				add(l, stock.RecordTypeExpense, l.FromLocationID, id.Nil(), rest)
				add(l, stock.RecordTypeReceipt, l.ToLocationID, id.Nil(), rest)
			}

		case TypeAdjust:
			if l.Qty.IsPositive() {
				add(l, stock.RecordTypeReceipt, l.ToLocationID, l.LotID, l.Qty)
			} else {
				add(l, stock.RecordTypeExpense, l.ToLocationID, l.LotID, l.Qty.Abs())
			}
			if !id.IsNil(l.LotID) {
				if err := s.lots.Apply(ctx, l.LotID, l.ToLocationID, l.Qty); err != nil {
					return nil, err
				}
			}
		}
	}
	return entries, nil
}

// allocateOut resolves which lots an outgoing line consumes. A pinned lot
// takes the whole quantity; lot-tracked products without a pin get FIFO
// allocation; everything else leaves the ledger untracked.
func (s *Service) allocateOut(ctx context.Context, l *MovementLine, locationID id.ID) ([]lot.Allocation, types.Quantity, error) {
	if !id.IsNil(l.LotID) {
		lotID, err := s.lots.Resolve(ctx, l.ProductID, l.LotID, "", nil)
		if err != nil {
			return nil, 0, err
		}
		return []lot.Allocation{{LotID: lotID, Qty: l.Qty}}, 0, nil
	}

	p, err := s.catalog.GetProduct(ctx, l.ProductID)
	if err != nil {
		return nil, 0, err
	}
	if !p.LotTracked {
		return nil, l.Qty, nil
	}
	return s.lots.AllocateFIFO(ctx, l.ProductID, locationID, l.Qty)
}

// refreshLastCosts updates the last purchase cost on products and variants
// from incoming lines that carry a cost.
func (s *Service) refreshLastCosts(ctx context.Context, m *StockMovement) error {
	if m.Type != TypeReceive && m.Type != TypeAdjust {
		return nil
	}
	for i := range m.Lines {
		l := &m.Lines[i]
		if !l.UnitCost.IsPositive() {
			continue
		}
		if m.Type == TypeAdjust && !l.Qty.IsPositive() {
			continue
		}
		if err := s.catalog.UpdateLastCost(ctx, l.ProductID, l.VariantID, l.UnitCost); err != nil {
			return fmt.Errorf("update last cost: %w", err)
		}
	}
	return nil
}

// publishTransition hands the workflow event to the outbox. A publish
// failure is logged and swallowed: notifications are best-effort.
func (s *Service) publishTransition(ctx context.Context, eventType string, m *StockMovement, from Status, a actor.Actor) {
	payload := event.MovementTransition{
		MovementID:   m.ID,
		Number:       m.Number,
		MovementType: string(m.Type),
		FromStatus:   string(from),
		ToStatus:     string(m.Status),
		ActorID:      a.ID,
		ActorName:    a.Name,
		Reason:       firstNonEmpty(m.RejectReason, m.CancelReason),
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, eventType, m.ID, payload); err != nil {
		logger.Warn(ctx, "event publish failed",
			"event_type", eventType,
			"movement_id", m.ID,
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, a actor.Actor, m *StockMovement, action audit.Action, state map[string]any) {
	rec := audit.Record{
		EntityType: "StockMovement",
		EntityID:   m.ID,
		Action:     action,
		ActorID:    a.ID,
		ActorName:  a.Name,
		NewState:   state,
	}
	if err := s.auditor.Log(ctx, rec); err != nil {
		logger.Warn(ctx, "audit log failed", "movement_id", m.ID, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
