package movement

import (
	"context"
	"time"

	"stokado/internal/core/apperror"
	"stokado/internal/core/entity"
	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

// Type classifies a stock movement document and dictates the line shape.
type Type string

const (
	TypeReceive  Type = "RECEIVE"
	TypeIssue    Type = "ISSUE"
	TypeTransfer Type = "TRANSFER"
	TypeAdjust   Type = "ADJUST"
	TypeReturn   Type = "RETURN"
)

// IsValid reports whether t is a known movement type.
func (t Type) IsValid() bool {
	switch t {
	case TypeReceive, TypeIssue, TypeTransfer, TypeAdjust, TypeReturn:
		return true
	}
	return false
}

// RefType links a movement to the document or movement that caused it.
type RefType string

const (
	RefNone       RefType = ""
	RefGRN        RefType = "GRN"
	RefReversalOf RefType = "REVERSAL_OF"
	RefReturnOf   RefType = "RETURN_OF"
)

// StockMovement is a stock movement document. Lines carry the quantities;
// posting the document writes ledger entries and mutates balances.
type StockMovement struct {
	entity.Document

	Type   Type   `json:"type" db:"type"`
	Status Status `json:"status" db:"status"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty" db:"submitted_at"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty" db:"approved_at"`
	ApprovedBy  string     `json:"approvedBy,omitempty" db:"approved_by"`
	PostedAt    *time.Time `json:"postedAt,omitempty" db:"posted_at"`

	RejectReason string `json:"rejectReason,omitempty" db:"reject_reason"`
	CancelReason string `json:"cancelReason,omitempty" db:"cancel_reason"`

	// RefType/RefID bind the movement to its originating document:
	// the GRN that receives goods, or the movement being reversed or returned.
	RefType RefType `json:"refType,omitempty" db:"ref_type"`
	RefID   id.ID   `json:"refId,omitempty" db:"ref_id"`

	Reason string `json:"reason,omitempty" db:"reason"`

	Lines []MovementLine `json:"lines" db:"-"`
}

// MovementLine is a single product position on a movement document.
// Which location fields must be set depends on the movement type.
type MovementLine struct {
	LineID     id.ID `json:"lineId" db:"line_id"`
	MovementID id.ID `json:"-" db:"movement_id"`
	LineNo     int   `json:"lineNo" db:"line_no"`

	ProductID id.ID `json:"productId" db:"product_id"`
	VariantID id.ID `json:"variantId,omitempty" db:"variant_id"`

	FromLocationID id.ID `json:"fromLocationId,omitempty" db:"from_location_id"`
	ToLocationID   id.ID `json:"toLocationId,omitempty" db:"to_location_id"`

	// Qty is positive for every type except ADJUST, where it is the signed
	// correction and zero is rejected.
	Qty      types.Quantity `json:"qty" db:"qty"`
	UnitCost types.Money    `json:"unitCost" db:"unit_cost"`

	// Lot assignment. LotID references an existing lot; NewLotNumber asks
	// posting to create one. At most one of the two may be set.
	LotID         id.ID      `json:"lotId,omitempty" db:"lot_id"`
	NewLotNumber  string     `json:"newLotNumber,omitempty" db:"new_lot_number"`
	NewExpiryDate *time.Time `json:"newExpiryDate,omitempty" db:"new_expiry_date"`

	// SourceLineID points at the original ISSUE line for RETURN movements.
	SourceLineID id.ID `json:"sourceLineId,omitempty" db:"source_line_id"`
}

// New creates a DRAFT movement of the given type dated at the given time.
func New(t Type, date time.Time) *StockMovement {
	m := &StockMovement{
		Document: entity.NewDocument(),
		Type:     t,
		Status:   StatusDraft,
	}
	if !date.IsZero() {
		m.Date = date.UTC()
	}
	return m
}

// AddLine appends a line, assigning its identifier and ordinal.
func (m *StockMovement) AddLine(line MovementLine) {
	line.LineID = id.New()
	line.MovementID = m.ID
	line.LineNo = len(m.Lines) + 1
	m.Lines = append(m.Lines, line)
}

// Validate checks the document header and every line against the shape
// rules of the movement type.
func (m *StockMovement) Validate(ctx context.Context) error {
	if err := m.Document.Validate(ctx); err != nil {
		return err
	}
	if !m.Type.IsValid() {
		return apperror.NewValidation("unknown movement type").
			WithDetail("type", string(m.Type))
	}
	for i := range m.Lines {
		if err := m.validateLine(&m.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *StockMovement) validateLine(l *MovementLine) error {
	fail := func(msg string) error {
		return apperror.NewValidation(msg).
			WithDetail("lineNo", l.LineNo).
			WithDetail("type", string(m.Type))
	}

	if id.IsNil(l.ProductID) {
		return fail("line product is required")
	}
	if !id.IsNil(l.LotID) && l.NewLotNumber != "" {
		return fail("line may reference an existing lot or describe a new one, not both")
	}

	switch m.Type {
	case TypeReceive, TypeReturn:
		if id.IsNil(l.ToLocationID) {
			return fail("destination location is required")
		}
		if !id.IsNil(l.FromLocationID) {
			return fail("source location must be empty")
		}
		if !l.Qty.IsPositive() {
			return fail("quantity must be positive")
		}
		if m.Type == TypeReturn && id.IsNil(l.SourceLineID) {
			return fail("return line must reference the original issue line")
		}
	case TypeIssue:
		if id.IsNil(l.FromLocationID) {
			return fail("source location is required")
		}
		if !id.IsNil(l.ToLocationID) {
			return fail("destination location must be empty")
		}
		if !l.Qty.IsPositive() {
			return fail("quantity must be positive")
		}
	case TypeTransfer:
		if id.IsNil(l.FromLocationID) || id.IsNil(l.ToLocationID) {
			return fail("transfer requires both source and destination locations")
		}
		if l.FromLocationID == l.ToLocationID {
			return fail("transfer source and destination must differ")
		}
		if !l.Qty.IsPositive() {
			return fail("quantity must be positive")
		}
	case TypeAdjust:
		if id.IsNil(l.ToLocationID) {
			return fail("adjustment location is required")
		}
		if !id.IsNil(l.FromLocationID) {
			return fail("source location must be empty")
		}
		if l.Qty.IsZero() {
			return fail("adjustment quantity must be non-zero")
		}
	}
	return nil
}

// Submit moves DRAFT or REJECTED to SUBMITTED. A movement without lines
// cannot be submitted.
func (m *StockMovement) Submit(ctx context.Context, now time.Time) error {
	next, err := m.Status.Next(ActionSubmit)
	if err != nil {
		return err
	}
	if len(m.Lines) == 0 {
		return apperror.NewValidation("movement has no lines")
	}
	if err := m.Validate(ctx); err != nil {
		return err
	}
	m.Status = next
	m.SubmittedAt = &now
	m.RejectReason = ""
	return nil
}

// Approve moves SUBMITTED to APPROVED and records the approver.
func (m *StockMovement) Approve(approverID string, now time.Time) error {
	next, err := m.Status.Next(ActionApprove)
	if err != nil {
		return err
	}
	m.Status = next
	m.ApprovedBy = approverID
	m.ApprovedAt = &now
	return nil
}

// Reject moves SUBMITTED back to REJECTED with a reason. A rejected
// movement may be amended and resubmitted.
func (m *StockMovement) Reject(reason string) error {
	next, err := m.Status.Next(ActionReject)
	if err != nil {
		return err
	}
	if reason == "" {
		return apperror.NewValidation("rejection reason is required")
	}
	m.Status = next
	m.RejectReason = reason
	return nil
}

// Post moves APPROVED to POSTED. The caller is responsible for writing
// ledger entries in the same transaction.
func (m *StockMovement) Post(now time.Time) error {
	next, err := m.Status.Next(ActionPost)
	if err != nil {
		return err
	}
	m.Status = next
	m.PostedAt = &now
	return nil
}

// Cancel terminates a not-yet-posted movement.
func (m *StockMovement) Cancel(reason string) error {
	next, err := m.Status.Next(ActionCancel)
	if err != nil {
		return err
	}
	m.Status = next
	m.CancelReason = reason
	return nil
}

// Editable reports whether header and lines may still be changed.
func (m *StockMovement) Editable() bool {
	return m.Status == StatusDraft || m.Status == StatusRejected
}

// LineByID returns the line with the given identifier.
func (m *StockMovement) LineByID(lineID id.ID) (*MovementLine, bool) {
	for i := range m.Lines {
		if m.Lines[i].LineID == lineID {
			return &m.Lines[i], true
		}
	}
	return nil, false
}
