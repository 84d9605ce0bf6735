package movement

import (
	"context"
	"testing"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

func validLine(t Type) MovementLine {
	l := MovementLine{
		ProductID: id.New(),
		Qty:       types.NewQuantityFromFloat64(5),
	}
	switch t {
	case TypeReceive:
		l.ToLocationID = id.New()
	case TypeIssue:
		l.FromLocationID = id.New()
	case TypeTransfer:
		l.FromLocationID = id.New()
		l.ToLocationID = id.New()
	case TypeAdjust:
		l.ToLocationID = id.New()
	case TypeReturn:
		l.ToLocationID = id.New()
		l.SourceLineID = id.New()
	}
	return l
}

func TestValidate_LineShapes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		docType Type
		mutate  func(*MovementLine)
		wantErr bool
	}{
		{"receive ok", TypeReceive, nil, false},
		{"issue ok", TypeIssue, nil, false},
		{"transfer ok", TypeTransfer, nil, false},
		{"adjust ok", TypeAdjust, nil, false},
		{"return ok", TypeReturn, nil, false},

		{"missing product", TypeReceive, func(l *MovementLine) {
			l.ProductID = id.Nil()
		}, true},
		{"receive without destination", TypeReceive, func(l *MovementLine) {
			l.ToLocationID = id.Nil()
		}, true},
		{"receive with source", TypeReceive, func(l *MovementLine) {
			l.FromLocationID = id.New()
		}, true},
		{"receive zero qty", TypeReceive, func(l *MovementLine) {
			l.Qty = 0
		}, true},
		{"issue without source", TypeIssue, func(l *MovementLine) {
			l.FromLocationID = id.Nil()
		}, true},
		{"issue with destination", TypeIssue, func(l *MovementLine) {
			l.ToLocationID = id.New()
		}, true},
		{"transfer same location", TypeTransfer, func(l *MovementLine) {
			l.ToLocationID = l.FromLocationID
		}, true},
		{"transfer missing destination", TypeTransfer, func(l *MovementLine) {
			l.ToLocationID = id.Nil()
		}, true},
		{"adjust zero qty", TypeAdjust, func(l *MovementLine) {
			l.Qty = 0
		}, true},
		{"adjust negative qty ok", TypeAdjust, func(l *MovementLine) {
			l.Qty = types.NewQuantityFromFloat64(-3)
		}, false},
		{"adjust with source", TypeAdjust, func(l *MovementLine) {
			l.FromLocationID = id.New()
		}, true},
		{"return without source line", TypeReturn, func(l *MovementLine) {
			l.SourceLineID = id.Nil()
		}, true},
		{"both lot ref and new lot", TypeReceive, func(l *MovementLine) {
			l.LotID = id.New()
			l.NewLotNumber = "LOT-1"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.docType, time.Now())
			line := validLine(tt.docType)
			if tt.mutate != nil {
				tt.mutate(&line)
			}
			m.AddLine(line)

			err := m.Validate(ctx)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_UnknownType(t *testing.T) {
	m := New(Type("TELEPORT"), time.Now())
	if err := m.Validate(context.Background()); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestAddLine_AssignsOrdinals(t *testing.T) {
	m := New(TypeReceive, time.Now())
	m.AddLine(validLine(TypeReceive))
	m.AddLine(validLine(TypeReceive))

	if len(m.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(m.Lines))
	}
	for i, l := range m.Lines {
		if l.LineNo != i+1 {
			t.Errorf("line %d has ordinal %d", i, l.LineNo)
		}
		if id.IsNil(l.LineID) {
			t.Errorf("line %d has no identifier", i)
		}
		if l.MovementID != m.ID {
			t.Errorf("line %d not bound to movement", i)
		}
	}
}

func TestSubmit_RequiresLines(t *testing.T) {
	m := New(TypeReceive, time.Now())
	if err := m.Submit(context.Background(), time.Now()); err == nil {
		t.Error("expected error for movement without lines")
	}
	if m.Status != StatusDraft {
		t.Errorf("status should stay DRAFT, got %s", m.Status)
	}
}

func TestWorkflow_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	m := New(TypeIssue, now)
	m.AddLine(validLine(TypeIssue))

	if err := m.Submit(ctx, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.SubmittedAt == nil {
		t.Error("SubmittedAt not set")
	}

	if err := m.Approve("user-1", now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if m.ApprovedBy != "user-1" {
		t.Errorf("ApprovedBy = %q", m.ApprovedBy)
	}

	if err := m.Post(now); err != nil {
		t.Fatalf("post: %v", err)
	}
	if m.Status != StatusPosted || m.PostedAt == nil {
		t.Errorf("post did not finalize: status=%s", m.Status)
	}

	if err := m.Cancel("late"); err == nil {
		t.Error("posted movement must not be cancellable")
	}
}

func TestReject_ClearsOnResubmit(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	m := New(TypeReceive, now)
	m.AddLine(validLine(TypeReceive))

	if err := m.Submit(ctx, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Reject("wrong warehouse"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if m.RejectReason != "wrong warehouse" {
		t.Errorf("RejectReason = %q", m.RejectReason)
	}
	if !m.Editable() {
		t.Error("rejected movement should be editable")
	}

	if err := m.Submit(ctx, now); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if m.RejectReason != "" {
		t.Error("resubmission should clear the rejection reason")
	}
}

func TestReject_RequiresReason(t *testing.T) {
	ctx := context.Background()
	m := New(TypeReceive, time.Now())
	m.AddLine(validLine(TypeReceive))
	if err := m.Submit(ctx, time.Now()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Reject(""); err == nil {
		t.Error("expected error for empty reason")
	}
}
