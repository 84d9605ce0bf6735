package purchasing

import (
	"context"
	"testing"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

func orderWithLines(qtys ...int64) *PurchaseOrder {
	po := NewPurchaseOrder(id.New())
	for _, q := range qtys {
		po.AddLine(POLine{
			ProductID: id.New(),
			Qty:       types.QtyFromInt(q),
			UnitCost:  types.NewMoney(10),
		})
	}
	return po
}

func TestRecomputeStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   POStatus
		received []int64
		want     POStatus
	}{
		{"sent with nothing received", POStatusSent, []int64{0, 0}, POStatusSent},
		{"partially received", POStatusSent, []int64{5, 0}, POStatusPartiallyReceived},
		{"fully received", POStatusSent, []int64{5, 10}, POStatusFullyReceived},
		{"one line complete one pending", POStatusPartiallyReceived, []int64{5, 3}, POStatusPartiallyReceived},
		{"draft untouched", POStatusDraft, []int64{5, 10}, POStatusDraft},
		{"closed untouched", POStatusClosed, []int64{5, 10}, POStatusClosed},
		{"cancelled untouched", POStatusCancelled, []int64{0, 0}, POStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po := orderWithLines(5, 10)
			po.Status = tt.status
			for i, r := range tt.received {
				po.Lines[i].QtyReceived = types.QtyFromInt(r)
			}

			po.RecomputeStatus()
			if po.Status != tt.want {
				t.Errorf("status = %s, want %s", po.Status, tt.want)
			}
		})
	}
}

func TestRecomputeStatus_NoLines(t *testing.T) {
	po := NewPurchaseOrder(id.New())
	po.Status = POStatusSent
	po.RecomputeStatus()
	if po.Status != POStatusSent {
		t.Errorf("order without lines should stay SENT, got %s", po.Status)
	}
}

func TestLineRemaining(t *testing.T) {
	l := POLine{Qty: types.QtyFromInt(10), QtyReceived: types.QtyFromInt(4)}
	if l.Remaining() != types.QtyFromInt(6) {
		t.Errorf("Remaining() = %s, want 6", l.Remaining())
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	po := orderWithLines(5)
	if err := po.Validate(ctx); err != nil {
		t.Errorf("valid order rejected: %v", err)
	}

	noSupplier := orderWithLines(5)
	noSupplier.SupplierID = id.Nil()
	if err := noSupplier.Validate(ctx); err == nil {
		t.Error("expected error for missing supplier")
	}

	zeroQty := orderWithLines(0)
	if err := zeroQty.Validate(ctx); err == nil {
		t.Error("expected error for zero quantity line")
	}

	noProduct := orderWithLines(5)
	noProduct.Lines[0].ProductID = id.Nil()
	if err := noProduct.Validate(ctx); err == nil {
		t.Error("expected error for missing product")
	}
}

func TestReceivable(t *testing.T) {
	receivable := []POStatus{POStatusSent, POStatusPartiallyReceived}
	for _, s := range receivable {
		if !s.receivable() {
			t.Errorf("%s should accept deliveries", s)
		}
	}

	closed := []POStatus{POStatusDraft, POStatusFullyReceived, POStatusClosed, POStatusCancelled}
	for _, s := range closed {
		if s.receivable() {
			t.Errorf("%s should not accept deliveries", s)
		}
	}
}
