package movement

import (
	"testing"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

func postedMovement(t Type) *StockMovement {
	m := New(t, time.Now())
	m.Number = "MV-2508-00001"
	m.AddLine(validLine(t))
	m.Status = StatusPosted
	return m
}

func TestBuildReversal_TypeMapping(t *testing.T) {
	tests := []struct {
		orig Type
		want Type
	}{
		{TypeReceive, TypeIssue},
		{TypeReturn, TypeIssue},
		{TypeIssue, TypeReceive},
		{TypeTransfer, TypeTransfer},
		{TypeAdjust, TypeAdjust},
	}

	for _, tt := range tests {
		t.Run(string(tt.orig), func(t *testing.T) {
			orig := postedMovement(tt.orig)
			rev, err := BuildReversal(orig)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rev.Type != tt.want {
				t.Errorf("reversal type = %s, want %s", rev.Type, tt.want)
			}
			if rev.Status != StatusDraft {
				t.Errorf("reversal should start as DRAFT, got %s", rev.Status)
			}
			if rev.RefType != RefReversalOf || rev.RefID != orig.ID {
				t.Error("reversal not linked to the original")
			}
			if len(rev.Lines) != len(orig.Lines) {
				t.Fatalf("line count mismatch: %d != %d", len(rev.Lines), len(orig.Lines))
			}
		})
	}
}

func TestBuildReversal_LocationsSwapped(t *testing.T) {
	orig := postedMovement(TypeTransfer)
	ol := orig.Lines[0]

	rev, err := BuildReversal(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rl := rev.Lines[0]
	if rl.FromLocationID != ol.ToLocationID || rl.ToLocationID != ol.FromLocationID {
		t.Error("transfer reversal must swap source and destination")
	}
	if rl.Qty != ol.Qty {
		t.Errorf("quantity changed: %s != %s", rl.Qty, ol.Qty)
	}
}

func TestBuildReversal_ReceiveBecomesIssueFromSameLocation(t *testing.T) {
	orig := postedMovement(TypeReceive)
	ol := orig.Lines[0]

	rev, err := BuildReversal(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rl := rev.Lines[0]
	if rl.FromLocationID != ol.ToLocationID {
		t.Error("reversal must issue from the location that received")
	}
	if !id.IsNil(rl.ToLocationID) {
		t.Error("issue line must not carry a destination")
	}
}

func TestBuildReversal_AdjustNegatesQty(t *testing.T) {
	orig := postedMovement(TypeAdjust)
	orig.Lines[0].Qty = types.QtyFromInt(4)

	rev, err := BuildReversal(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.Lines[0].Qty != types.QtyFromInt(-4) {
		t.Errorf("adjustment reversal qty = %s, want -4", rev.Lines[0].Qty)
	}
	if rev.Lines[0].ToLocationID != orig.Lines[0].ToLocationID {
		t.Error("adjustment reversal must target the same location")
	}
}

func TestBuildReversal_RequiresPosted(t *testing.T) {
	for _, status := range []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusCancelled} {
		orig := postedMovement(TypeReceive)
		orig.Status = status
		if _, err := BuildReversal(orig); err == nil {
			t.Errorf("reversal of %s movement should fail", status)
		}
	}
}

func TestBuildReversal_KeepsLotPins(t *testing.T) {
	orig := postedMovement(TypeReceive)
	orig.Lines[0].LotID = id.New()

	rev, err := BuildReversal(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.Lines[0].LotID != orig.Lines[0].LotID {
		t.Error("reversal must consume the same lot")
	}
}
