package lot

import (
	"testing"
	"time"

	"stokado/internal/core/id"
	"stokado/internal/core/types"
)

func ts(day int) time.Time {
	return time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
}

func tsp(day int) *time.Time {
	t := ts(day)
	return &t
}

func TestSortFIFO(t *testing.T) {
	noExpiry := Stock{LotID: id.New(), ReceivedAt: ts(1)}
	lateExpiry := Stock{LotID: id.New(), ExpiryDate: tsp(20), ReceivedAt: ts(2)}
	earlyExpiry := Stock{LotID: id.New(), ExpiryDate: tsp(10), ReceivedAt: ts(3)}
	sameExpiryOlder := Stock{LotID: id.New(), ExpiryDate: tsp(10), ReceivedAt: ts(1)}

	stocks := []Stock{noExpiry, lateExpiry, earlyExpiry, sameExpiryOlder}
	SortFIFO(stocks)

	want := []id.ID{sameExpiryOlder.LotID, earlyExpiry.LotID, lateExpiry.LotID, noExpiry.LotID}
	for i, w := range want {
		if stocks[i].LotID != w {
			t.Fatalf("position %d: wrong lot order", i)
		}
	}
}

func TestAllocateFromStock(t *testing.T) {
	lotA := id.New()
	lotB := id.New()

	stocks := []Stock{
		{LotID: lotA, ExpiryDate: tsp(10), ReceivedAt: ts(1), QtyOnHand: types.QtyFromInt(3)},
		{LotID: lotB, ExpiryDate: tsp(20), ReceivedAt: ts(2), QtyOnHand: types.QtyFromInt(5)},
	}

	allocations, remainder := AllocateFromStock(stocks, types.QtyFromInt(6))
	if !remainder.IsZero() {
		t.Errorf("remainder = %s, want 0", remainder)
	}
	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}
	if allocations[0].LotID != lotA || allocations[0].Qty != types.QtyFromInt(3) {
		t.Errorf("first allocation should drain lot A: %+v", allocations[0])
	}
	if allocations[1].LotID != lotB || allocations[1].Qty != types.QtyFromInt(3) {
		t.Errorf("second allocation should take 3 from lot B: %+v", allocations[1])
	}
}

func TestAllocateFromStock_Shortfall(t *testing.T) {
	stocks := []Stock{
		{LotID: id.New(), ReceivedAt: ts(1), QtyOnHand: types.QtyFromInt(2)},
	}

	allocations, remainder := AllocateFromStock(stocks, types.QtyFromInt(7))
	if remainder != types.QtyFromInt(5) {
		t.Errorf("remainder = %s, want 5", remainder)
	}
	if len(allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(allocations))
	}
}

func TestAllocateFromStock_SkipsEmptyLots(t *testing.T) {
	empty := Stock{LotID: id.New(), ExpiryDate: tsp(5), ReceivedAt: ts(1)}
	full := Stock{LotID: id.New(), ExpiryDate: tsp(10), ReceivedAt: ts(2), QtyOnHand: types.QtyFromInt(4)}

	allocations, remainder := AllocateFromStock([]Stock{empty, full}, types.QtyFromInt(4))
	if !remainder.IsZero() {
		t.Errorf("remainder = %s, want 0", remainder)
	}
	if len(allocations) != 1 || allocations[0].LotID != full.LotID {
		t.Fatalf("allocation should skip the empty lot: %+v", allocations)
	}
}

func TestAllocateFromStock_NoStock(t *testing.T) {
	allocations, remainder := AllocateFromStock(nil, types.QtyFromInt(2))
	if len(allocations) != 0 {
		t.Errorf("expected no allocations, got %d", len(allocations))
	}
	if remainder != types.QtyFromInt(2) {
		t.Errorf("remainder = %s, want full quantity", remainder)
	}
}
