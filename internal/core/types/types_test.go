package types

import (
	"encoding/json"
	"testing"
)

func TestQuantityString(t *testing.T) {
	tests := []struct {
		q    Quantity
		want string
	}{
		{QtyFromInt(5), "5.0000"},
		{NewQuantityFromFloat64(2.5), "2.5000"},
		{NewQuantityFromFloat64(-0.75), "-0.7500"},
		{0, "0.0000"},
		{Quantity(1), "0.0001"},
	}

	for _, tt := range tests {
		if got := tt.q.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	q := NewQuantityFromFloat64(12.345)

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "12.3450" {
		t.Errorf("marshaled = %s", data)
	}

	var back Quantity
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != q {
		t.Errorf("round trip: %s != %s", back, q)
	}
}

func TestQuantityUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Quantity
		wantErr bool
	}{
		{`3`, QtyFromInt(3), false},
		{`"3.5"`, NewQuantityFromFloat64(3.5), false},
		{`-1.25`, NewQuantityFromFloat64(-1.25), false},
		{`null`, 0, false},
		{`0.00015`, Quantity(1), false}, // extra digits truncated
		{`1e2`, QtyFromInt(100), false},
		{`"abc"`, 0, true},
	}

	for _, tt := range tests {
		var q Quantity
		err := json.Unmarshal([]byte(tt.in), &q)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Unmarshal(%s): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if q != tt.want {
			t.Errorf("Unmarshal(%s) = %s, want %s", tt.in, q, tt.want)
		}
	}
}

func TestQuantityArithmeticHelpers(t *testing.T) {
	q := NewQuantityFromFloat64(-2.5)
	if !q.IsNegative() || q.IsPositive() || q.IsZero() {
		t.Error("sign predicates wrong for -2.5")
	}
	if q.Neg() != NewQuantityFromFloat64(2.5) {
		t.Errorf("Neg() = %s", q.Neg())
	}
	if q.Abs() != NewQuantityFromFloat64(2.5) {
		t.Errorf("Abs() = %s", q.Abs())
	}
}

func TestMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("19.99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "19.99" {
		t.Errorf("String() = %s", m.String())
	}

	if _, err := NewMoneyFromString("not money"); err == nil {
		t.Error("expected error for invalid input")
	}

	if !ZeroMoney().IsZero() {
		t.Error("ZeroMoney should be zero")
	}
}
