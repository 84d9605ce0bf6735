package sequence

import (
	"testing"
	"time"
)

var aug = time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	cfg := DefaultConfig("MV")

	got := cfg.Format(aug, 42)
	if got != "MV-2508-00042" {
		t.Errorf("Format() = %s, want MV-2508-00042", got)
	}

	wide := Config{Prefix: "GRN", PadWidth: 7}
	if got := wide.Format(aug, 3); got != "GRN-2508-0000003" {
		t.Errorf("Format() = %s, want GRN-2508-0000003", got)
	}

	// Zero pad width falls back to 5.
	bare := Config{Prefix: "PO"}
	if got := bare.Format(aug, 1); got != "PO-2508-00001" {
		t.Errorf("Format() = %s, want PO-2508-00001", got)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		reset string
		want  string
	}{
		{"never", "MV"},
		{"year", "MV_2025"},
		{"month", "MV_2025_08"},
	}

	for _, tt := range tests {
		cfg := Config{Prefix: "MV", ResetPeriod: tt.reset}
		if got := cfg.Key(aug); got != tt.want {
			t.Errorf("Key(%s) = %s, want %s", tt.reset, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"MV-2508-00042", 42},
		{"GRN-2508-0000003", 3},
		{"PO-2508-00001", 1},
		{"garbage", -1},
		{"", -1},
	}

	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	cfg := DefaultConfig("MV")
	formatted := cfg.Format(aug, 99881)
	if got := ParseNumber(formatted); got != 99881 {
		t.Errorf("round trip lost value: %s -> %d", formatted, got)
	}
}
