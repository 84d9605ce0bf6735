// Package sequence provides domain contracts for document auto-numbering.
// Implementations live in the infrastructure layer.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPSERT ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	// Used for all ledger documents (movements, GRNs, POs).
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if the application restarts.
	// Suitable for low-value families (drafts, internal references).
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of IDs to allocate at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Config holds numbering configuration for one document family.
type Config struct {
	// Prefix added to all numbers (e.g., "MV", "PO", "GRN")
	Prefix string

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never".
	// The counter key includes the period only when resetting; the
	// year/month segment in the formatted number is cosmetic otherwise.
	ResetPeriod string
}

// DefaultConfig returns the standard policy: a single ever-increasing
// counter per family with a cosmetic YYMM segment (MV-2508-00042).
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		PadWidth:    5,
		ResetPeriod: "never",
	}
}

// Key returns the counter key for the given period.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", c.Prefix, period.Format("2006"))
	default:
		return c.Prefix
	}
}

// Format renders the final document number.
func (c Config) Format(period time.Time, num int64) string {
	padWidth := c.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.Format("0601"), padWidth, num)
}

// Generator generates sequential document numbers.
// This is the domain contract - implementations live in infrastructure.
type Generator interface {
	// Next generates the next document number for the family.
	// Pattern: PREFIX-YYMM-XXXXX (e.g., MV-2508-00042).
	//
	// Guarantee: no two calls for the same family ever return the same
	// number, even under concurrent callers.
	Next(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNext sets the next counter value (for migration purposes).
	SetNext(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// ParseNumber extracts the numeric part from a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	idx := strings.LastIndexByte(formatted, '-')
	if idx < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return num
}
