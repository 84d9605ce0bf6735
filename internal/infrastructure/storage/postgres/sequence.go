package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stokado/internal/core/sequence"
)

// Compile-time check that SequenceGenerator implements the domain contract.
var _ sequence.Generator = (*SequenceGenerator)(nil)

type cachedRange struct {
	current int64
	max     int64
}

// SequenceGenerator issues document numbers from the sys_sequences table.
//
// Strict strategy does one UPSERT ... RETURNING per number, so counters
// survive restarts and concurrent callers never collide: the row update
// serializes them. Cached strategy reserves ranges in memory and may
// leave gaps after a restart.
type SequenceGenerator struct {
	querier QuerierSource

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// QuerierSource yields the querier bound to the current transaction scope.
// Satisfied by TxManager.
type QuerierSource interface {
	GetQuerier(ctx context.Context) Querier
}

// NewSequenceGenerator creates a sequence generator.
func NewSequenceGenerator(querier QuerierSource) *SequenceGenerator {
	return &SequenceGenerator{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// Next generates the next number for the family.
func (s *SequenceGenerator) Next(ctx context.Context, cfg sequence.Config, opts *sequence.Options, period time.Time) (string, error) {
	if opts == nil {
		opts = sequence.DefaultOptions()
	}

	key := cfg.Key(period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case sequence.StrategyCached:
		num, err = s.nextCached(ctx, key, opts)
	default:
		num, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return cfg.Format(period, num), nil
}

// nextStrict fetches the next number from the database with a single
// UPSERT + RETURNING.
func (s *SequenceGenerator) nextStrict(ctx context.Context, key string) (int64, error) {
	q := s.querier.GetQuerier(ctx)

	var num int64
	err := q.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next sequence value: %w", err)
	}
	return num, nil
}

// nextCached serves numbers from an in-memory range, reserving a new one
// from the database when exhausted.
func (s *SequenceGenerator) nextCached(ctx context.Context, key string, opts *sequence.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		q := s.querier.GetQuerier(ctx)
		var newMax int64
		// current_val tracks the last handed-out number, so bumping by
		// size reserves (newMax-size, newMax].
		err := q.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve sequence range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNext sets the counter so the next issued number is value.
func (s *SequenceGenerator) SetNext(ctx context.Context, cfg sequence.Config, period time.Time, value int64) error {
	key := cfg.Key(period)
	q := s.querier.GetQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
	`, key, value-1)
	if err != nil {
		return fmt.Errorf("set sequence value: %w", err)
	}

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()
	return nil
}
