package postgres

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stokado/internal/core/sequence"
)

// memorySequenceStore mimics the sys_sequences upsert: every QueryRow
// atomically bumps the counter for the key and returns the new value.
type memorySequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemorySequenceStore() *memorySequenceStore {
	return &memorySequenceStore{counters: map[string]int64{}}
}

func (s *memorySequenceStore) GetQuerier(ctx context.Context) Querier {
	return s
}

func (s *memorySequenceStore) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	// Only SetNext uses Exec; it pins the counter to an absolute value.
	s.mu.Lock()
	s.counters[args[0].(string)] = args[1].(int64)
	s.mu.Unlock()
	return pgconn.CommandTag{}, nil
}

func (s *memorySequenceStore) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (s *memorySequenceStore) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	key := args[0].(string)
	delta := int64(1)
	if len(args) > 1 {
		delta = args[1].(int64)
	}

	s.mu.Lock()
	s.counters[key] += delta
	val := s.counters[key]
	s.mu.Unlock()
	return seqRow{val: val}
}

type seqRow struct {
	val int64
}

func (r seqRow) Scan(dest ...any) error {
	*dest[0].(*int64) = r.val
	return nil
}

func TestNext_ConcurrentStrict(t *testing.T) {
	store := newMemorySequenceStore()
	gen := NewSequenceGenerator(store)

	cfg := sequence.DefaultConfig("MV")
	period := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	const workers = 8
	const perWorker = 25

	results := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				number, err := gen.Next(context.Background(), cfg, sequence.DefaultOptions(), period)
				if err != nil {
					t.Errorf("next: %v", err)
					return
				}
				results <- number
			}
		}()
	}
	wg.Wait()
	close(results)

	// The full range must come back contiguous and duplicate-free.
	var nums []int64
	for number := range results {
		n := sequence.ParseNumber(number)
		if n < 0 {
			t.Fatalf("unparseable number %q", number)
		}
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	if len(nums) != workers*perWorker {
		t.Fatalf("got %d numbers, want %d", len(nums), workers*perWorker)
	}
	for i, n := range nums {
		if n != int64(i+1) {
			t.Fatalf("nums[%d] = %d, want %d (gap or duplicate)", i, n, i+1)
		}
	}
}

func TestNext_CachedRangesDoNotOverlap(t *testing.T) {
	store := newMemorySequenceStore()
	// Two generators over one store model two app instances sharing a
	// database.
	genA := NewSequenceGenerator(store)
	genB := NewSequenceGenerator(store)

	cfg := sequence.DefaultConfig("PO")
	opts := &sequence.Options{Strategy: sequence.StrategyCached, RangeSize: 10}
	period := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		for _, gen := range []*SequenceGenerator{genA, genB} {
			number, err := gen.Next(context.Background(), cfg, opts, period)
			if err != nil {
				t.Fatalf("next: %v", err)
			}
			if seen[number] {
				t.Fatalf("duplicate number %q across instances", number)
			}
			seen[number] = true
		}
	}
}

func TestSetNext_OverridesCounter(t *testing.T) {
	store := newMemorySequenceStore()
	gen := NewSequenceGenerator(store)

	cfg := sequence.DefaultConfig("GRN")
	period := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	if err := gen.SetNext(context.Background(), cfg, period, 100); err != nil {
		t.Fatalf("set next: %v", err)
	}

	number, err := gen.Next(context.Background(), cfg, sequence.DefaultOptions(), period)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := sequence.ParseNumber(number); got != 100 {
		t.Errorf("number = %d, want 100", got)
	}
}
