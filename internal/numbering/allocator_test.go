package numbering

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counters: make(map[string]int64)}
}

func (s *memoryStore) NextSequence(ctx context.Context, prefix string, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%d", prefix, year)
	s.counters[key]++
	return s.counters[key], nil
}

func TestAllocateFirstAndSecond(t *testing.T) {
	alloc := NewAllocator(newMemoryStore())
	ctx := context.Background()

	num, err := alloc.Allocate(ctx, "INV", 2025)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-00001", num)

	num, err = alloc.Allocate(ctx, "INV", 2025)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-00002", num)
}

func TestAllocateSeriesAreIndependent(t *testing.T) {
	alloc := NewAllocator(newMemoryStore())
	ctx := context.Background()

	so, err := alloc.Allocate(ctx, "SO", 2025)
	require.NoError(t, err)
	require.Equal(t, "SO-2025-00001", so)

	inv, err := alloc.Allocate(ctx, "INV", 2025)
	require.NoError(t, err)
	require.Equal(t, "INV-2025-00001", inv)

	prev, err := alloc.Allocate(ctx, "SO", 2024)
	require.NoError(t, err)
	require.Equal(t, "SO-2024-00001", prev)
}

func TestAllocateRejectsInvalidSeries(t *testing.T) {
	alloc := NewAllocator(newMemoryStore())
	ctx := context.Background()

	_, err := alloc.Allocate(ctx, "", 2025)
	require.ErrorIs(t, err, ErrInvalidSeries)

	_, err = alloc.Allocate(ctx, "SO", 0)
	require.ErrorIs(t, err, ErrInvalidSeries)
}

func TestAllocateNormalisesPrefix(t *testing.T) {
	alloc := NewAllocator(newMemoryStore())

	num, err := alloc.Allocate(context.Background(), " so ", 2025)
	require.NoError(t, err)
	require.Equal(t, "SO-2025-00001", num)
}

func TestAllocateConcurrentUniqueNoGaps(t *testing.T) {
	alloc := NewAllocator(newMemoryStore())
	ctx := context.Background()

	const n = 64
	results := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := alloc.Allocate(ctx, "SO", 2025)
			if err != nil {
				errs <- err
				return
			}
			results <- num
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[string]bool, n)
	for num := range results {
		require.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		require.True(t, seen[fmt.Sprintf("SO-2025-%05d", i)], "missing sequence %d", i)
	}
}
