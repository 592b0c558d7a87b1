// Package numbering issues sequential, collision-free document numbers
// scoped by (prefix, year).
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrAllocationConflict indicates transient counter contention. Callers may
// retry immediately.
var ErrAllocationConflict = errors.New("numbering: allocation conflict")

// ErrInvalidSeries indicates a malformed prefix or year.
var ErrInvalidSeries = errors.New("numbering: invalid series")

// Store persists the per-(prefix, year) counters.
type Store interface {
	// NextSequence atomically increments and returns the counter for the
	// series, initialising it to 1 when absent.
	NextSequence(ctx context.Context, prefix string, year int) (int64, error)
}

// Allocator formats document numbers as <prefix>-<year>-<NNNNN>.
type Allocator struct {
	store Store
}

// NewAllocator builds an Allocator.
func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store}
}

// Allocate returns the next number in the series, e.g. SO-2025-00001.
func (a *Allocator) Allocate(ctx context.Context, prefix string, year int) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" || year <= 0 {
		return "", ErrInvalidSeries
	}
	seq, err := a.store.NextSequence(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("numbering: next sequence %s-%d: %w", prefix, year, err)
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq), nil
}
