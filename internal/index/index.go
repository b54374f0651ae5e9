// Package index implements the secondary indexes and aggregate counters
// (C11) of spec.md §3/§4.11, shared by internal/bounty and
// internal/program: "secondary indexes are kept in lockstep with
// primary; do not reconstruct from scans on the hot path" (§9).
package index

import (
	"sync"

	"github.com/grainlify/escrow-engine/internal/amount"
)

// OrderedSet is an append/remove list that preserves insertion order,
// the backing for by_status/by_depositor indexes. Pagination over it is
// O(offset), allowed by spec.md §9.
type OrderedSet[T comparable] struct {
	mu    sync.RWMutex
	items []T
	pos   map[T]int
}

func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{pos: make(map[T]int)}
}

// Add appends id if not already present.
func (s *OrderedSet[T]) Add(id T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pos[id]; ok {
		return
	}
	s.pos[id] = len(s.items)
	s.items = append(s.items, id)
}

// Remove deletes id, preserving relative order of the rest.
func (s *OrderedSet[T]) Remove(id T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.pos[id]
	if !ok {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.pos, id)
	for j := i; j < len(s.items); j++ {
		s.pos[s.items[j]] = j
	}
}

// Len returns the number of entries.
func (s *OrderedSet[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Page returns items[offset:offset+limit] in stable insertion order.
// Concatenating consecutive pages with no intervening mutation equals
// one larger page (P10).
func (s *OrderedSet[T]) Page(offset, limit int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 || offset >= len(s.items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(s.items) {
		end = len(s.items)
	}
	out := make([]T, end-offset)
	copy(out, s.items[offset:end])
	return out
}

// All returns every item, in insertion order.
func (s *OrderedSet[T]) All() []T {
	return s.Page(0, 0)
}

// Aggregates tracks running counts and totals per named status, keeping
// the invariants of spec.md §3 ("count_locked + count_released +
// count_refunded = |entries|"; "total_locked + total_released +
// total_refunded = sum amount_at_lock_time") by construction: every
// state transition goes through Move, which atomically debits the old
// bucket and credits the new one.
type Aggregates struct {
	mu     sync.Mutex
	counts map[string]uint64
	totals map[string]amount.Amount
}

func NewAggregates() *Aggregates {
	return &Aggregates{counts: make(map[string]uint64), totals: make(map[string]amount.Amount)}
}

// Open records a brand-new entry landing in status with amt (e.g. the
// initial Locked state created by lock_funds).
func (a *Aggregates) Open(status string, amt amount.Amount) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[status]++
	sum, err := amount.Add(a.totals[status], amt)
	if err != nil {
		return err
	}
	a.totals[status] = sum
	return nil
}

// Move transitions amt from oldStatus to newStatus, decrementing the old
// bucket's count/total and incrementing the new one's.
func (a *Aggregates) Move(oldStatus, newStatus string, amt amount.Amount) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts[oldStatus] == 0 {
		return errNoEntry
	}
	newOldTotal, err := amount.Sub(a.totals[oldStatus], amt)
	if err != nil {
		return err
	}
	newNewTotal, err := amount.Add(a.totals[newStatus], amt)
	if err != nil {
		return err
	}
	a.counts[oldStatus]--
	a.counts[newStatus]++
	a.totals[oldStatus] = newOldTotal
	a.totals[newStatus] = newNewTotal
	return nil
}

// AdjustAmount changes the amount attributed to status without moving
// the count (e.g. partial_release reduces remaining Locked total but
// the entry stays Locked).
func (a *Aggregates) AdjustAmount(status string, delta amount.Amount) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	sum, err := amount.Sub(a.totals[status], delta)
	if err != nil {
		return err
	}
	a.totals[status] = sum
	return nil
}

// Count returns the current count for status.
func (a *Aggregates) Count(status string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[status]
}

// Total returns the current total for status.
func (a *Aggregates) Total(status string) amount.Amount {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals[status]
}

// Snapshot returns a copy of all counts/totals, for read-only queries
// and for the invariant checker.
func (a *Aggregates) Snapshot() (counts map[string]uint64, totals map[string]amount.Amount) {
	a.mu.Lock()
	defer a.mu.Unlock()
	counts = make(map[string]uint64, len(a.counts))
	totals = make(map[string]amount.Amount, len(a.totals))
	for k, v := range a.counts {
		counts[k] = v
	}
	for k, v := range a.totals {
		totals[k] = v
	}
	return counts, totals
}

type aggregatesError string

func (e aggregatesError) Error() string { return string(e) }

const errNoEntry = aggregatesError("index: no entry in source bucket")
