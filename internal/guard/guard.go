// Package guard implements the reentrancy lock (C3) and the three
// independent pause flags (C4) of spec.md §4.3/§4.4. Both are held in
// memory by each engine instance and are not written to the store;
// Upgrade leaves the engine instances, and so these values, untouched.
package guard

import (
	"sync"

	"github.com/grainlify/escrow-engine/internal/cerr"
)

// Reentrancy is a single process-wide boolean. Every mutator calls Enter
// on the way in and Exit on every normal exit path; a panicking mutator
// relies on the caller recovering and calling Exit in the defer the way
// bounty/program's public methods are written.
type Reentrancy struct {
	mu      sync.Mutex
	entered bool
}

func NewReentrancy() *Reentrancy { return &Reentrancy{} }

// Enter fails with cerr.Reentrancy if a mutator is already in flight.
func (r *Reentrancy) Enter() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entered {
		return cerr.New(cerr.Reentrancy)
	}
	r.entered = true
	return nil
}

// Exit clears the guard. Safe to call even if Enter was never called
// successfully (idempotent), so deferred cleanup never itself panics.
func (r *Reentrancy) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entered = false
}

// Flags holds the three independent pause booleans of spec.md §4.4.
type Flags struct {
	mu      sync.RWMutex
	Lock    bool
	Release bool
	Refund  bool
}

func NewFlags() *Flags { return &Flags{} }

// Get returns a snapshot of the three flags.
func (f *Flags) Get() (lock, release, refund bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Lock, f.Release, f.Refund
}

// Set applies only the provided (non-nil) fields, per spec.md §4.4's
// "admin setter accepts three optional booleans and applies only
// provided fields".
func (f *Flags) Set(lock, release, refund *bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lock != nil {
		f.Lock = *lock
	}
	if release != nil {
		f.Release = *release
	}
	if refund != nil {
		f.Refund = *refund
	}
}

// CheckLock/CheckRelease/CheckRefund fail with cerr.Paused when their
// own flag is set. Entry points check only their own flag; they never
// cross-check another flag (spec.md §4.4).
func (f *Flags) CheckLock() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Lock {
		return cerr.New(cerr.Paused)
	}
	return nil
}

func (f *Flags) CheckRelease() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Release {
		return cerr.New(cerr.Paused)
	}
	return nil
}

func (f *Flags) CheckRefund() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Refund {
		return cerr.New(cerr.Paused)
	}
	return nil
}
