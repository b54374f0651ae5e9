// Package upgrade implements the upgrade controller (C13) of spec.md
// §4.13: admin-gated executable-hash swap that preserves all instance
// and persistent storage. There is no real WASM executable to swap in a
// native Go engine, so Upgrade here models the observable contract the
// spec actually tests (P11): the active hash changes, every other piece
// of state — entries, indexes, aggregates, admin identity — is
// untouched, and rollback (upgrading back to a prior hash) restores the
// same observable state.
package upgrade

import (
	"context"
	"sync"

	"github.com/grainlify/escrow-engine/internal/cerr"
	"github.com/grainlify/escrow-engine/internal/ledger"
)

// Controller tracks the currently active executable hash for one
// contract and the full history of hashes it has ever run, so a
// "rollback" is just Upgrade to a hash already seen (spec.md §4.13:
// "hashes already present on the runtime do not need re-upload").
type Controller struct {
	rt *ledger.Runtime

	mu      sync.Mutex
	admin   string
	active  string
	history []string
	seen    map[string]bool
}

func New(rt *ledger.Runtime, admin, initialHash string) *Controller {
	c := &Controller{rt: rt, admin: admin, active: initialHash, seen: map[string]bool{initialHash: true}}
	c.history = append(c.history, initialHash)
	return c
}

// Upgrade swaps the active hash; admin auth required. The new
// executable's constructor is never invoked (there is none here) and no
// other state is touched — callers keep using the same Engine instance,
// which is the entire point: storage keys continue to decode unchanged.
func (c *Controller) Upgrade(ctx context.Context, newHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.rt.RequireAuth(ctx, c.admin); err != nil {
		return err
	}
	if newHash == "" {
		return cerr.New(cerr.InvalidAmount)
	}
	c.active = newHash
	if !c.seen[newHash] {
		c.seen[newHash] = true
		c.history = append(c.history, newHash)
	}
	c.rt.Emit("upgrade", map[string]any{"version": 2, "new_hash": newHash})
	return nil
}

// ActiveHash returns the currently active executable hash.
func (c *Controller) ActiveHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// History returns every hash this contract has ever run, in first-seen
// order — useful for asserting P11's rollback-equivalence in tests.
func (c *Controller) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}
