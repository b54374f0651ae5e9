// Package token wraps the external fungible-token service named in
// spec.md §1/§4.2: a synchronous transfer(from, to, amount) plus
// balance(addr). Every payout moves tokens first and updates state
// second; a transfer failure must unwind any in-memory updates already
// made, which here means the engine must not have committed its store
// Txn yet — Transfer is always called before a mutator's Txn.Commit.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/grainlify/escrow-engine/internal/amount"
)

// Adapter is the token-service contract.
type Adapter interface {
	Transfer(ctx context.Context, from, to string, amt amount.Amount) error
	Balance(ctx context.Context, addr string) (amount.Amount, error)
}

// InMemory is a deterministic Adapter backed by an in-process ledger of
// balances, used by default and by every package's tests — the Go
// equivalent of the Soroban test harness's mock token contract.
type InMemory struct {
	mu       sync.Mutex
	balances map[string]amount.Amount
	// FailNext, when > 0, makes the next N Transfer calls fail, used to
	// exercise the circuit breaker's retry/trip behavior (C5) without a
	// real network dependency.
	FailNext int
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[string]amount.Amount)}
}

// Fund credits addr with amt without going through Transfer, for test
// setup (simulating a depositor who already holds funds off-contract).
func (m *InMemory) Fund(addr string, amt amount.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.balances[addr]
	sum, err := amount.Add(cur, amt)
	if err != nil {
		panic(err)
	}
	m.balances[addr] = sum
}

func (m *InMemory) Transfer(_ context.Context, from, to string, amt amount.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext > 0 {
		m.FailNext--
		return fmt.Errorf("token: transient transfer failure")
	}
	if amt.IsNegative() {
		return fmt.Errorf("token: negative transfer amount")
	}
	if amt.IsZero() {
		return nil
	}
	fromBal := m.balances[from]
	if amount.Cmp(fromBal, amt) < 0 {
		return fmt.Errorf("token: insufficient balance for %s", from)
	}
	newFrom, err := amount.Sub(fromBal, amt)
	if err != nil {
		return err
	}
	toBal := m.balances[to]
	newTo, err := amount.Add(toBal, amt)
	if err != nil {
		return err
	}
	m.balances[from] = newFrom
	m.balances[to] = newTo
	return nil
}

func (m *InMemory) Balance(_ context.Context, addr string) (amount.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr], nil
}
