// Package store implements the "key/value store with instance-scope and
// persistent-scope entries" spec.md §1/§4.1 names as an external
// collaborator contract. Keys are tagged sum types built by the
// key-builder functions below (Program, Bounty, ReleaseSchedule, ...);
// writers stage their primary + index updates in a Txn and Commit it
// once, so a failure before the final return leaves nothing persisted —
// the "all-or-nothing" requirement of §4.1.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/grainlify/escrow-engine/internal/codec"
	"github.com/stellar/go/xdr"
)

// Scope distinguishes the small, hot, per-contract singletons from the
// bulk of per-entry persistent data (spec.md §4.1).
type Scope uint8

const (
	Instance Scope = iota
	Persistent
)

func (s Scope) String() string {
	if s == Instance {
		return "instance"
	}
	return "persistent"
}

// Key is a tagged key, built by the helpers below. Two keys with the
// same Scope+Namespace+Parts compare equal and collide in storage.
type Key struct {
	Scope     Scope
	Namespace string
	Parts     []string
}

func (k Key) String() string {
	return k.Scope.String() + "/" + k.Namespace + "/" + strings.Join(k.Parts, "/")
}

// Key constructors — one per DataKey variant named in spec.md §4.1.

func ProgramKey(programID string) Key {
	return Key{Scope: Persistent, Namespace: "Program", Parts: []string{programID}}
}

func BountyKey(bountyID uint64) Key {
	return Key{Scope: Persistent, Namespace: "Bounty", Parts: []string{fmt.Sprint(bountyID)}}
}

func ReleaseScheduleKey(programID string, scheduleID uint64) Key {
	return Key{Scope: Persistent, Namespace: "ReleaseSchedule", Parts: []string{programID, fmt.Sprint(scheduleID)}}
}

func ReleaseHistoryKey(programID string) Key {
	return Key{Scope: Persistent, Namespace: "ReleaseHistory", Parts: []string{programID}}
}

func NextScheduleIDKey(programID string) Key {
	return Key{Scope: Instance, Namespace: "NextScheduleId", Parts: []string{programID}}
}

func MultisigConfigKey(programID string) Key {
	return Key{Scope: Persistent, Namespace: "MultisigConfig", Parts: []string{programID}}
}

func PayoutApprovalKey(programID, recipient string) Key {
	return Key{Scope: Persistent, Namespace: "PayoutApproval", Parts: []string{programID, recipient}}
}

func PendingClaimKey(bountyID uint64) Key {
	return Key{Scope: Persistent, Namespace: "PendingClaim", Parts: []string{fmt.Sprint(bountyID)}}
}

func StatusIndexKey(status string) Key {
	return Key{Scope: Persistent, Namespace: "StatusIndex", Parts: []string{status}}
}

func DepositorIndexKey(addr string) Key {
	return Key{Scope: Persistent, Namespace: "DepositorIndex", Parts: []string{addr}}
}

func ProgramIndexKey() Key {
	return Key{Scope: Instance, Namespace: "ProgramIndex"}
}

func AggregateKey(scope string) Key {
	return Key{Scope: Instance, Namespace: "Aggregate", Parts: []string{scope}}
}

func SingletonKey(name string) Key {
	return Key{Scope: Instance, Namespace: name}
}

// Store is the KV contract the engines are built against.
type Store interface {
	Get(ctx context.Context, k Key) (xdr.ScVal, bool, error)
	Has(ctx context.Context, k Key) (bool, error)
	// Scan returns every value stored under keys whose Namespace matches
	// ns and whose Parts are prefixed by prefix, in insertion order —
	// the primitive Scan/pagination (C11) is built on.
	Scan(ctx context.Context, ns string, prefix ...string) ([]xdr.ScVal, error)
	// NewTxn begins a batch of writes that commit all-or-nothing.
	NewTxn() *Txn
	// Commit applies a Txn's staged writes atomically.
	Commit(ctx context.Context, txn *Txn) error
}

// Txn stages writes (and deletes) for one logical mutator invocation.
// Nothing in txn is visible to Get/Scan until Commit succeeds.
type Txn struct {
	writes  []write
	deletes []Key
	seq     int
}

type write struct {
	key Key
	val xdr.ScVal
	seq int
}

// Put stages a write of val at k.
func (t *Txn) Put(k Key, val xdr.ScVal) *Txn {
	t.seq++
	t.writes = append(t.writes, write{key: k, val: val, seq: t.seq})
	return t
}

// Delete stages removal of k.
func (t *Txn) Delete(k Key) *Txn {
	t.deletes = append(t.deletes, k)
	return t
}

// Memory is an in-process Store, used as the default runtime backing and
// in every package's unit tests. It is the Instance-scope store for
// every deployment (instance data is meant to live hot in memory); see
// Postgres for a durable Persistent scope.
type Memory struct {
	mu   sync.RWMutex
	data map[string]entry
	// order preserves insertion order per namespace for stable-order
	// Scan results, matching §4.11's "stable insertion order" pagination
	// requirement.
	order map[string][]string
}

type entry struct {
	val   xdr.ScVal
	parts []string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]entry), order: make(map[string][]string)}
}

func (m *Memory) Get(_ context.Context, k Key) (xdr.ScVal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[k.String()]
	if !ok {
		return xdr.ScVal{}, false, nil
	}
	return e.val, true, nil
}

func (m *Memory) Has(ctx context.Context, k Key) (bool, error) {
	_, ok, err := m.Get(ctx, k)
	return ok, err
}

func (m *Memory) Scan(_ context.Context, ns string, prefix ...string) ([]xdr.ScVal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []xdr.ScVal
	for _, ks := range m.order[ns] {
		e, ok := m.data[ks]
		if !ok {
			continue
		}
		if partsHavePrefix(e.parts, prefix) {
			out = append(out, e.val)
		}
	}
	return out, nil
}

func partsHavePrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i, p := range prefix {
		if parts[i] != p {
			return false
		}
	}
	return true
}

func (m *Memory) NewTxn() *Txn { return &Txn{} }

func (m *Memory) Commit(_ context.Context, txn *Txn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range txn.deletes {
		ks := d.String()
		delete(m.data, ks)
		m.removeOrder(d.Namespace, ks)
	}
	for _, w := range txn.writes {
		ks := w.key.String()
		if _, existed := m.data[ks]; !existed {
			m.order[w.key.Namespace] = append(m.order[w.key.Namespace], ks)
		}
		m.data[ks] = entry{val: w.val, parts: w.key.Parts}
	}
	return nil
}

func (m *Memory) removeOrder(ns, ks string) {
	lst := m.order[ns]
	for i, e := range lst {
		if e == ks {
			m.order[ns] = append(lst[:i], lst[i+1:]...)
			return
		}
	}
}

// MustMarshal/MustUnmarshal are convenience wrappers for callers that
// already validated their struct encoding and don't want to thread a
// codec error through every call site; used only for in-memory byte
// round-tripping sanity checks in tests, not production control flow.
func MustMarshal(v xdr.ScVal) []byte {
	b, err := codec.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
