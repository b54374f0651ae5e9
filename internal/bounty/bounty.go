// Package bounty implements BountyEscrow (C9) of spec.md §4.9: a
// per-bounty, one depositor -> one contributor lifecycle with deadlines,
// partial release, claim windows and partial-refund approvals. It wires
// the guard stack (C3/C4), the fee engine (C7), the store (C1) and the
// shared index/aggregate package (C11) the way the original
// contracts/bounty-escrow/src/lib.rs composes its own policy modules.
package bounty

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/cerr"
	"github.com/grainlify/escrow-engine/internal/codec"
	"github.com/grainlify/escrow-engine/internal/fee"
	"github.com/grainlify/escrow-engine/internal/guard"
	"github.com/grainlify/escrow-engine/internal/index"
	"github.com/grainlify/escrow-engine/internal/ledger"
	"github.com/grainlify/escrow-engine/internal/store"
	"github.com/grainlify/escrow-engine/internal/token"
)

// Status is the tagged EscrowStatus sum type of spec.md §9.
type Status string

const (
	Locked            Status = "Locked"
	Released          Status = "Released"
	Refunded          Status = "Refunded"
	PartiallyRefunded Status = "PartiallyRefunded"
)

// RefundMode distinguishes a partial-refund approval from a full one.
type RefundMode string

const (
	RefundPartial RefundMode = "Partial"
	RefundFull    RefundMode = "Full"
)

// PendingClaim is the {recipient, amount, expires_at} record set by
// authorize_claim; repeated calls overwrite it (spec.md §4.9, last
// writer wins — Open Question resolved in spec.md §9).
type PendingClaim struct {
	Recipient string
	Amount    amount.Amount
	ExpiresAt uint64
}

// RefundApproval is the approval enabling refund() before deadline.
type RefundApproval struct {
	Mode   RefundMode
	Amount amount.Amount
	To     string
}

// Entry is BountyEntry of spec.md §3.
type Entry struct {
	BountyID        uint64
	Depositor       string
	Amount          amount.Amount
	RemainingAmount amount.Amount
	Deadline        uint64
	Status          Status
	PendingClaim    *PendingClaim
	RefundApproval  *RefundApproval
}

// FeeConfig mirrors the program-side shape but is scoped to the bounty
// engine alone (spec.md §3 FeeConfig is process-wide "on the Program
// side"; BountyEscrow carries its own instance so update_fee_config/
// get_fee_config (§6) have somewhere to live for the bounty entry points).
type FeeConfig = fee.Config

// Engine is one deployed BountyEscrow contract instance.
type Engine struct {
	rt    *ledger.Runtime
	st    store.Store
	tok   token.Adapter
	reent *guard.Reentrancy
	flags *guard.Flags
	feeEn *fee.Engine

	mu          sync.RWMutex
	initialized bool
	admin       string
	claimWindow uint64
	metadata    string

	entries map[uint64]*Entry

	byStatus    map[Status]*index.OrderedSet[uint64]
	byDepositor map[string]*index.OrderedSet[uint64]
	aggregates  *index.Aggregates
}

const defaultClaimWindow = 86400 // 24h, spec.md leaves the exact default unspecified; original_source uses one day

// New constructs an un-initialized Engine; call Init before use.
func New(rt *ledger.Runtime, st store.Store, tok token.Adapter) *Engine {
	return &Engine{
		rt:          rt,
		st:          st,
		tok:         tok,
		reent:       guard.NewReentrancy(),
		flags:       guard.NewFlags(),
		feeEn:       must(fee.New(fee.Config{})),
		claimWindow: defaultClaimWindow,
		entries:     make(map[uint64]*Entry),
		byStatus: map[Status]*index.OrderedSet[uint64]{
			Locked: index.NewOrderedSet[uint64](), Released: index.NewOrderedSet[uint64](),
			Refunded: index.NewOrderedSet[uint64](), PartiallyRefunded: index.NewOrderedSet[uint64](),
		},
		byDepositor: make(map[string]*index.OrderedSet[uint64]),
		aggregates:  index.NewAggregates(),
	}
}

func must(e *fee.Engine, err error) *fee.Engine {
	if err != nil {
		panic(err)
	}
	return e
}

// Init sets the admin and token address once; a second call fails
// AlreadyInitialized.
func (e *Engine) Init(ctx context.Context, admin, tokenAddress string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return cerr.New(cerr.AlreadyInitialized)
	}
	e.initialized = true
	e.admin = admin
	e.rt.Emit("init", map[string]any{"version": 2, "admin": admin, "token": tokenAddress})
	return nil
}

func (e *Engine) requireInit() error {
	if !e.initialized {
		return cerr.New(cerr.NotInitialized)
	}
	return nil
}

// stageEntry stages an entry's canonical record into txn; callers pass
// the already-open txn and commit it. Index and aggregate updates are
// held in memory and are not part of txn.
func (e *Engine) stageEntry(txn *store.Txn, en *Entry) {
	fields := []codec.Field{
		{Key: "bounty_id", Val: codec.Uint64(en.BountyID)},
		{Key: "depositor", Val: codec.String(en.Depositor)},
		{Key: "amount", Val: codec.String(en.Amount.String())},
		{Key: "remaining_amount", Val: codec.String(en.RemainingAmount.String())},
		{Key: "deadline", Val: codec.Uint64(en.Deadline)},
		{Key: "status", Val: codec.Symbol(string(en.Status))},
	}
	txn.Put(store.BountyKey(en.BountyID), codec.Struct(fields...))
}

func (e *Engine) moveStatus(old, new_ Status, id uint64, amt amount.Amount) error {
	e.byStatus[old].Remove(id)
	e.byStatus[new_].Add(id)
	return e.aggregates.Move(statusBucket(old), statusBucket(new_), amt)
}

func statusBucket(s Status) string {
	switch s {
	case Locked:
		return "locked"
	case Released:
		return "released"
	case Refunded:
		return "refunded"
	case PartiallyRefunded:
		return "partially_refunded"
	}
	return "unknown"
}

// LockFunds creates a new Locked entry, per spec.md §4.9. amount==0 is a
// valid edge case.
func (e *Engine) LockFunds(ctx context.Context, depositor string, bountyID uint64, amt amount.Amount, deadline uint64) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.flags.CheckLock(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, depositor); err != nil {
		return err
	}
	if amt.IsNegative() {
		return cerr.New(cerr.InvalidAmount)
	}
	if _, exists := e.entries[bountyID]; exists {
		return cerr.New(cerr.AlreadyExists)
	}

	if err := e.tok.Transfer(ctx, depositor, e.rt.Contract, amt); err != nil {
		return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
	}

	en := &Entry{
		BountyID: bountyID, Depositor: depositor, Amount: amt, RemainingAmount: amt,
		Deadline: deadline, Status: Locked,
	}
	e.entries[bountyID] = en
	e.byStatus[Locked].Add(bountyID)
	if e.byDepositor[depositor] == nil {
		e.byDepositor[depositor] = index.NewOrderedSet[uint64]()
	}
	e.byDepositor[depositor].Add(bountyID)
	if err := e.aggregates.Open(statusBucket(Locked), amt); err != nil {
		return err
	}

	txn := e.st.NewTxn()
	e.stageEntry(txn, en)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("bounty: commit lock_funds: %w", err)
	}

	e.rt.Emit("locked", map[string]any{"version": 2, "bounty_id": bountyID, "depositor": depositor, "amount": amt.String(), "deadline": deadline})
	return nil
}

func (e *Engine) get(bountyID uint64) (*Entry, error) {
	en, ok := e.entries[bountyID]
	if !ok {
		return nil, cerr.New(cerr.NotFound)
	}
	return en, nil
}

// ReleaseFunds transfers the full remaining amount to contributor and
// sets Released; only valid from Locked.
func (e *Engine) ReleaseFunds(ctx context.Context, bountyID uint64, contributor string) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.flags.CheckRelease(); err != nil {
		return err
	}
	en, err := e.get(bountyID)
	if err != nil {
		return err
	}
	if en.Status != Locked {
		return cerr.New(cerr.FundsNotLocked)
	}

	amt := en.RemainingAmount
	if err := e.tok.Transfer(ctx, e.rt.Contract, contributor, amt); err != nil {
		return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
	}

	en.RemainingAmount = amount.Zero()
	en.Status = Released
	if err := e.moveStatus(Locked, Released, bountyID, amt); err != nil {
		return err
	}

	txn := e.st.NewTxn()
	e.stageEntry(txn, en)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("bounty: commit release_funds: %w", err)
	}

	e.rt.Emit("released", map[string]any{"version": 2, "bounty_id": bountyID, "contributor": contributor, "amount": amt.String()})
	return nil
}

// PartialRelease transfers amt (<= remaining) and keeps Locked.
func (e *Engine) PartialRelease(ctx context.Context, bountyID uint64, contributor string, amt amount.Amount) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.flags.CheckRelease(); err != nil {
		return err
	}
	en, err := e.get(bountyID)
	if err != nil {
		return err
	}
	if en.Status != Locked {
		return cerr.New(cerr.FundsNotLocked)
	}
	if amt.IsNegative() || amt.IsZero() {
		return cerr.New(cerr.InvalidAmount)
	}
	if amount.Cmp(amt, en.RemainingAmount) > 0 {
		return cerr.New(cerr.InsufficientBalance)
	}

	if err := e.tok.Transfer(ctx, e.rt.Contract, contributor, amt); err != nil {
		return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
	}

	newRemaining, err := amount.Sub(en.RemainingAmount, amt)
	if err != nil {
		return err
	}
	en.RemainingAmount = newRemaining
	if err := e.aggregates.AdjustAmount(statusBucket(Locked), amt); err != nil {
		return err
	}

	txn := e.st.NewTxn()
	e.stageEntry(txn, en)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("bounty: commit partial_release: %w", err)
	}

	e.rt.Emit("released", map[string]any{"version": 2, "bounty_id": bountyID, "contributor": contributor, "amount": amt.String(), "partial": true})
	return nil
}

// SetClaimWindow updates the claim window applied by future
// authorize_claim calls.
func (e *Engine) SetClaimWindow(ctx context.Context, seconds uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.claimWindow = seconds
	return nil
}

// AuthorizeClaim sets (and overwrites) the pending claim for bountyID.
func (e *Engine) AuthorizeClaim(ctx context.Context, bountyID uint64, claimant string) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	en, err := e.get(bountyID)
	if err != nil {
		return err
	}
	if en.Status != Locked {
		return cerr.New(cerr.FundsNotLocked)
	}

	en.PendingClaim = &PendingClaim{
		Recipient: claimant,
		Amount:    en.RemainingAmount,
		ExpiresAt: e.rt.Now() + e.claimWindow,
	}
	e.rt.Emit("claim_authorized", map[string]any{"version": 2, "bounty_id": bountyID, "claimant": claimant, "expires_at": en.PendingClaim.ExpiresAt})
	return nil
}

// Claim executes the pending claim atomically; a second Claim fails
// FundsNotLocked because the entry is no longer Locked.
func (e *Engine) Claim(ctx context.Context, bountyID uint64) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.flags.CheckRelease(); err != nil {
		return err
	}
	en, err := e.get(bountyID)
	if err != nil {
		return err
	}
	if en.Status != Locked {
		return cerr.New(cerr.FundsNotLocked)
	}
	if en.PendingClaim == nil {
		return cerr.New(cerr.NotFound)
	}
	if e.rt.Now() >= en.PendingClaim.ExpiresAt {
		return cerr.Wrap(cerr.DeadlineNotPassed, "claim window has expired")
	}

	claim := en.PendingClaim
	if err := e.tok.Transfer(ctx, e.rt.Contract, claim.Recipient, claim.Amount); err != nil {
		return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
	}

	en.RemainingAmount = amount.Zero()
	en.Status = Released
	en.PendingClaim = nil
	if err := e.moveStatus(Locked, Released, bountyID, claim.Amount); err != nil {
		return err
	}

	txn := e.st.NewTxn()
	e.stageEntry(txn, en)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("bounty: commit claim: %w", err)
	}

	e.rt.Emit("claimed", map[string]any{"version": 2, "bounty_id": bountyID, "recipient": claim.Recipient, "amount": claim.Amount.String()})
	return nil
}

// ApproveRefund records a refund approval, enabling refund before the
// deadline for the approved amount/recipient/mode.
func (e *Engine) ApproveRefund(ctx context.Context, bountyID uint64, amt amount.Amount, to string, mode RefundMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	en, err := e.get(bountyID)
	if err != nil {
		return err
	}
	if en.Status != Locked {
		return cerr.New(cerr.FundsNotLocked)
	}
	en.RefundApproval = &RefundApproval{Mode: mode, Amount: amt, To: to}
	return nil
}

// Refund transitions Locked->Refunded (or ->PartiallyRefunded for a
// Partial-mode approval) and PartiallyRefunded->Refunded on a later full
// refund. Permissible by anyone once now >= deadline, or before the
// deadline with a valid approval.
func (e *Engine) Refund(ctx context.Context, bountyID uint64) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.flags.CheckRefund(); err != nil {
		return err
	}
	en, err := e.get(bountyID)
	if err != nil {
		return err
	}

	now := e.rt.Now()
	deadlinePassed := now >= en.Deadline

	switch en.Status {
	case Locked:
		if deadlinePassed {
			amt := en.RemainingAmount
			if err := e.tok.Transfer(ctx, e.rt.Contract, en.Depositor, amt); err != nil {
				return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
			}
			en.RemainingAmount = amount.Zero()
			en.Status = Refunded
			en.RefundApproval = nil
			if err := e.moveStatus(Locked, Refunded, bountyID, amt); err != nil {
				return err
			}
			return e.finishRefund(ctx, en, amt)
		}
		if en.RefundApproval == nil {
			return cerr.New(cerr.DeadlineNotPassed)
		}
		appr := en.RefundApproval
		to := appr.To
		if to == "" {
			to = en.Depositor
		}
		if appr.Mode == RefundFull {
			amt := en.RemainingAmount
			if err := e.tok.Transfer(ctx, e.rt.Contract, to, amt); err != nil {
				return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
			}
			en.RemainingAmount = amount.Zero()
			en.Status = Refunded
			en.RefundApproval = nil
			if err := e.moveStatus(Locked, Refunded, bountyID, amt); err != nil {
				return err
			}
			return e.finishRefund(ctx, en, amt)
		}
		amt := appr.Amount
		if amount.Cmp(amt, en.RemainingAmount) > 0 {
			return cerr.New(cerr.InsufficientBalance)
		}
		if err := e.tok.Transfer(ctx, e.rt.Contract, to, amt); err != nil {
			return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
		}
		newRemaining, err := amount.Sub(en.RemainingAmount, amt)
		if err != nil {
			return err
		}
		en.RemainingAmount = newRemaining
		en.Status = PartiallyRefunded
		en.RefundApproval = nil
		if err := e.moveStatus(Locked, PartiallyRefunded, bountyID, amt); err != nil {
			return err
		}
		return e.finishRefund(ctx, en, amt)

	case PartiallyRefunded:
		if !deadlinePassed {
			return cerr.New(cerr.DeadlineNotPassed)
		}
		amt := en.RemainingAmount
		if !amt.IsZero() {
			if err := e.tok.Transfer(ctx, e.rt.Contract, en.Depositor, amt); err != nil {
				return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
			}
		}
		en.RemainingAmount = amount.Zero()
		en.Status = Refunded
		if err := e.moveStatus(PartiallyRefunded, Refunded, bountyID, amt); err != nil {
			return err
		}
		return e.finishRefund(ctx, en, amt)

	default:
		return cerr.New(cerr.FundsNotLocked)
	}
}

func (e *Engine) finishRefund(ctx context.Context, en *Entry, amt amount.Amount) error {
	txn := e.st.NewTxn()
	e.stageEntry(txn, en)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("bounty: commit refund: %w", err)
	}
	topic := "refunded"
	if en.Status == PartiallyRefunded {
		topic = "partially_refunded"
	}
	e.rt.Emit(topic, map[string]any{"version": 2, "bounty_id": en.BountyID, "amount": amt.String(), "status": string(en.Status)})
	return nil
}

// SetPaused applies only the provided (non-nil) flags.
func (e *Engine) SetPaused(ctx context.Context, lock, release, refund *bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.flags.Set(lock, release, refund)
	e.rt.Emit("pause_set", map[string]any{"version": 2, "lock": lock, "release": release, "refund": refund})
	return nil
}

func (e *Engine) GetPauseFlags() (lock, release, refund bool) { return e.flags.Get() }

// GetEscrowInfo returns a copy of bountyID's entry.
func (e *Engine) GetEscrowInfo(bountyID uint64) (Entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	en, err := e.get(bountyID)
	if err != nil {
		return Entry{}, err
	}
	return *en, nil
}

// GetBalance returns the contract's current token balance.
func (e *Engine) GetBalance(ctx context.Context) (amount.Amount, error) {
	return e.tok.Balance(ctx, e.rt.Contract)
}

func (e *Engine) UpdateFeeConfig(ctx context.Context, cfg FeeConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	if err := e.feeEn.Update(cfg); err != nil {
		return err
	}
	e.rt.Emit("fee_updated", map[string]any{"version": 2})
	return nil
}

func (e *Engine) GetFeeConfig() FeeConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feeEn.Config()
}

func (e *Engine) UpdateMetadata(ctx context.Context, metadata string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInit(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.metadata = metadata
	return nil
}

func (e *Engine) GetMetadata() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metadata
}

// QueryByStatus returns a page of bounty ids in status, oldest-first.
func (e *Engine) QueryByStatus(status Status, offset, limit int) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set, ok := e.byStatus[status]
	if !ok {
		return nil
	}
	return set.Page(offset, limit)
}

// GetEscrowIdsByStatus is an alias query surface named explicitly in
// spec.md §6 alongside query_escrows_by_status.
func (e *Engine) GetEscrowIdsByStatus(status Status) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set, ok := e.byStatus[status]
	if !ok {
		return nil
	}
	return set.All()
}

// QueryByDepositor returns a page of bounty ids locked by depositor.
func (e *Engine) QueryByDepositor(depositor string, offset, limit int) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set, ok := e.byDepositor[depositor]
	if !ok {
		return nil
	}
	return set.Page(offset, limit)
}

// QueryByAmount scans every entry (bounded per-contract, per spec.md
// §3/§9) returning ids whose Amount is within [min, max].
func (e *Engine) QueryByAmount(min, max amount.Amount, offset, limit int) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var ids []uint64
	for id := range e.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var matched []uint64
	for _, id := range ids {
		en := e.entries[id]
		if amount.Cmp(en.Amount, min) >= 0 && amount.Cmp(en.Amount, max) <= 0 {
			matched = append(matched, id)
		}
	}
	return page(matched, offset, limit)
}

// QueryByDeadline scans every entry returning ids whose Deadline is
// within [from, to].
func (e *Engine) QueryByDeadline(from, to uint64, offset, limit int) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var ids []uint64
	for id := range e.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var matched []uint64
	for _, id := range ids {
		en := e.entries[id]
		if en.Deadline >= from && en.Deadline <= to {
			matched = append(matched, id)
		}
	}
	return page(matched, offset, limit)
}

func page(ids []uint64, offset, limit int) []uint64 {
	if offset < 0 || offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}
	out := make([]uint64, end-offset)
	copy(out, ids[offset:end])
	return out
}

// AggregateStats is the read-only view of get_aggregate_stats (§6).
type AggregateStats struct {
	CountLocked            uint64
	CountReleased          uint64
	CountRefunded          uint64
	CountPartiallyRefunded uint64
	TotalLocked            amount.Amount
	TotalReleased          amount.Amount
	TotalRefunded          amount.Amount
}

func (e *Engine) GetAggregateStats() AggregateStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	counts, totals := e.aggregates.Snapshot()
	return AggregateStats{
		CountLocked:            counts["locked"],
		CountReleased:          counts["released"],
		CountRefunded:          counts["refunded"],
		CountPartiallyRefunded: counts["partially_refunded"],
		TotalLocked:            totals["locked"],
		TotalReleased:          totals["released"],
		TotalRefunded:          totals["refunded"],
	}
}

// Admin returns the configured admin address, for upgrade preservation
// checks (P11) and the invariant checker.
func (e *Engine) Admin() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.admin
}

// SetAdmin is used only by the upgrade controller (C13) to restore an
// admin identity across an upgrade/rollback pair; it bypasses RequireAuth
// because it is called by the trusted upgrade path, not by an entry
// point.
func (e *Engine) SetAdmin(admin string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.admin = admin
}

// Entries exposes a snapshot of every entry for the invariant checker
// (C14); callers must not mutate the returned entries.
func (e *Engine) Entries() map[uint64]*Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[uint64]*Entry, len(e.entries))
	for k, v := range e.entries {
		out[k] = v
	}
	return out
}
