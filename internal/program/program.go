// Package program implements ProgramEscrow (C10) of spec.md §4.10: a
// pooled per-program balance with single/batch payout, scheduled
// releases, and the full policy stack (rate limiting, circuit breaker,
// fees, multisig) that the bounty engine largely does not need.
package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/breaker"
	"github.com/grainlify/escrow-engine/internal/cerr"
	"github.com/grainlify/escrow-engine/internal/codec"
	"github.com/grainlify/escrow-engine/internal/fee"
	"github.com/grainlify/escrow-engine/internal/guard"
	"github.com/grainlify/escrow-engine/internal/index"
	"github.com/grainlify/escrow-engine/internal/ledger"
	"github.com/grainlify/escrow-engine/internal/multisig"
	"github.com/grainlify/escrow-engine/internal/ratelimit"
	"github.com/grainlify/escrow-engine/internal/store"
	"github.com/grainlify/escrow-engine/internal/token"
)

// MaxBatchSize is the persisted constant of spec.md §6.
const MaxBatchSize = 100

// Data is ProgramData of spec.md §3.
type Data struct {
	ProgramID           string
	AuthorizedPayoutKey string
	TokenAddress        string
	TotalFunds          amount.Amount
	RemainingBalance    amount.Amount
	PayoutHistory       []PayoutRecord
}

// PayoutRecord is one append-only payout-history entry.
type PayoutRecord struct {
	Recipient string
	Amount    amount.Amount
	At        uint64
}

// Schedule is ReleaseSchedule of spec.md §3.
type Schedule struct {
	ProgramID         string
	ScheduleID        uint64
	Recipient         string
	Amount            amount.Amount
	ReleaseTimestamp  uint64
	Released          bool
}

// HistoryRecord is ReleaseHistoryRecord of spec.md §3.
type HistoryRecord struct {
	ScheduleID uint64
	Recipient  string
	Amount     amount.Amount
	ReleasedAt uint64
}

type programState struct {
	data             Data
	schedules        []*Schedule
	nextScheduleID   uint64
	multisigCfg      multisig.Config
	pendingApprovals map[string]*multisig.Approval // keyed by recipient
}

// Engine is one deployed ProgramEscrow contract instance, shared across
// every registered program id.
type Engine struct {
	rt     *ledger.Runtime
	st     store.Store
	tok    token.Adapter
	reent  *guard.Reentrancy
	flags  *guard.Flags
	feeEn  *fee.Engine
	limiter *ratelimit.Limiter
	brk    *breaker.Breaker

	mu       sync.RWMutex
	admin    string
	circuitAdmin string
	programs map[string]*programState
	order    *index.OrderedSet[string]
	agg      *index.Aggregates
}

func New(rt *ledger.Runtime, st store.Store, tok token.Adapter, admin string) *Engine {
	return &Engine{
		rt: rt, st: st, tok: tok,
		reent:   guard.NewReentrancy(),
		flags:   guard.NewFlags(),
		feeEn:   mustFee(),
		limiter: ratelimit.New(ratelimit.DefaultConfig()),
		brk:     breaker.New(admin, breaker.DefaultConfig()),
		admin:   admin, circuitAdmin: admin,
		programs: make(map[string]*programState),
		order:    index.NewOrderedSet[string](),
		agg:      index.NewAggregates(),
	}
}

func mustFee() *fee.Engine {
	e, err := fee.New(fee.Config{})
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) gate(ctx context.Context, caller string, checkPause func() error) error {
	if err := checkPause(); err != nil {
		return err
	}
	if err := e.brk.CheckAndAllow(); err != nil {
		return err
	}
	if caller != "" {
		if err := e.limiter.Allow(caller, e.rt.Now()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) stageProgram(txn *store.Txn, p *programState) {
	fields := []codec.Field{
		{Key: "program_id", Val: codec.String(p.data.ProgramID)},
		{Key: "authorized_payout_key", Val: codec.String(p.data.AuthorizedPayoutKey)},
		{Key: "token_address", Val: codec.String(p.data.TokenAddress)},
		{Key: "total_funds", Val: codec.String(p.data.TotalFunds.String())},
		{Key: "remaining_balance", Val: codec.String(p.data.RemainingBalance.String())},
	}
	txn.Put(store.ProgramKey(p.data.ProgramID), codec.Struct(fields...))
}

// InitProgram registers program_id once; a second call fails
// AlreadyInitialized.
func (e *Engine) InitProgram(ctx context.Context, programID, authorizedKey, tokenAddress string) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if programID == "" {
		return cerr.New(cerr.InvalidAmount)
	}
	if _, exists := e.programs[programID]; exists {
		return cerr.New(cerr.AlreadyInitialized)
	}

	p := &programState{
		data: Data{ProgramID: programID, AuthorizedPayoutKey: authorizedKey, TokenAddress: tokenAddress,
			TotalFunds: amount.Zero(), RemainingBalance: amount.Zero()},
		pendingApprovals: make(map[string]*multisig.Approval),
	}
	e.programs[programID] = p
	e.order.Add(programID)

	txn := e.st.NewTxn()
	e.stageProgram(txn, p)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("program: commit init_program: %w", err)
	}
	e.rt.Emit("PrgInit", map[string]any{"version": 2, "program_id": programID, "authorized_key": authorizedKey})
	return nil
}

// BatchInitRequest is one element of batch_initialize_programs.
type BatchInitRequest struct {
	ProgramID     string
	AuthorizedKey string
	TokenAddress  string
}

// BatchInitializePrograms is all-or-nothing per spec.md §4.10/P12: any
// failure persists nothing.
func (e *Engine) BatchInitializePrograms(ctx context.Context, items []BatchInitRequest) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(items) < 1 || len(items) > MaxBatchSize {
		return cerr.New(cerr.BatchInvalidSize)
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ProgramID == "" {
			return cerr.New(cerr.InvalidAmount)
		}
		if seen[it.ProgramID] {
			return cerr.New(cerr.DuplicateId)
		}
		seen[it.ProgramID] = true
		if _, exists := e.programs[it.ProgramID]; exists {
			return cerr.New(cerr.ProgramAlreadyExists)
		}
	}

	txn := e.st.NewTxn()
	for _, it := range items {
		p := &programState{
			data: Data{ProgramID: it.ProgramID, AuthorizedPayoutKey: it.AuthorizedKey, TokenAddress: it.TokenAddress,
				TotalFunds: amount.Zero(), RemainingBalance: amount.Zero()},
			pendingApprovals: make(map[string]*multisig.Approval),
		}
		e.programs[it.ProgramID] = p
		e.order.Add(it.ProgramID)
		e.stageProgram(txn, p)
	}
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("program: commit batch_initialize_programs: %w", err)
	}
	e.rt.Emit("PrgInit", map[string]any{"version": 2, "batch": true, "count": len(items)})
	return nil
}

func (e *Engine) getProgram(programID string) (*programState, error) {
	p, ok := e.programs[programID]
	if !ok {
		return nil, cerr.New(cerr.NotFound)
	}
	return p, nil
}

// LockProgramFunds increases total_funds/remaining_balance for programID;
// admin-authorized.
func (e *Engine) LockProgramFunds(ctx context.Context, programID string, amt amount.Amount) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.flags.CheckLock(); err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	if amt.Sign() <= 0 {
		return cerr.New(cerr.InvalidAmount)
	}
	p, err := e.getProgram(programID)
	if err != nil {
		return err
	}

	if err := e.tok.Transfer(ctx, e.admin, e.rt.Contract, amt); err != nil {
		return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
	}

	newTotal, err := amount.Add(p.data.TotalFunds, amt)
	if err != nil {
		return err
	}
	newRemaining, err := amount.Add(p.data.RemainingBalance, amt)
	if err != nil {
		return err
	}
	p.data.TotalFunds = newTotal
	p.data.RemainingBalance = newRemaining

	txn := e.st.NewTxn()
	e.stageProgram(txn, p)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("program: commit lock_program_funds: %w", err)
	}
	e.rt.Emit("FndsLock", map[string]any{"version": 2, "program_id": programID, "amount": amt.String()})
	return nil
}

func (e *Engine) executeTransfer(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := e.brk.ExecuteWithRetry(ctx, e.rt.Now(), 1, op, cerr.InsufficientBalance)
	return err
}

// SinglePayout pays recipient from programID's remaining balance; if
// amt >= multisig threshold the payout is routed through approval
// instead of executing immediately, and approvalID is the correlation id
// of the pending multisig.Approval. ApprovePayout looks a pending
// approval up by program and recipient, not by this id.
func (e *Engine) SinglePayout(ctx context.Context, programID, recipient string, amt amount.Amount) (approvalID string, err error) {
	if err := e.reent.Enter(); err != nil {
		return "", err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	caller, _ := ledger.CallerFromContext(ctx)
	if err := e.gate(ctx, caller, e.flags.CheckRelease); err != nil {
		return "", err
	}
	p, err := e.getProgram(programID)
	if err != nil {
		return "", err
	}
	if err := e.rt.RequireAuth(ctx, p.data.AuthorizedPayoutKey); err != nil {
		return "", err
	}
	if amt.Sign() <= 0 {
		return "", cerr.New(cerr.InvalidAmount)
	}
	if amount.Cmp(amt, p.data.RemainingBalance) > 0 {
		return "", cerr.New(cerr.InsufficientBalance)
	}

	if p.multisigCfg.RequiresApproval(amt) {
		appr, ok := p.pendingApprovals[recipient]
		if !ok {
			appr = multisig.NewApproval(programID, recipient, amt)
			p.pendingApprovals[recipient] = appr
		}
		return appr.ID, nil
	}

	return "", e.executePayout(ctx, p, recipient, amt)
}

// ApprovePayout records signer's approval of a pending payout; once the
// threshold is reached the payout executes and the approval is consumed.
func (e *Engine) ApprovePayout(ctx context.Context, programID, recipient, signer string) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.getProgram(programID)
	if err != nil {
		return err
	}
	appr, ok := p.pendingApprovals[recipient]
	if !ok {
		return cerr.New(cerr.NotFound)
	}
	reached, err := appr.Approve(p.multisigCfg, signer)
	if err != nil {
		return err
	}
	if !reached {
		return nil
	}
	delete(p.pendingApprovals, recipient)
	return e.executePayout(ctx, p, recipient, appr.Amount)
}

// executePayout performs the fee split, token transfer, and history/
// balance/index update for one payout of amt to recipient. Caller holds
// e.mu.
func (e *Engine) executePayout(ctx context.Context, p *programState, recipient string, amt amount.Amount) error {
	feeAmt, net, err := e.feeEn.Split(amt, e.feeEn.Config().PayoutFeeRateBp, recipient, e.rt.Contract)
	if err != nil {
		return err
	}

	if err := e.executeTransfer(ctx, func(ctx context.Context) error {
		return e.tok.Transfer(ctx, e.rt.Contract, recipient, net)
	}); err != nil {
		return cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
	}
	if !feeAmt.IsZero() {
		if err := e.tok.Transfer(ctx, e.rt.Contract, e.feeEn.Config().FeeRecipient, feeAmt); err != nil {
			return cerr.Wrap(cerr.InsufficientBalance, "fee transfer failed: %v", err)
		}
	}

	newRemaining, err := amount.Sub(p.data.RemainingBalance, amt)
	if err != nil {
		return err
	}
	p.data.RemainingBalance = newRemaining
	p.data.PayoutHistory = append(p.data.PayoutHistory, PayoutRecord{Recipient: recipient, Amount: amt, At: e.rt.Now()})
	if err := e.agg.Open("payout", amt); err != nil {
		return err
	}

	txn := e.st.NewTxn()
	e.stageProgram(txn, p)
	if err := e.st.Commit(ctx, txn); err != nil {
		return fmt.Errorf("program: commit payout: %w", err)
	}
	e.rt.Emit("Payout", map[string]any{"version": 2, "program_id": p.data.ProgramID, "recipient": recipient, "amount": amt.String(), "fee": feeAmt.String()})
	return nil
}

// BatchPayout pays every (recipients[i], amounts[i]) pair atomically;
// Σ amounts must not exceed remaining_balance.
func (e *Engine) BatchPayout(ctx context.Context, programID string, recipients []string, amounts []amount.Amount) error {
	if err := e.reent.Enter(); err != nil {
		return err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	caller, _ := ledger.CallerFromContext(ctx)
	if err := e.gate(ctx, caller, e.flags.CheckRelease); err != nil {
		return err
	}
	p, err := e.getProgram(programID)
	if err != nil {
		return err
	}
	if err := e.rt.RequireAuth(ctx, p.data.AuthorizedPayoutKey); err != nil {
		return err
	}
	if len(recipients) != len(amounts) || len(recipients) == 0 {
		return cerr.New(cerr.BatchInvalidSize)
	}
	total := amount.Zero()
	for _, a := range amounts {
		if a.Sign() <= 0 {
			return cerr.New(cerr.InvalidAmount)
		}
		total, err = amount.Add(total, a)
		if err != nil {
			return err
		}
	}
	if amount.Cmp(total, p.data.RemainingBalance) > 0 {
		return cerr.New(cerr.InsufficientBalance)
	}

	for i, recipient := range recipients {
		if err := e.executePayout(ctx, p, recipient, amounts[i]); err != nil {
			return err
		}
	}
	e.rt.Emit("BatchPay", map[string]any{"version": 2, "program_id": programID, "count": len(recipients), "total": total.String()})
	return nil
}

// CreateProgramReleaseSchedule registers a new future payout; admin auth.
func (e *Engine) CreateProgramReleaseSchedule(ctx context.Context, programID, recipient string, amt amount.Amount, releaseTimestamp uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return 0, err
	}
	if amt.Sign() <= 0 {
		return 0, cerr.New(cerr.InvalidAmount)
	}
	p, err := e.getProgram(programID)
	if err != nil {
		return 0, err
	}

	id := p.nextScheduleID
	p.nextScheduleID++
	sched := &Schedule{ProgramID: programID, ScheduleID: id, Recipient: recipient, Amount: amt, ReleaseTimestamp: releaseTimestamp}
	p.schedules = append(p.schedules, sched)

	txn := e.st.NewTxn()
	fields := []codec.Field{
		{Key: "schedule_id", Val: codec.Uint64(id)},
		{Key: "recipient", Val: codec.String(recipient)},
		{Key: "amount", Val: codec.String(amt.String())},
		{Key: "release_timestamp", Val: codec.Uint64(releaseTimestamp)},
		{Key: "released", Val: codec.Bool(false)},
	}
	txn.Put(store.ReleaseScheduleKey(programID, id), codec.Struct(fields...))
	txn.Put(store.NextScheduleIDKey(programID), codec.Uint64(p.nextScheduleID))
	if err := e.st.Commit(ctx, txn); err != nil {
		return 0, fmt.Errorf("program: commit create_program_release_schedule: %w", err)
	}
	e.rt.Emit("ScheduleCreated", map[string]any{"version": 2, "program_id": programID, "schedule_id": id, "release_timestamp": releaseTimestamp})
	return id, nil
}

// TriggerProgramReleases executes every due, unreleased schedule across
// every program, in schedule_id order at equal timestamps, returning the
// number released. If any due schedule's amount exceeds its program's
// remaining balance the whole invocation fails InsufficientBalance.
func (e *Engine) TriggerProgramReleases(ctx context.Context) (int, error) {
	if err := e.reent.Enter(); err != nil {
		return 0, err
	}
	defer e.reent.Exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.flags.CheckRelease(); err != nil {
		return 0, err
	}
	now := e.rt.Now()

	type due struct {
		p *programState
		s *Schedule
	}
	var dueList []due
	for _, programID := range e.order.All() {
		p := e.programs[programID]
		for _, s := range p.schedules {
			if !s.Released && now >= s.ReleaseTimestamp {
				dueList = append(dueList, due{p, s})
			}
		}
	}
	// stable ascending schedule_id order within equal timestamps; p.schedules
	// is already append order (insertion order == schedule_id order).

	need := make(map[*programState]amount.Amount)
	for _, d := range dueList {
		cur, ok := need[d.p]
		if !ok {
			cur = amount.Zero()
		}
		sum, err := amount.Add(cur, d.s.Amount)
		if err != nil {
			return 0, err
		}
		if amount.Cmp(sum, d.p.data.RemainingBalance) > 0 {
			return 0, cerr.New(cerr.InsufficientBalance)
		}
		need[d.p] = sum
	}

	released := 0
	txn := e.st.NewTxn()
	for _, d := range dueList {
		newRemaining, err := amount.Sub(d.p.data.RemainingBalance, d.s.Amount)
		if err != nil {
			return 0, err
		}
		d.p.data.RemainingBalance = newRemaining
		d.s.Released = true
		d.p.data.PayoutHistory = append(d.p.data.PayoutHistory, PayoutRecord{Recipient: d.s.Recipient, Amount: d.s.Amount, At: now})

		if err := e.tok.Transfer(ctx, e.rt.Contract, d.s.Recipient, d.s.Amount); err != nil {
			return 0, cerr.Wrap(cerr.InsufficientBalance, "transfer failed: %v", err)
		}

		fields := []codec.Field{
			{Key: "schedule_id", Val: codec.Uint64(d.s.ScheduleID)},
			{Key: "recipient", Val: codec.String(d.s.Recipient)},
			{Key: "amount", Val: codec.String(d.s.Amount.String())},
			{Key: "release_timestamp", Val: codec.Uint64(d.s.ReleaseTimestamp)},
			{Key: "released", Val: codec.Bool(true)},
		}
		txn.Put(store.ReleaseScheduleKey(d.p.data.ProgramID, d.s.ScheduleID), codec.Struct(fields...))
		e.stageProgram(txn, d.p)
		released++
		e.rt.Emit("ScheduleReleased", map[string]any{"version": 2, "program_id": d.p.data.ProgramID, "schedule_id": d.s.ScheduleID, "recipient": d.s.Recipient})
	}
	if released > 0 {
		if err := e.st.Commit(ctx, txn); err != nil {
			return 0, fmt.Errorf("program: commit trigger_program_releases: %w", err)
		}
	}
	return released, nil
}

// SetMultisigConfig replaces programID's multisig policy; admin auth.
func (e *Engine) SetMultisigConfig(ctx context.Context, programID string, cfg multisig.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	p, err := e.getProgram(programID)
	if err != nil {
		return err
	}
	p.multisigCfg = cfg
	return nil
}

// SetWhitelist adds/removes rate-limit whitelist bypass entries.
func (e *Engine) SetWhitelist(ctx context.Context, addrs []string, whitelisted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.limiter.SetWhitelist(addrs, whitelisted)
	return nil
}

// UpdateRateLimitConfig replaces the rate-limit policy; admin auth, takes
// effect immediately.
func (e *Engine) UpdateRateLimitConfig(ctx context.Context, cfg ratelimit.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.limiter.SetConfig(cfg)
	return nil
}

// SetAdmin rotates the administrative address.
func (e *Engine) SetAdmin(ctx context.Context, newAdmin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.admin = newAdmin
	return nil
}

// SetCircuitAdmin rotates the breaker's own admin (may differ from the
// program admin in the original contract's design).
func (e *Engine) SetCircuitAdmin(ctx context.Context, newAdmin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.circuitAdmin); err != nil {
		return err
	}
	e.circuitAdmin = newAdmin
	e.brk.SetAdmin(newAdmin)
	return nil
}

// ResetCircuitBreaker moves Open->HalfOpen; idempotent if already
// HalfOpen or Closed.
func (e *Engine) ResetCircuitBreaker(ctx context.Context, admin string) error {
	return e.brk.Reset(admin)
}

// SetCircuitConfig replaces the breaker's thresholds.
func (e *Engine) SetCircuitConfig(ctx context.Context, cfg breaker.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.circuitAdmin); err != nil {
		return err
	}
	e.brk.SetConfig(cfg)
	return nil
}

func (e *Engine) CircuitStatus() breaker.Status { return e.brk.Status() }

func (e *Engine) UpdateFeeConfig(ctx context.Context, cfg fee.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	if err := e.feeEn.Update(cfg); err != nil {
		return err
	}
	e.rt.Emit("fee_updated", map[string]any{"version": 2})
	return nil
}

func (e *Engine) GetFeeConfig() fee.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feeEn.Config()
}

// SetPaused applies only the provided (non-nil) flags.
func (e *Engine) SetPaused(ctx context.Context, lock, release, refund *bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.rt.RequireAuth(ctx, e.admin); err != nil {
		return err
	}
	e.flags.Set(lock, release, refund)
	e.rt.Emit("pause_set", map[string]any{"version": 2})
	return nil
}

func (e *Engine) GetPauseFlags() (lock, release, refund bool) { return e.flags.Get() }

// GetProgram returns a copy of programID's data.
func (e *Engine) GetProgram(programID string) (Data, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, err := e.getProgram(programID)
	if err != nil {
		return Data{}, err
	}
	return p.data, nil
}

// GetSchedules returns a copy of programID's schedule list.
func (e *Engine) GetSchedules(programID string) ([]Schedule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, err := e.getProgram(programID)
	if err != nil {
		return nil, err
	}
	out := make([]Schedule, len(p.schedules))
	for i, s := range p.schedules {
		out[i] = *s
	}
	return out, nil
}

// Admin returns the configured admin address, for upgrade preservation.
func (e *Engine) Admin() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.admin
}

// ProgramIDs returns every registered program id, in registration order.
func (e *Engine) ProgramIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.order.All()
}
