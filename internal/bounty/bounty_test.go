package bounty

import (
	"context"
	"testing"
	"time"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/cerr"
	"github.com/grainlify/escrow-engine/internal/ledger"
	"github.com/grainlify/escrow-engine/internal/store"
	"github.com/grainlify/escrow-engine/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopEvents struct{}

func (noopEvents) Publish(string, any) {}

const contract = "bounty-contract"

type harness struct {
	e     *Engine
	tok   *token.InMemory
	clock *ledger.FixedClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &ledger.FixedClock{}
	rt := ledger.NewRuntime(clock, ledger.CallerAuthorizer{}, noopEvents{}, contract)
	tok := token.NewInMemory()
	e := New(rt, store.NewMemory(), tok)
	require.NoError(t, e.Init(asCaller(context.Background(), "admin"), "admin", "native-token"))
	return &harness{e: e, tok: tok, clock: clock}
}

func asCaller(ctx context.Context, addr string) context.Context {
	return ledger.WithCaller(ctx, addr)
}

func TestInitTwiceFails(t *testing.T) {
	h := newHarness(t)
	err := h.e.Init(asCaller(context.Background(), "admin"), "admin", "native-token")
	assert.True(t, cerr.Is(err, cerr.AlreadyInitialized))
}

func TestLockFundsCreatesLockedEntry(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))

	err := h.e.LockFunds(asCaller(context.Background(), "depositor"), "depositor", 1, amount.FromInt64(500), 1000)
	require.NoError(t, err)

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Locked, en.Status)
	assert.Equal(t, int64(500), en.RemainingAmount.Int64())

	stats := h.e.GetAggregateStats()
	assert.Equal(t, uint64(1), stats.CountLocked)
	assert.Equal(t, int64(500), stats.TotalLocked.Int64())
}

func TestLockFundsRejectsDuplicateID(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := asCaller(context.Background(), "depositor")
	require.NoError(t, h.e.LockFunds(ctx, "depositor", 1, amount.FromInt64(500), 1000))

	err := h.e.LockFunds(ctx, "depositor", 1, amount.FromInt64(100), 1000)
	assert.True(t, cerr.Is(err, cerr.AlreadyExists))
}

func TestLockFundsRequiresDepositorAuth(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := asCaller(context.Background(), "someone-else")
	err := h.e.LockFunds(ctx, "depositor", 1, amount.FromInt64(500), 1000)
	assert.True(t, cerr.Is(err, cerr.Unauthorized))
}

func TestLockFundsHonorsLockPauseFlag(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	lockTrue := true
	require.NoError(t, h.e.SetPaused(asCaller(context.Background(), "admin"), &lockTrue, nil, nil))

	err := h.e.LockFunds(asCaller(context.Background(), "depositor"), "depositor", 1, amount.FromInt64(500), 1000)
	assert.True(t, cerr.Is(err, cerr.Paused))
}

func TestReleaseFundsTransfersAndMovesStatus(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	require.NoError(t, h.e.ReleaseFunds(ctx, 1, "contributor"))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Released, en.Status)
	assert.True(t, en.RemainingAmount.IsZero())

	bal, err := h.tok.Balance(ctx, "contributor")
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal.Int64())
}

func TestReleaseFundsFailsWhenNotLocked(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))
	require.NoError(t, h.e.ReleaseFunds(ctx, 1, "contributor"))

	err := h.e.ReleaseFunds(ctx, 1, "contributor")
	assert.True(t, cerr.Is(err, cerr.FundsNotLocked))
}

func TestPartialReleaseKeepsEntryLocked(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	require.NoError(t, h.e.PartialRelease(ctx, 1, "contributor", amount.FromInt64(200)))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Locked, en.Status)
	assert.Equal(t, int64(300), en.RemainingAmount.Int64())
}

func TestPartialReleaseRejectsMoreThanRemaining(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	err := h.e.PartialRelease(ctx, 1, "contributor", amount.FromInt64(600))
	assert.True(t, cerr.Is(err, cerr.InsufficientBalance))
}

func TestAuthorizeClaimOverwritesPendingClaim(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	require.NoError(t, h.e.AuthorizeClaim(ctx, 1, "first-claimant"))
	require.NoError(t, h.e.AuthorizeClaim(ctx, 1, "second-claimant"))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	require.NotNil(t, en.PendingClaim)
	assert.Equal(t, "second-claimant", en.PendingClaim.Recipient, "a later authorize_claim must overwrite, not queue")
}

func TestClaimExecutesWithinWindow(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))
	require.NoError(t, h.e.AuthorizeClaim(ctx, 1, "claimant"))

	require.NoError(t, h.e.Claim(ctx, 1))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Released, en.Status)
	assert.Nil(t, en.PendingClaim)
}

func TestClaimFailsAfterWindowExpires(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))
	require.NoError(t, h.e.SetClaimWindow(asCaller(ctx, "admin"), 10))
	require.NoError(t, h.e.AuthorizeClaim(ctx, 1, "claimant"))

	h.clock.Advance(11 * time.Second)
	err := h.e.Claim(ctx, 1)
	assert.True(t, cerr.Is(err, cerr.DeadlineNotPassed))
	ce, ok := err.(*cerr.Error)
	require.True(t, ok)
	assert.Contains(t, ce.Message, "expired", "the claim window has already passed, so the message must not say a deadline hasn't passed yet")
}

func TestClaimFailsWithoutPendingClaim(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	err := h.e.Claim(ctx, 1)
	assert.True(t, cerr.Is(err, cerr.NotFound))
}

func TestRefundAfterDeadlinePassesWithoutApproval(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 100))

	h.clock.Set(200)
	require.NoError(t, h.e.Refund(ctx, 1))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Refunded, en.Status)

	bal, err := h.tok.Balance(ctx, "depositor")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal.Int64())
}

func TestRefundBeforeDeadlineRequiresApproval(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	err := h.e.Refund(ctx, 1)
	assert.True(t, cerr.Is(err, cerr.DeadlineNotPassed))
}

func TestRefundPartialApprovalMovesToPartiallyRefunded(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	require.NoError(t, h.e.ApproveRefund(asCaller(ctx, "admin"), 1, amount.FromInt64(200), "", RefundPartial))
	require.NoError(t, h.e.Refund(ctx, 1))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, PartiallyRefunded, en.Status)
	assert.Equal(t, int64(300), en.RemainingAmount.Int64())
}

func TestPartiallyRefundedSettlesFullyAfterDeadline(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 100))

	require.NoError(t, h.e.ApproveRefund(asCaller(ctx, "admin"), 1, amount.FromInt64(200), "", RefundPartial))
	require.NoError(t, h.e.Refund(ctx, 1))

	h.clock.Set(200)
	require.NoError(t, h.e.Refund(ctx, 1))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Refunded, en.Status)
	assert.True(t, en.RemainingAmount.IsZero())
}

func TestPartiallyRefundedCannotRefundAgainBeforeDeadline(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	require.NoError(t, h.e.ApproveRefund(asCaller(ctx, "admin"), 1, amount.FromInt64(200), "", RefundPartial))
	require.NoError(t, h.e.Refund(ctx, 1))

	err := h.e.Refund(ctx, 1)
	assert.True(t, cerr.Is(err, cerr.DeadlineNotPassed))
}

func TestRefundFullApprovalSettlesImmediately(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(1000))
	ctx := context.Background()
	require.NoError(t, h.e.LockFunds(asCaller(ctx, "depositor"), "depositor", 1, amount.FromInt64(500), 1000))

	require.NoError(t, h.e.ApproveRefund(asCaller(ctx, "admin"), 1, amount.Zero(), "", RefundFull))
	require.NoError(t, h.e.Refund(ctx, 1))

	en, err := h.e.GetEscrowInfo(1)
	require.NoError(t, err)
	assert.Equal(t, Refunded, en.Status)
}

func TestQueryByStatusAndDepositorPagination(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(10_000))
	ctx := asCaller(context.Background(), "depositor")
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, h.e.LockFunds(ctx, "depositor", i, amount.FromInt64(100), 1000))
	}

	ids := h.e.QueryByStatus(Locked, 0, 3)
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	depositorIDs := h.e.QueryByDepositor("depositor", 3, 10)
	assert.Equal(t, []uint64{4, 5}, depositorIDs)
}

func TestQueryByAmountFiltersRange(t *testing.T) {
	h := newHarness(t)
	h.tok.Fund("depositor", amount.FromInt64(10_000))
	ctx := asCaller(context.Background(), "depositor")
	require.NoError(t, h.e.LockFunds(ctx, "depositor", 1, amount.FromInt64(100), 1000))
	require.NoError(t, h.e.LockFunds(ctx, "depositor", 2, amount.FromInt64(500), 1000))
	require.NoError(t, h.e.LockFunds(ctx, "depositor", 3, amount.FromInt64(900), 1000))

	ids := h.e.QueryByAmount(amount.FromInt64(200), amount.FromInt64(600), 0, 10)
	assert.Equal(t, []uint64{2}, ids)
}

func TestSetPausedOnlyAppliesProvidedFlags(t *testing.T) {
	h := newHarness(t)
	releaseTrue := true
	require.NoError(t, h.e.SetPaused(asCaller(context.Background(), "admin"), nil, &releaseTrue, nil))
	lock, release, refund := h.e.GetPauseFlags()
	assert.False(t, lock)
	assert.True(t, release)
	assert.False(t, refund)
}

func TestUpdateFeeConfigRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	err := h.e.UpdateFeeConfig(asCaller(context.Background(), "not-admin"), FeeConfig{ReleaseFeeRateBp: 100, Enabled: true, FeeRecipient: "treasury"})
	assert.True(t, cerr.Is(err, cerr.Unauthorized))
}
