package program

import (
	"context"
	"testing"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/breaker"
	"github.com/grainlify/escrow-engine/internal/cerr"
	"github.com/grainlify/escrow-engine/internal/ledger"
	"github.com/grainlify/escrow-engine/internal/multisig"
	"github.com/grainlify/escrow-engine/internal/store"
	"github.com/grainlify/escrow-engine/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopEvents struct{}

func (noopEvents) Publish(string, any) {}

const contract = "program-contract"

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
	e := New(rt, store.NewMemory(), tok, "admin")
	return &harness{e: e, tok: tok, clock: clock}
}

func asCaller(ctx context.Context, addr string) context.Context {
	return ledger.WithCaller(ctx, addr)
}

func TestInitProgramRejectsEmptyID(t *testing.T) {
	h := newHarness(t)
	err := h.e.InitProgram(context.Background(), "", "payoutkey", "native-token")
	assert.True(t, cerr.Is(err, cerr.InvalidAmount))
}

func TestInitProgramTwiceFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.e.InitProgram(ctx, "p1", "payoutkey", "native-token"))
	err := h.e.InitProgram(ctx, "p1", "payoutkey", "native-token")
	assert.True(t, cerr.Is(err, cerr.AlreadyInitialized))
}

func TestBatchInitializeProgramsHappyPath(t *testing.T) {
	h := newHarness(t)
	items := []BatchInitRequest{
		{ProgramID: "p1", AuthorizedKey: "key1", TokenAddress: "native-token"},
		{ProgramID: "p2", AuthorizedKey: "key2", TokenAddress: "native-token"},
	}
	require.NoError(t, h.e.BatchInitializePrograms(context.Background(), items))
	assert.Equal(t, []string{"p1", "p2"}, h.e.ProgramIDs())
}

func TestBatchInitializeRejectsEmptyID(t *testing.T) {
	h := newHarness(t)
	items := []BatchInitRequest{{ProgramID: "", AuthorizedKey: "key1"}}
	err := h.e.BatchInitializePrograms(context.Background(), items)
	assert.True(t, cerr.Is(err, cerr.InvalidAmount))
	assert.Empty(t, h.e.ProgramIDs(), "a rejected batch must persist nothing")
}

func TestBatchInitializeRejectsDuplicateWithinBatch(t *testing.T) {
	h := newHarness(t)
	items := []BatchInitRequest{
		{ProgramID: "p1", AuthorizedKey: "key1"},
		{ProgramID: "p1", AuthorizedKey: "key2"},
	}
	err := h.e.BatchInitializePrograms(context.Background(), items)
	assert.True(t, cerr.Is(err, cerr.DuplicateId))
	assert.Empty(t, h.e.ProgramIDs())
}

func TestBatchInitializeRejectsAlreadyExisting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.e.InitProgram(ctx, "p1", "key1", "native-token"))

	err := h.e.BatchInitializePrograms(ctx, []BatchInitRequest{{ProgramID: "p1", AuthorizedKey: "key1"}})
	assert.True(t, cerr.Is(err, cerr.ProgramAlreadyExists))
}

func TestBatchInitializeRejectsInvalidSize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.e.BatchInitializePrograms(ctx, nil)
	assert.True(t, cerr.Is(err, cerr.BatchInvalidSize))

	items := make([]BatchInitRequest, MaxBatchSize+1)
	for i := range items {
		items[i] = BatchInitRequest{ProgramID: string(rune('a' + i%26)), AuthorizedKey: "key"}
	}
	err = h.e.BatchInitializePrograms(ctx, items)
	assert.True(t, cerr.Is(err, cerr.BatchInvalidSize))
}

func TestLockProgramFundsRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.e.InitProgram(ctx, "p1", "key1", "native-token"))

	err := h.e.LockProgramFunds(asCaller(ctx, "not-admin"), "p1", amount.FromInt64(100))
	assert.True(t, cerr.Is(err, cerr.Unauthorized))
}

func TestLockProgramFundsIncreasesBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.e.InitProgram(ctx, "p1", "key1", "native-token"))
	h.tok.Fund("admin", amount.FromInt64(5000))

	require.NoError(t, h.e.LockProgramFunds(asCaller(ctx, "admin"), "p1", amount.FromInt64(1000)))

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), data.TotalFunds.Int64())
	assert.Equal(t, int64(1000), data.RemainingBalance.Int64())
}

func fundedProgram(t *testing.T, h *harness, programID, payoutKey string, lockAmt int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.e.InitProgram(ctx, programID, payoutKey, "native-token"))
	h.tok.Fund("admin", amount.FromInt64(lockAmt))
	require.NoError(t, h.e.LockProgramFunds(asCaller(ctx, "admin"), programID, amount.FromInt64(lockAmt)))
}

func TestSinglePayoutBelowThresholdExecutesImmediately(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)

	approvalID, err := h.e.SinglePayout(asCaller(context.Background(), "payoutkey"), "p1", "bob", amount.FromInt64(100))
	require.NoError(t, err)
	assert.Empty(t, approvalID)

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), data.RemainingBalance.Int64())
	assert.Len(t, data.PayoutHistory, 1)

	bal, err := h.tok.Balance(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal.Int64())
}

func TestSinglePayoutRequiresAuthorizedKey(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)

	_, err := h.e.SinglePayout(asCaller(context.Background(), "someone-else"), "p1", "bob", amount.FromInt64(100))
	assert.True(t, cerr.Is(err, cerr.Unauthorized))
}

func TestSinglePayoutRejectsOverBalance(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)

	_, err := h.e.SinglePayout(asCaller(context.Background(), "payoutkey"), "p1", "bob", amount.FromInt64(2000))
	assert.True(t, cerr.Is(err, cerr.InsufficientBalance))
}

func TestSinglePayoutAtThresholdRoutesThroughApproval(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	ctx := context.Background()
	require.NoError(t, h.e.SetMultisigConfig(asCaller(ctx, "admin"), "p1", multisig.Config{
		ThresholdAmount: amount.FromInt64(500), Signers: []string{"alice", "carol"}, RequiredSignatures: 2,
	}))

	approvalID, err := h.e.SinglePayout(asCaller(ctx, "payoutkey"), "p1", "bob", amount.FromInt64(500))
	require.NoError(t, err)
	require.NotEmpty(t, approvalID)

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), data.RemainingBalance.Int64(), "a gated payout must not move funds until approved")

	require.NoError(t, h.e.ApprovePayout(ctx, "p1", "bob", "alice"))
	data, err = h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), data.RemainingBalance.Int64(), "a single approval below the threshold must not execute")

	require.NoError(t, h.e.ApprovePayout(ctx, "p1", "bob", "carol"))
	data, err = h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), data.RemainingBalance.Int64())
}

func TestApprovePayoutRejectsUnknownSigner(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	ctx := context.Background()
	require.NoError(t, h.e.SetMultisigConfig(asCaller(ctx, "admin"), "p1", multisig.Config{
		ThresholdAmount: amount.FromInt64(500), Signers: []string{"alice"}, RequiredSignatures: 1,
	}))
	_, err := h.e.SinglePayout(asCaller(ctx, "payoutkey"), "p1", "bob", amount.FromInt64(500))
	require.NoError(t, err)

	err = h.e.ApprovePayout(ctx, "p1", "bob", "mallory")
	assert.True(t, cerr.Is(err, cerr.Unauthorized))
}

func TestBatchPayoutHappyPath(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)

	err := h.e.BatchPayout(asCaller(context.Background(), "payoutkey"), "p1",
		[]string{"bob", "carol"}, []amount.Amount{amount.FromInt64(100), amount.FromInt64(200)})
	require.NoError(t, err)

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), data.RemainingBalance.Int64())
	assert.Len(t, data.PayoutHistory, 2)
}

func TestBatchPayoutRejectsOverBalance(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)

	err := h.e.BatchPayout(asCaller(context.Background(), "payoutkey"), "p1",
		[]string{"bob", "carol"}, []amount.Amount{amount.FromInt64(700), amount.FromInt64(700)})
	assert.True(t, cerr.Is(err, cerr.InsufficientBalance))

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), data.RemainingBalance.Int64(), "a rejected batch must not partially execute")
}

func TestBatchPayoutRejectsMismatchedLengths(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)

	err := h.e.BatchPayout(asCaller(context.Background(), "payoutkey"), "p1",
		[]string{"bob", "carol"}, []amount.Amount{amount.FromInt64(100)})
	assert.True(t, cerr.Is(err, cerr.BatchInvalidSize))
}

func TestCreateScheduleAndTriggerReleasesWhenDue(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	ctx := asCaller(context.Background(), "admin")

	id, err := h.e.CreateProgramReleaseSchedule(ctx, "p1", "bob", amount.FromInt64(300), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	n, err := h.e.TriggerProgramReleases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a schedule before its release timestamp must not fire")

	h.clock.Set(100)
	n, err = h.e.TriggerProgramReleases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), data.RemainingBalance.Int64())

	scheds, err := h.e.GetSchedules("p1")
	require.NoError(t, err)
	require.Len(t, scheds, 1)
	assert.True(t, scheds[0].Released)
}

func TestTriggerProgramReleasesAllOrNothingOnInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	ctx := asCaller(context.Background(), "admin")

	_, err := h.e.CreateProgramReleaseSchedule(ctx, "p1", "bob", amount.FromInt64(700), 50)
	require.NoError(t, err)
	_, err = h.e.CreateProgramReleaseSchedule(ctx, "p1", "carol", amount.FromInt64(700), 50)
	require.NoError(t, err)

	h.clock.Set(50)
	n, err := h.e.TriggerProgramReleases(context.Background())
	assert.True(t, cerr.Is(err, cerr.InsufficientBalance))
	assert.Equal(t, 0, n)

	data, err := h.e.GetProgram("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), data.RemainingBalance.Int64(), "a failed trigger must not release any due schedule")
}

func TestCircuitBreakerTripsAndBlocksPayout(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	ctx := asCaller(context.Background(), "admin")
	require.NoError(t, h.e.SetCircuitConfig(ctx, breaker.Config{FailureThreshold: 2, SuccessThreshold: 1, MaxErrorLog: 10}))
	h.tok.FailNext = 10

	payoutCtx := asCaller(context.Background(), "payoutkey")
	_, err := h.e.SinglePayout(payoutCtx, "p1", "bob", amount.FromInt64(10))
	assert.Error(t, err)
	_, err = h.e.SinglePayout(payoutCtx, "p1", "bob", amount.FromInt64(10))
	assert.Error(t, err)
	assert.Equal(t, breaker.Open, h.e.CircuitStatus().State)

	_, err = h.e.SinglePayout(payoutCtx, "p1", "bob", amount.FromInt64(10))
	assert.True(t, cerr.Is(err, cerr.CircuitOpen))
}

func TestResetCircuitBreakerMovesToHalfOpen(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	ctx := asCaller(context.Background(), "admin")
	require.NoError(t, h.e.SetCircuitConfig(ctx, breaker.Config{FailureThreshold: 1, SuccessThreshold: 1, MaxErrorLog: 10}))
	h.tok.FailNext = 10

	payoutCtx := asCaller(context.Background(), "payoutkey")
	_, err := h.e.SinglePayout(payoutCtx, "p1", "bob", amount.FromInt64(10))
	assert.Error(t, err)
	require.Equal(t, breaker.Open, h.e.CircuitStatus().State)

	require.NoError(t, h.e.ResetCircuitBreaker(context.Background(), "admin"))
	assert.Equal(t, breaker.HalfOpen, h.e.CircuitStatus().State)
}

func TestSetCircuitAdminIsSeparateFromProgramAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := asCaller(context.Background(), "admin")
	err := h.e.SetCircuitConfig(ctx, breaker.Config{FailureThreshold: 1, SuccessThreshold: 1})
	require.NoError(t, err, "circuitAdmin starts equal to admin")

	require.NoError(t, h.e.SetCircuitAdmin(ctx, "breaker-operator"))

	err = h.e.SetCircuitConfig(ctx, breaker.Config{FailureThreshold: 1, SuccessThreshold: 1})
	assert.True(t, cerr.Is(err, cerr.Unauthorized), "after rotation the old admin must no longer control the breaker")

	require.NoError(t, h.e.SetCircuitConfig(asCaller(context.Background(), "breaker-operator"), breaker.Config{FailureThreshold: 1, SuccessThreshold: 1}))
}

func TestSetPausedBlocksRelease(t *testing.T) {
	h := newHarness(t)
	fundedProgram(t, h, "p1", "payoutkey", 1000)
	releaseTrue := true
	require.NoError(t, h.e.SetPaused(asCaller(context.Background(), "admin"), nil, &releaseTrue, nil))

	_, err := h.e.SinglePayout(asCaller(context.Background(), "payoutkey"), "p1", "bob", amount.FromInt64(10))
	assert.True(t, cerr.Is(err, cerr.Paused))
}
