package token

import (
	"context"
	"testing"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferMovesBalance(t *testing.T) {
	tok := NewInMemory()
	tok.Fund("alice", amount.FromInt64(100))

	require.NoError(t, tok.Transfer(context.Background(), "alice", "bob", amount.FromInt64(40)))

	aliceBal, err := tok.Balance(context.Background(), "alice")
	require.NoError(t, err)
	bobBal, err := tok.Balance(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(60), aliceBal.Int64())
	assert.Equal(t, int64(40), bobBal.Int64())
}

func TestTransferInsufficientBalance(t *testing.T) {
	tok := NewInMemory()
	tok.Fund("alice", amount.FromInt64(10))
	err := tok.Transfer(context.Background(), "alice", "bob", amount.FromInt64(100))
	assert.Error(t, err)
}

func TestTransferZeroAmountIsNoop(t *testing.T) {
	tok := NewInMemory()
	require.NoError(t, tok.Transfer(context.Background(), "alice", "bob", amount.Zero()))
}

func TestTransferRejectsNegativeAmount(t *testing.T) {
	tok := NewInMemory()
	tok.Fund("alice", amount.FromInt64(10))
	err := tok.Transfer(context.Background(), "alice", "bob", amount.FromInt64(-1))
	assert.Error(t, err)
}

func TestFailNextConsumesOneFailure(t *testing.T) {
	tok := NewInMemory()
	tok.Fund("alice", amount.FromInt64(100))
	tok.FailNext = 2

	err := tok.Transfer(context.Background(), "alice", "bob", amount.FromInt64(10))
	assert.Error(t, err)
	err = tok.Transfer(context.Background(), "alice", "bob", amount.FromInt64(10))
	assert.Error(t, err)
	require.NoError(t, tok.Transfer(context.Background(), "alice", "bob", amount.FromInt64(10)))

	bobBal, err := tok.Balance(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bobBal.Int64(), "only the third transfer should have actually moved funds")
}
