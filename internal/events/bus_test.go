package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishEnqueuesEnvelope(t *testing.T) {
	h := NewHub(testLogger(), "escrow-engine")
	h.Publish(TopicLocked, FundsLocked{Version: 2, BountyID: 1, Amount: "500", Depositor: "alice", Deadline: 1000})

	env := <-h.broadcast
	assert.Equal(t, "escrow-engine", env.Contract)
	assert.Equal(t, TopicLocked, env.Topic)
	assert.NotEmpty(t, env.ID)

	var payload FundsLocked
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, uint64(1), payload.BountyID)
	assert.Equal(t, "alice", payload.Depositor)
}

func TestPublishDropsWhenBroadcastChannelIsFull(t *testing.T) {
	h := NewHub(testLogger(), "escrow-engine")
	for i := 0; i < cap(h.broadcast); i++ {
		h.broadcast <- Envelope{ID: "filler"}
	}

	h.Publish(TopicLocked, FundsLocked{Version: 2, BountyID: 1})

	assert.Len(t, h.broadcast, cap(h.broadcast), "Publish must never block a mutator even when the channel is saturated")
}

func TestPublishIgnoresUnmarshalableTypeWithoutPanicking(t *testing.T) {
	h := NewHub(testLogger(), "escrow-engine")
	assert.NotPanics(t, func() {
		h.Publish("broken", func() {})
	})
	assert.Empty(t, h.broadcast)
}
