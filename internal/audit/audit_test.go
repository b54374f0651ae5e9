package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestMutatorLogsSuccessAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "bounty-contract")
	l.Mutator("lock_funds", "alice", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "lock_funds", lines[0]["op"])
	assert.Equal(t, "alice", lines[0]["caller"])
	assert.Equal(t, "bounty-contract", lines[0]["contract"])
}

func TestMutatorLogsFailureAtWarnLevelWithError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "bounty-contract")
	l.Mutator("release_funds", "bob", errors.New("funds not locked"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "funds not locked", lines[0]["error"])
}

func TestCircuitTransitionLogsFromToReason(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "program-contract")
	l.CircuitTransition("Closed", "Open", "failure threshold reached")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Closed", lines[0]["from"])
	assert.Equal(t, "Open", lines[0]["to"])
	assert.Equal(t, "failure threshold reached", lines[0]["reason"])
}

func TestUpgradeLogsNewHash(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "program-contract")
	l.Upgrade("v2")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "v2", lines[0]["new_hash"])
}
