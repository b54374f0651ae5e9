// Package audit provides a structured, append-only audit trail for
// every mutator invocation — separate from the operational slog logging
// in cmd/ and internal/api, grounded on zerolog's builder-style logger
// (the rs/zerolog import present in the retrieval pack's
// other_examples/ snippets). Audit entries are a diagnostic log, not
// engine state: spec.md §4.12 keeps events "observability only", and
// the audit trail is one more observability surface alongside the
// websocket event hub, not a substitute for it.
package audit

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger pre-configured with the contract
// identity, so every audit line is already attributable.
type Logger struct {
	log zerolog.Logger
}

// New builds a Logger writing JSON lines to w (os.Stdout in production,
// a buffer in tests) tagged with contract.
func New(w io.Writer, contract string) *Logger {
	l := zerolog.New(w).With().Timestamp().Str("contract", contract).Logger()
	return &Logger{log: l}
}

// Default builds a Logger writing to os.Stdout.
func Default(contract string) *Logger {
	return New(os.Stdout, contract)
}

// Mutator records one mutator invocation outcome.
func (l *Logger) Mutator(op, caller string, err error) {
	ev := l.log.Info()
	if err != nil {
		ev = l.log.Warn().Err(err)
	}
	ev.Str("op", op).Str("caller", caller).Msg("mutator invoked")
}

// CircuitTransition records a circuit breaker state change.
func (l *Logger) CircuitTransition(from, to, reason string) {
	l.log.Warn().Str("from", from).Str("to", to).Str("reason", reason).Msg("circuit breaker transition")
}

// Upgrade records an upgrade/rollback invocation.
func (l *Logger) Upgrade(newHash string) {
	l.log.Info().Str("new_hash", newHash).Msg("contract upgraded")
}
