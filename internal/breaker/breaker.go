// Package breaker implements the three-state circuit breaker (C5) of
// spec.md §4.5, grounded directly in
// original_source/contracts/program-escrow/src/error_recovery_tests.rs
// (check_and_allow, record_success, record_failure, reset_circuit_breaker,
// execute_with_retry, get_state/get_status/get_config/get_error_log).
package breaker

import (
	"context"
	"sync"

	"github.com/grainlify/escrow-engine/internal/cerr"
)

// State is one of Closed, Open, HalfOpen.
type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Closed"
	}
}

// Config is the breaker's tunable thresholds.
type Config struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	MaxErrorLog      uint32 // bounded ring buffer capacity, spec.md's MAX_ERROR_LOG_DEFAULT = 10
}

// DefaultConfig matches spec.md §6's persisted constant.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, SuccessThreshold: 2, MaxErrorLog: 10}
}

// ErrorLogEntry is one bounded ring-buffer record, per spec.md §4.5.
type ErrorLogEntry struct {
	Timestamp       uint64
	Code            cerr.Code
	FailureCountAt  uint32
}

// Breaker is the process-wide circuit breaker instance for one engine.
type Breaker struct {
	mu sync.Mutex

	state          State
	failureCount   uint32
	successCount   uint32
	openedAt       uint64
	config         Config
	errorLog       []ErrorLogEntry
	admin          string
}

func New(admin string, cfg Config) *Breaker {
	return &Breaker{state: Closed, config: cfg, admin: admin}
}

// Status is a read-only snapshot, for the get_status/get_config query
// surface original_source's error_recovery_tests.rs exercises.
type Status struct {
	State        State
	FailureCount uint32
	SuccessCount uint32
	OpenedAt     uint64
	Config       Config
	ErrorLog     []ErrorLogEntry
}

func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	logCopy := append([]ErrorLogEntry(nil), b.errorLog...)
	return Status{
		State:        b.state,
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
		OpenedAt:     b.openedAt,
		Config:       b.config,
		ErrorLog:     logCopy,
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetConfig replaces the thresholds; takes effect immediately.
func (b *Breaker) SetConfig(cfg Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg
}

// CheckAndAllow fails with cerr.CircuitOpen while the breaker is Open;
// Closed and HalfOpen both allow the call through, per the transition
// table in spec.md §4.5 ("Open | any mutator check_and_allow | rejected").
func (b *Breaker) CheckAndAllow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open {
		return cerr.New(cerr.CircuitOpen)
	}
	return nil
}

// RecordSuccess applies the Closed/success and HalfOpen/success
// transitions. Successes observed while Open are ignored entirely.
func (b *Breaker) RecordSuccess(now uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		b.failureCount = 0
	case HalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.state = Closed
			b.failureCount = 0
			b.successCount = 0
		}
	case Open:
		// ignored, per spec.md §4.5
	}
}

// RecordFailure applies the Closed/failure and HalfOpen/failure
// transitions. Additional failures observed while already Open are
// ignored (the breaker is already tripped).
func (b *Breaker) RecordFailure(now uint64, code cerr.Code) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.config.FailureThreshold {
			b.trip(now, code)
		} else {
			b.appendLog(now, code)
		}
	case HalfOpen:
		b.trip(now, code)
	case Open:
		// ignored, per spec.md §4.5
	}
}

func (b *Breaker) trip(now uint64, code cerr.Code) {
	b.state = Open
	b.openedAt = now
	b.appendLog(now, code)
}

func (b *Breaker) appendLog(now uint64, code cerr.Code) {
	maxLog := b.config.MaxErrorLog
	if maxLog == 0 {
		maxLog = DefaultConfig().MaxErrorLog
	}
	entry := ErrorLogEntry{Timestamp: now, Code: code, FailureCountAt: b.failureCount}
	b.errorLog = append(b.errorLog, entry)
	if uint32(len(b.errorLog)) > maxLog {
		b.errorLog = b.errorLog[uint32(len(b.errorLog))-maxLog:]
	}
}

// Reset moves Open->HalfOpen (admin action). A reset while already
// HalfOpen is idempotent — no transition, no error — per the Open
// Question resolution in spec.md §9. A reset while Closed is also a
// no-op: there is nothing to recover from.
func (b *Breaker) Reset(admin string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if admin != b.admin {
		return cerr.New(cerr.Unauthorized)
	}
	if b.state == Open {
		b.state = HalfOpen
		b.successCount = 0
	}
	return nil
}

// SetAdmin changes the breaker's admin (used when the owning engine's
// admin is rotated via upgrade/set_admin).
func (b *Breaker) SetAdmin(admin string) { b.mu.Lock(); b.admin = admin; b.mu.Unlock() }

// Close forces the breaker Closed regardless of state and clears both
// counters.
func (b *Breaker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
}

// Op is a callable the retry wrapper attempts; it returns a cerr error
// code on failure (e.g. a transient token-adapter error) or nil.
type Op func(ctx context.Context) error

// ExecuteWithRetry wraps op with up to maxAttempts tries, recording a
// success on the first OK and a failure after each error. If the
// breaker opens mid-sequence it stops immediately and returns 0 attempts
// consumed with cerr.CircuitOpen, per spec.md §4.5/§7.
func (b *Breaker) ExecuteWithRetry(ctx context.Context, now uint64, maxAttempts uint32, op Op, failureCode cerr.Code) (attempts uint32, err error) {
	if err := b.CheckAndAllow(); err != nil {
		return 0, err
	}
	for attempts = 1; attempts <= maxAttempts; attempts++ {
		if err := op(ctx); err == nil {
			b.RecordSuccess(now)
			return attempts, nil
		}
		b.RecordFailure(now, failureCode)
		if b.State() == Open {
			return 0, cerr.New(cerr.CircuitOpen)
		}
	}
	return attempts - 1, cerr.Wrap(failureCode, "operation failed after %d attempts", maxAttempts)
}
