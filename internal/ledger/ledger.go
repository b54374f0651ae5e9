// Package ledger models the external "ledger/runtime" collaborator named
// in spec.md §1: monotonic wall-clock timestamps, a current-contract
// identity, authorization assertions for named addresses, and an event
// sink. Everything in this package is the contract boundary the engines
// (internal/bounty, internal/program) are written against; production
// wires it to real clock/auth/event-bus implementations, tests wire it
// to the fakes in ledger_test.go style harnesses.
package ledger

import (
	"context"
	"time"

	"github.com/grainlify/escrow-engine/internal/cerr"
)

// Clock returns the runtime's monotonic wall-clock "now", in seconds.
type Clock interface {
	Now() uint64
}

// SystemClock is the production Clock, backed by time.Now().
type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// FixedClock is a settable Clock for deterministic tests, mirroring the
// Soroban test harness's env.ledger().set_timestamp(..).
type FixedClock struct {
	T uint64
}

func (c *FixedClock) Now() uint64 { return c.T }
func (c *FixedClock) Set(t uint64) { c.T = t }
func (c *FixedClock) Advance(d time.Duration) { c.T += uint64(d.Seconds()) }

// Authorizer asserts that the caller identified by addr has authorized
// the current invocation, standing in for Soroban's require_auth. The
// spec treats signature cryptography as out of scope (Non-goals, §1);
// HTTP-boundary authorization is instead handled by internal/authn, and
// Authorizer here is the call-scoped assertion the engine core checks.
type Authorizer interface {
	RequireAuth(ctx context.Context, addr string) error
}

// CallerAuthorizer trusts whichever address context carries as the
// authenticated caller (set by internal/authn's middleware), the way a
// Soroban contract trusts require_auth once the envelope's signature
// has already been checked by the host.
type CallerAuthorizer struct{}

type callerKey struct{}

// WithCaller returns a context carrying addr as the authenticated caller.
func WithCaller(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, callerKey{}, addr)
}

// CallerFromContext extracts the authenticated caller address, if any.
func CallerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(callerKey{}).(string)
	return v, ok
}

func (CallerAuthorizer) RequireAuth(ctx context.Context, addr string) error {
	caller, ok := CallerFromContext(ctx)
	if !ok || caller == "" {
		return cerr.New(cerr.Unauthorized)
	}
	if caller != addr {
		return cerr.New(cerr.Unauthorized)
	}
	return nil
}

// EventSink is the fire-and-forget event emission surface of spec.md
// §4.12 / §6 ("event emission is a fire-and-forget sink"). Publish must
// never block or fail a mutator: errors are logged, not propagated.
type EventSink interface {
	Publish(topic string, payload any)
}

// Runtime bundles the collaborators an engine core depends on.
type Runtime struct {
	Clock      Clock
	Authorizer Authorizer
	Events     EventSink
	Contract   string // current-contract identity, used in events/audit
}

func NewRuntime(clock Clock, auth Authorizer, events EventSink, contract string) *Runtime {
	return &Runtime{Clock: clock, Authorizer: auth, Events: events, Contract: contract}
}

func (r *Runtime) Now() uint64 { return r.Clock.Now() }

func (r *Runtime) RequireAuth(ctx context.Context, addr string) error {
	return r.Authorizer.RequireAuth(ctx, addr)
}

func (r *Runtime) Emit(topic string, payload any) {
	if r.Events == nil {
		return
	}
	r.Events.Publish(topic, payload)
}
