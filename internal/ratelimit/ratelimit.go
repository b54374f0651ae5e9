// Package ratelimit implements the per-caller sliding window plus
// cooldown and whitelist bypass of spec.md §4.6 (C6). The window and
// cooldown are evaluated against the engine's simulated runtime clock
// (spec.md's "now"), not wall-clock time, so the policy is driven by
// plain arithmetic here; golang.org/x/time/rate is used instead at the
// HTTP ingress in internal/api, where real wall-clock throttling of raw
// requests (as r3e-network-service_layer applies it) is the appropriate
// layer — see DESIGN.md.
package ratelimit

import (
	"sync"

	"github.com/grainlify/escrow-engine/internal/cerr"
)

// Config is the admin-tunable policy, per spec.md §4.6.
type Config struct {
	WindowSize     uint64 // seconds
	MaxOperations  uint32
	CooldownPeriod uint64 // seconds
}

func DefaultConfig() Config {
	return Config{WindowSize: 60, MaxOperations: 20, CooldownPeriod: 1}
}

type callerState struct {
	windowStart uint64
	opsInWindow uint32
	lastOpAt    uint64
}

// Limiter is the process-wide, per-caller rate limiter instance.
type Limiter struct {
	mu        sync.Mutex
	cfg       Config
	callers   map[string]*callerState
	whitelist map[string]bool
}

func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, callers: make(map[string]*callerState), whitelist: make(map[string]bool)}
}

// SetConfig updates the policy; takes effect immediately for subsequent
// calls, and every caller's existing window and cooldown state is
// discarded.
func (l *Limiter) SetConfig(cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	// Existing cooldown buckets are rebuilt lazily on next Allow call so
	// a changed CooldownPeriod takes effect immediately too.
	l.callers = make(map[string]*callerState)
}

// SetWhitelist adds addrs to the whitelist bypass set, or removes them
// when whitelisted is false; other entries are left as they are.
func (l *Limiter) SetWhitelist(addrs []string, whitelisted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range addrs {
		if whitelisted {
			l.whitelist[a] = true
		} else {
			delete(l.whitelist, a)
		}
	}
}

func (l *Limiter) IsWhitelisted(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.whitelist[addr]
}

// Allow applies the five-step algorithm of spec.md §4.6 for caller at
// time now. Returns cerr.Cooldown or cerr.RateLimit on rejection.
func (l *Limiter) Allow(caller string, now uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.whitelist[caller] {
		return nil
	}

	st, ok := l.callers[caller]
	if !ok {
		st = &callerState{windowStart: now}
		l.callers[caller] = st
	}

	if st.lastOpAt > 0 && now-st.lastOpAt < l.cfg.CooldownPeriod {
		return cerr.New(cerr.Cooldown)
	}

	if now-st.windowStart >= l.cfg.WindowSize {
		st.windowStart = now
		st.opsInWindow = 0
	}

	if st.opsInWindow >= l.cfg.MaxOperations {
		return cerr.New(cerr.RateLimit)
	}

	st.opsInWindow++
	st.lastOpAt = now
	return nil
}

// CallerSnapshot is a read-only view of one caller's window state, used
// by admin/debug queries.
type CallerSnapshot struct {
	WindowStart   uint64
	OpsInWindow   uint32
	LastOpAt      uint64
	Whitelisted   bool
}

func (l *Limiter) Snapshot(caller string) CallerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.callers[caller]
	snap := CallerSnapshot{Whitelisted: l.whitelist[caller]}
	if ok {
		snap.WindowStart = st.windowStart
		snap.OpsInWindow = st.opsInWindow
		snap.LastOpAt = st.lastOpAt
	}
	return snap
}
