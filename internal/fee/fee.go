// Package fee implements the basis-points fee engine (C7) of spec.md
// §4.7/§3.
package fee

import (
	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/cerr"
)

// MaxRateBp is the strict upper bound named in spec.md §3/§9: 5000 bp
// (50%) is accepted, 10000 is not, even temporarily.
const MaxRateBp = 5000

// BasisPoints is the fixed denominator, named in spec.md §6.
const BasisPoints = 10_000

// Config is the process-wide fee configuration (§3 FeeConfig).
type Config struct {
	LockFeeRateBp   uint32
	ReleaseFeeRateBp uint32
	PayoutFeeRateBp uint32
	FeeRecipient    string
	Enabled         bool
}

// Validate enforces 0 <= rate <= MaxRateBp for every configured rate.
func (c Config) Validate() error {
	for _, r := range []uint32{c.LockFeeRateBp, c.ReleaseFeeRateBp, c.PayoutFeeRateBp} {
		if r > MaxRateBp {
			return cerr.New(cerr.InvalidFeeRate)
		}
	}
	return nil
}

// Engine holds the current fee configuration, updated only via Update
// (which preserves prior state on validation failure, per spec.md §4.7/
// P9).
type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Update replaces the configuration iff it validates; on failure the
// engine's prior configuration is left untouched and InvalidFeeRate is
// returned.
func (e *Engine) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// Split computes the fee and net amount for a payout of amt using
// rateBp, with checked arithmetic. If the engine is disabled, or either
// endpoint of the split — the payout recipient or the configured
// FeeRecipient — is the contract itself, the fee is skipped and the
// full amount is returned as net with a zero fee (spec.md §4.7).
func (e *Engine) Split(amt amount.Amount, rateBp uint32, recipient, contract string) (feeAmt, net amount.Amount, err error) {
	if !e.cfg.Enabled || recipient == contract || e.cfg.FeeRecipient == contract || e.cfg.FeeRecipient == "" {
		return amount.Zero(), amt, nil
	}
	feeAmt, err = amount.BasisPoints(amt, rateBp)
	if err != nil {
		return amount.Amount{}, amount.Amount{}, cerr.Wrap(cerr.Overflow, "fee computation overflow")
	}
	net, err = amount.Sub(amt, feeAmt)
	if err != nil {
		return amount.Amount{}, amount.Amount{}, cerr.Wrap(cerr.Overflow, "fee computation overflow")
	}
	return feeAmt, net, nil
}
