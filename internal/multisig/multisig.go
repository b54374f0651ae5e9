// Package multisig implements the N-of-M payout approval gate (C8) of
// spec.md §4.8, grounded in original_source's MultisigConfig/PayoutApproval
// structs (contracts/program-escrow/src/lib.rs).
package multisig

import (
	"github.com/google/uuid"

	"github.com/grainlify/escrow-engine/internal/amount"
	"github.com/grainlify/escrow-engine/internal/cerr"
)

// Config is the per-program multisig policy.
type Config struct {
	ThresholdAmount     amount.Amount
	Signers             []string
	RequiredSignatures  uint32
}

// IsSigner reports whether addr is a configured signer.
func (c Config) IsSigner(addr string) bool {
	for _, s := range c.Signers {
		if s == addr {
			return true
		}
	}
	return false
}

// RequiresApproval reports whether a payout of amt must go through the
// multisig path instead of executing immediately (spec.md §4.10:
// "amount >= multisig.threshold_amount").
func (c Config) RequiresApproval(amt amount.Amount) bool {
	if len(c.Signers) == 0 || c.RequiredSignatures == 0 {
		return false
	}
	return amount.Cmp(amt, c.ThresholdAmount) >= 0
}

// Approval is the in-flight approval record for one (program, recipient)
// pair — spec.md §3 PayoutApproval.
type Approval struct {
	ID        string // correlation id, surfaced in events/HTTP responses
	ProgramID string
	Recipient string
	Amount    amount.Amount
	Approvals []string // distinct signer addresses, insertion order
}

func NewApproval(programID, recipient string, amt amount.Amount) *Approval {
	return &Approval{ID: uuid.NewString(), ProgramID: programID, Recipient: recipient, Amount: amt}
}

func (a *Approval) hasApproved(signer string) bool {
	for _, s := range a.Approvals {
		if s == signer {
			return true
		}
	}
	return false
}

// Approve records signer's approval. Unknown signers fail Unauthorized;
// duplicate approvals from the same signer are idempotent (no error, no
// duplicate entry). Returns true once the threshold is reached — the
// caller must then execute the payout and discard the Approval record.
func (a *Approval) Approve(cfg Config, signer string) (reached bool, err error) {
	if !cfg.IsSigner(signer) {
		return false, cerr.New(cerr.Unauthorized)
	}
	if !a.hasApproved(signer) {
		a.Approvals = append(a.Approvals, signer)
	}
	return uint32(len(a.Approvals)) >= cfg.RequiredSignatures, nil
}
