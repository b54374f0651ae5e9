// Package events defines the structured, versioned event payloads (C12)
// of spec.md §4.12, adapted from the teacher's on-chain event envelope
// (internal/soroban's indexer-facing schema) into the shape this engine
// itself originates: every observable state change emits one topic tag
// plus a tagged payload carrying Version == 2, so consumers can evolve
// independently of storage format (spec.md §6).
package events

import "encoding/json"

// Topic tags, named directly from spec.md §4.12.
const (
	TopicPrgInit           = "PrgInit"
	TopicFndsLock          = "FndsLock"
	TopicBatchPay          = "BatchPay"
	TopicPayout            = "Payout"
	TopicScheduleCreated   = "ScheduleCreated"
	TopicScheduleReleased  = "ScheduleReleased"
	TopicCircuitTransition = "CircuitTransition"
	TopicPauseChanged      = "pause_set"
	TopicFeeChanged        = "fee_updated"

	TopicInit              = "init"
	TopicLocked            = "locked"
	TopicReleased          = "released"
	TopicRefunded          = "refunded"
	TopicPartiallyRefunded = "partially_refunded"
	TopicClaimAuthorized   = "claim_authorized"
	TopicClaimed           = "claimed"
)

// Envelope is the outbound wrapper every Hub.Publish call wraps a
// payload in before broadcasting to websocket subscribers — the native
// equivalent of the teacher's OnChainEventEnvelope, minus the ledger/
// tx-hash fields that only make sense for an indexer consuming someone
// else's chain.
type Envelope struct {
	ID        string          `json:"id"`
	Contract  string          `json:"contract"`
	Topic     string          `json:"topic"`
	Timestamp uint64          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Bounty-side payloads (spec.md §4.12).

type FundsLocked struct {
	Version   uint32 `json:"version"`
	BountyID  uint64 `json:"bounty_id"`
	Amount    string `json:"amount"`
	Depositor string `json:"depositor"`
	Deadline  uint64 `json:"deadline"`
}

type FundsReleased struct {
	Version   uint32 `json:"version"`
	BountyID  uint64 `json:"bounty_id"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type FundsRefunded struct {
	Version  uint32 `json:"version"`
	BountyID uint64 `json:"bounty_id"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
}

type ClaimAuthorized struct {
	Version   uint32 `json:"version"`
	BountyID  uint64 `json:"bounty_id"`
	Claimant  string `json:"claimant"`
	ExpiresAt uint64 `json:"expires_at"`
}

// Program-side payloads.

type ProgramInitialized struct {
	Version             uint32 `json:"version"`
	ProgramID           string `json:"program_id"`
	AuthorizedPayoutKey string `json:"authorized_payout_key"`
}

type Payout struct {
	Version          uint32 `json:"version"`
	ProgramID        string `json:"program_id"`
	Recipient        string `json:"recipient"`
	Amount           string `json:"amount"`
	Fee              string `json:"fee"`
	RemainingBalance string `json:"remaining_balance"`
}

type BatchPayout struct {
	Version        uint32 `json:"version"`
	ProgramID      string `json:"program_id"`
	RecipientCount uint32 `json:"recipient_count"`
	TotalAmount    string `json:"total_amount"`
}

type ScheduleCreated struct {
	Version          uint32 `json:"version"`
	ProgramID        string `json:"program_id"`
	ScheduleID       uint64 `json:"schedule_id"`
	ReleaseTimestamp uint64 `json:"release_timestamp"`
}

type ScheduleReleased struct {
	Version    uint32 `json:"version"`
	ProgramID  string `json:"program_id"`
	ScheduleID uint64 `json:"schedule_id"`
	Recipient  string `json:"recipient"`
}

type CircuitTransition struct {
	Version uint32 `json:"version"`
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason,omitempty"`
}
