// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txtable implements the transaction table described in
// SPEC_FULL.md §4.C: every known transaction indexed by hash and by
// sender-nonce / update-sequence, with cached verification results and
// the non-finalized ordering indices admission depends on.
package txtable

import (
	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/idhash"
)

// VerificationResult is the scheduler's cached verdict on a transaction.
// The scheduler decides whether it might still be valid in some future
// state (MaybeValid) so admission knows whether re-verification can be
// skipped, per §4.C.
type VerificationResult struct {
	Valid         bool
	MaybeValid    bool // could become valid in a future state
	FailureReason string
}

// Status is one of the four lifecycle states below.
type Status int

const (
	StatusReceived Status = iota
	StatusCommitted
	StatusFinalized
	StatusDropped
)

// Outcome is the scheduler's per-transaction execution result, recorded
// once a block committing the transaction is known.
type Outcome struct {
	Success bool
	Events  []byte // opaque outcome payload from the execution engine
	Energy  uint64
}

// Entry is everything the table tracks about one transaction.
type Entry struct {
	Tx           block.Transaction
	Status       Status
	ReceivedSlot block.Slot
	Verification VerificationResult
	// Commits maps a block hash this transaction was included in to the
	// index it occupied and the resulting outcome. Multiple blocks can
	// commit the same not-yet-finalized transaction on competing forks.
	Commits map[idhash.Hash]Commitment
	// FinalizedIn is set once Status == StatusFinalized.
	FinalizedIn idhash.Hash
	FinalizedOutcome Outcome
	ArrivalUnix  int64
}

// Commitment records that a transaction was included at txIdx in block,
// at the given slot, pending finalization.
type Commitment struct {
	Slot    block.Slot
	TxIndex int
	Outcome Outcome
}
