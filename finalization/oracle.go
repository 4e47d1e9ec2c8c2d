// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finalization implements the finalization processor of
// SPEC_FULL.md §4.G: given a trusted finalization record, advance the
// last-finalized block, prune the trunk, and archive superseded state.
// The BFT protocol itself is an external collaborator, modeled as the
// Oracle interface (§5) so this package never implements consensus
// messaging.
package finalization

import (
	"context"
	"errors"

	"github.com/luxfi/concord/idhash"
)

// FinalizationRecord is the cryptographic witness that a specific block
// at a specific index is irreversible. Its shape (index, hash, delay,
// aggregate proof, signer bitmap) is grounded on nspcc-dev-dbft's
// payload.Commit/payload.RecoveryMessage pattern: a small struct with a
// canonical encoding. It carries no discriminant of its own.
type FinalizationRecord struct {
	Index          uint64
	FinalizedBlock idhash.Hash
	Delay          uint64
	SignerBitmap   []byte
	AggregateProof []byte
}

// Committee describes the signer set behind a finalization record, used
// for reward accounting once a block embedding the record executes.
type Committee struct {
	Index   uint64
	Signers []idhash.Hash // baker ids that signed this finalization round
}

// Outcome is the oracle's verdict on a submitted record.
type Outcome int

const (
	OutcomeConsumed Outcome = iota
	OutcomeDuplicate
	OutcomeRejected
)

// Oracle is the finalization black box: it returns a fixed outcome code
// plus, on success, a committee descriptor (§5).
type Oracle interface {
	Consume(ctx context.Context, record FinalizationRecord) (Outcome, error)
	CommitteeAt(index uint64) (Committee, error)
}

var ErrUnknownIndex = errors.New("finalization: no committee recorded for index")
