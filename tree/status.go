// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tree implements the Skov block tree described in
// SPEC_FULL.md §4.E: the block-status map, height-indexed branches, the
// finalization list, and the focus block. It exposes the structural
// primitives the pipeline and finalization packages compose into the
// receive/execute and doTrustedFinalize algorithms; tree itself owns the
// invariants in spec.md §8 (finalization monotonicity, branch coherence).
package tree

import "github.com/luxfi/concord/idhash"

// Status is a block's position in the tree, per the glossary.
// StatusUnknown is never stored -- it is returned for hashes the tree has
// never heard of, distinguishing "unknown" from "known but dead".
type Status int

const (
	StatusUnknown Status = iota
	StatusAlive
	StatusFinalized
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "Alive"
	case StatusFinalized:
		return "Finalized"
	case StatusDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// FinalizationEntry is one element of the finalization list: the record
// together with the block hash it finalizes.
type FinalizationEntry struct {
	Index          uint64
	FinalizedBlock idhash.Hash
	Delay          uint64
	Proof          []byte
}
