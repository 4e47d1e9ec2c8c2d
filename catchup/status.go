// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package catchup implements the catch-up status query and the versioned
// block-bundle export/import format of SPEC_FULL.md §6/§9.
package catchup

import "github.com/luxfi/concord/idhash"

// Status summarizes a node's view of the chain for the catch-up handshake,
// per the glossary's "Catch-up" entry: the procedure by which a node
// requests missing blocks and finalizations from a peer.
type Status struct {
	GenesisIndex        uint32
	LastFinalizedBlock  idhash.Hash
	LastFinalizedHeight uint64
	BestBlock           idhash.Hash
	BestBlockHeight     uint64
}

// NeedsCatchUp reports whether peer is ahead of us at the last-finalized
// checkpoint, the trigger condition for requesting an export bundle.
func (s Status) NeedsCatchUp(peer Status) bool {
	return peer.GenesisIndex == s.GenesisIndex && peer.LastFinalizedHeight > s.LastFinalizedHeight
}
