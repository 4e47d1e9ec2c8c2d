// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package block defines the logical block and transaction types shared by
// every other package in this module, per SPEC_FULL.md §3 (Data Model).
package block

import (
	"time"

	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/utils/wrappers"
	"github.com/luxfi/ids"
)

// Slot is a monotone time unit; blocks are baked for slots.
type Slot uint64

// Height is a block's distance from genesis; height = parent.height + 1.
type Height uint64

// Block is the logical representation of a baked block, per §3.
type Block struct {
	Parent               idhash.Hash
	LastFinalized        idhash.Hash
	SlotNumber           Slot
	BlockHeight          Height
	Baker                ids.NodeID
	VRFProof             []byte
	BlockNonce           []byte
	Finalization         *FinalizationData
	Transactions         []Transaction
	ClaimedStateHash     idhash.Hash
	ClaimedOutcomesHash  idhash.Hash
	BakerSignature       []byte

	// GenesisIndex identifies the era this block belongs to; it is not
	// part of the hashed content (it is carried on the wire envelope,
	// SPEC_FULL.md §6) but every in-memory Block still carries it so the
	// tree can reject cross-era blocks cheaply.
	GenesisIndex uint32
}

// FinalizationData is the optional finalization record a baker embeds in
// a block to prove that some earlier block is now irreversible.
type FinalizationData struct {
	Index          uint64
	FinalizedBlock idhash.Hash
	Delay          Slot
	Proof          []byte
}

// Hash returns the block's content hash, i.e. its identity.
func (b *Block) Hash() idhash.Hash {
	return idhash.Of(b)
}

// CanonicalBytes implements idhash.Encoder. The encoding is deterministic
// and field-order-fixed so that equal logical blocks always hash equally,
// per SPEC_FULL.md §4.A.
func (b *Block) CanonicalBytes() []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 256), MaxSize: 1 << 30}
	p.PackFixedBytes(b.Parent[:])
	p.PackFixedBytes(b.LastFinalized[:])
	p.PackLong(uint64(b.SlotNumber))
	p.PackLong(uint64(b.BlockHeight))
	p.PackFixedBytes(b.Baker[:])
	p.PackBytes(b.VRFProof)
	p.PackBytes(b.BlockNonce)
	if b.Finalization != nil {
		p.PackBool(true)
		p.PackLong(b.Finalization.Index)
		p.PackFixedBytes(b.Finalization.FinalizedBlock[:])
		p.PackLong(uint64(b.Finalization.Delay))
		p.PackBytes(b.Finalization.Proof)
	} else {
		p.PackBool(false)
	}
	p.PackInt(uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		p.PackBytes(tx.CanonicalBytes())
	}
	p.PackFixedBytes(b.ClaimedStateHash[:])
	p.PackFixedBytes(b.ClaimedOutcomesHash[:])
	return p.Bytes
}

// SlotTime resolves a slot to wall-clock time given genesis time and slot
// duration; used by the early-block-threshold check in the pipeline.
func SlotTime(genesisTime time.Time, slotDuration time.Duration, s Slot) time.Time {
	return genesisTime.Add(time.Duration(s) * slotDuration)
}
