// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/pending"
	"github.com/luxfi/concord/tree"
	"github.com/luxfi/concord/txtable"
	"github.com/luxfi/concord/wire"
	"github.com/luxfi/log"
	safemath "github.com/luxfi/utils/math"
)

// OnFinalizeFunc is invoked once per successful doTrustedFinalize, after
// every structural mutation is visible, per §4.G step 10.
type OnFinalizeFunc func(record FinalizationRecord, newLFB idhash.Hash, archived []idhash.Hash)

// Processor is the finalization processor (§4.G). It never talks BFT
// consensus itself: it only reacts to a record the Oracle has already
// authenticated.
type Processor struct {
	tree    *tree.Tree
	txtable *txtable.Table
	pending *pending.Table
	log     log.Logger

	onFinalize OnFinalizeFunc
}

func New(t *tree.Tree, tt *txtable.Table, pt *pending.Table, logger log.Logger, onFinalize OnFinalizeFunc) *Processor {
	return &Processor{tree: t, txtable: tt, pending: pt, log: logger, onFinalize: onFinalize}
}

// DoTrustedFinalize runs steps 1-10 of §4.G against an already-verified
// record (the caller obtained it from the Oracle).
func (p *Processor) DoTrustedFinalize(record FinalizationRecord) wire.ResultCode {
	list := p.tree.FinalizationList()
	nextIndex := list[len(list)-1].Index + 1

	// Step 1: index check.
	if record.Index != nextIndex {
		if record.Index < nextIndex {
			for _, e := range list {
				if e.Index == record.Index && e.FinalizedBlock == record.FinalizedBlock {
					return wire.Duplicate
				}
			}
		}
		return wire.Invalid
	}

	// Step 2: the finalized block must be Alive.
	switch p.tree.Status(record.FinalizedBlock) {
	case tree.StatusUnknown:
		return wire.Unverifiable
	case tree.StatusAlive:
		// proceed
	default:
		return wire.Invalid
	}

	newLFB := record.FinalizedBlock
	newBlk, ok := p.tree.Block(newLFB)
	if !ok {
		return wire.Unverifiable
	}

	// Step 3: focus block.
	focus := p.tree.FocusBlock()
	if !p.tree.IsAncestor(focus, newLFB) {
		if err := p.tree.ChangeFocusBlock(newLFB); err != nil {
			return wire.Invalid
		}
	}

	oldLFB, oldHeight := p.tree.LastFinalized()
	_ = oldLFB
	heightDelta, err := safemath.Sub(uint64(newBlk.BlockHeight), uint64(oldHeight))
	if err != nil {
		return wire.Invalid
	}
	pruneHeight := int(heightDelta)
	if pruneHeight <= 0 {
		return wire.Invalid
	}

	// Step 4: walk the trunk from newLFB down to build the ascending
	// to-finalize chain, and the descending list of non-ancestor siblings
	// to remove at each pruned layer.
	toFinalize := make([]idhash.Hash, pruneHeight)
	cursor := newLFB
	for i := pruneHeight - 1; i >= 0; i-- {
		toFinalize[i] = cursor
		parent, ok := p.tree.ParentOf(cursor)
		if !ok {
			return wire.Invalid
		}
		cursor = parent
	}

	var toRemove []idhash.Hash
	for depth := 0; depth < pruneHeight; depth++ {
		layer := p.tree.BranchLayer(depth)
		keep := toFinalize[depth]
		for _, h := range layer {
			if h != keep {
				toRemove = append(toRemove, h)
			}
		}
	}

	// Step 7: above the pruned trunk, keep only blocks whose parent
	// survived the previous (now re-indexed) layer.
	var remaining [][]idhash.Hash
	keptPrev := map[idhash.Hash]bool{newLFB: true}
	totalLayers := p.tree.NumBranchLayers()
	for depth := pruneHeight; depth < totalLayers; depth++ {
		layer := p.tree.BranchLayer(depth)
		var kept []idhash.Hash
		nextKept := make(map[idhash.Hash]bool)
		for _, h := range layer {
			parent, ok := p.tree.ParentOf(h)
			if ok && keptPrev[parent] {
				kept = append(kept, h)
				nextKept[h] = true
			} else {
				toRemove = append(toRemove, h)
			}
		}
		remaining = append(remaining, kept)
		keptPrev = nextKept
	}
	for len(remaining) > 0 && len(remaining[len(remaining)-1]) == 0 {
		remaining = remaining[:len(remaining)-1]
	}

	// Step 8: decreasing-height order, so a parent is never marked dead
	// before its child.
	reverseHashes(toRemove)

	plan := tree.AdvancePlan{
		Record: tree.FinalizationEntry{
			Index:          record.Index,
			FinalizedBlock: record.FinalizedBlock,
			Delay:          record.Delay,
			Proof:          record.AggregateProof,
		},
		ToFinalize:        toFinalize,
		ToRemove:          toRemove,
		RemainingBranches: remaining,
	}
	if err := p.tree.Advance(plan); err != nil {
		return wire.Invalid
	}

	// Step 5 (transaction side): finalize every transaction of every
	// newly-finalized block, advancing nonce indices and dropping
	// same-nonce competitors.
	for _, h := range toFinalize {
		blk, ok := p.tree.Block(h)
		if !ok {
			continue
		}
		for _, tx := range blk.Transactions {
			_ = p.txtable.Finalize(h, tx.Hash())
		}
	}

	// Step 8 (transaction side): every sibling pruned out of the trunk at
	// this or an earlier layer is Dead, so its Committed transactions no
	// longer have a live block behind them; drop the (now stale) commit
	// association rather than let it linger past the block's own purge.
	for _, h := range toRemove {
		blk, ok := p.tree.Block(h)
		if !ok {
			continue
		}
		for _, tx := range blk.Transactions {
			p.txtable.MarkDeadInBlock(h, tx.Hash())
		}
	}

	// Step 9: purge pending blocks at or below the new LFB's slot, then
	// reclaim the in-memory node records Advance just marked Dead.
	p.pending.PurgePending(newBlk.SlotNumber)
	p.tree.PurgeDead()

	archived := append([]idhash.Hash{}, toFinalize[:len(toFinalize)-1]...)
	if p.onFinalize != nil {
		p.onFinalize(record, newLFB, archived)
	}
	return wire.Success
}

// reverseHashes reverses s in place.
func reverseHashes(s []idhash.Hash) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

