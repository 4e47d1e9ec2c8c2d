// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"errors"
	"sync"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/log"
)

var (
	ErrAlreadyKnown  = errors.New("tree: block already known")
	ErrUnknownParent = errors.New("tree: parent not present in tree")
	ErrParentNotLive = errors.New("tree: parent is not Alive or Finalized")
	ErrNotLive       = errors.New("tree: block is not Alive or Finalized")
)

type node struct {
	blk    *block.Block
	state  *blockstate.Snapshot
	status Status
	height block.Height
}

// Tree is the Skov block tree (§4.E). It owns blockStatus, branches, the
// finalization list, and the focus block behind a single RWMutex,
// matching the teacher's backend.blkIDToStateLock (block/executor/backend.go).
type Tree struct {
	mu sync.RWMutex

	log log.Logger

	genesis idhash.Hash
	nodes   map[idhash.Hash]*node

	// branches[i] holds every Alive block at height lastFinalizedHeight+1+i.
	branches [][]idhash.Hash

	lastFinalized       idhash.Hash
	lastFinalizedHeight block.Height

	focusBlock idhash.Hash

	finalizationList []FinalizationEntry
}

// New seeds a tree with a finalized genesis block and its initial state.
func New(genesisBlock *block.Block, genesisState *blockstate.Snapshot, logger log.Logger) *Tree {
	h := genesisBlock.Hash()
	t := &Tree{
		log:     logger,
		genesis: h,
		nodes: map[idhash.Hash]*node{
			h: {blk: genesisBlock, state: genesisState, status: StatusFinalized, height: genesisBlock.BlockHeight},
		},
		lastFinalized:       h,
		lastFinalizedHeight: genesisBlock.BlockHeight,
		focusBlock:          h,
		finalizationList: []FinalizationEntry{
			{Index: 0, FinalizedBlock: h},
		},
	}
	return t
}

func (t *Tree) Genesis() idhash.Hash { return t.genesis }

// Status reports h's position in the tree; StatusUnknown if never seen.
func (t *Tree) Status(h idhash.Hash) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[h]
	if !ok {
		return StatusUnknown
	}
	return n.status
}

func (t *Tree) Block(h idhash.Hash) (*block.Block, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[h]
	if !ok {
		return nil, false
	}
	return n.blk, true
}

// State returns the frozen block-state snapshot for h, if the block is
// known and has been executed (a pending-only block has none).
func (t *Tree) State(h idhash.Hash) (*blockstate.Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[h]
	if !ok || n.state == nil {
		return nil, false
	}
	return n.state, true
}

func (t *Tree) LastFinalized() (idhash.Hash, block.Height) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastFinalized, t.lastFinalizedHeight
}

func (t *Tree) FocusBlock() idhash.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.focusBlock
}

// ChangeFocusBlock moves the focus pointer, per §4.G step 3. h must be
// Alive or Finalized.
func (t *Tree) ChangeFocusBlock(h idhash.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[h]
	if !ok || (n.status != StatusAlive && n.status != StatusFinalized) {
		return ErrNotLive
	}
	t.focusBlock = h
	return nil
}

func (t *Tree) FinalizationList() []FinalizationEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]FinalizationEntry, len(t.finalizationList))
	copy(out, t.finalizationList)
	return out
}

// ParentOf returns the parent hash of a known block.
func (t *Tree) ParentOf(h idhash.Hash) (idhash.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[h]
	if !ok {
		return idhash.Zero, false
	}
	return n.blk.Parent, true
}

// IsAncestor reports whether anc is an ancestor of (or equal to) desc,
// walking the parent chain; used by finalization's focus-block check.
func (t *Tree) IsAncestor(anc, desc idhash.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isAncestorLocked(anc, desc)
}

func (t *Tree) isAncestorLocked(anc, desc idhash.Hash) bool {
	cur := desc
	for {
		if cur == anc {
			return true
		}
		n, ok := t.nodes[cur]
		if !ok || cur == t.genesis {
			return cur == anc
		}
		cur = n.blk.Parent
	}
}

// AncestorAtHeight walks up from h to the ancestor at the given height,
// or ok=false if h's own height is below it.
func (t *Tree) AncestorAtHeight(h idhash.Hash, height block.Height) (idhash.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[h]
	if !ok || n.height < height {
		return idhash.Zero, false
	}
	cur := h
	for {
		cn := t.nodes[cur]
		if cn.height == height {
			return cur, true
		}
		cur = cn.blk.Parent
	}
}

// InsertAlive adds a freshly executed block to the tree, per §4.F step 5.
// The parent must already be Alive or Finalized.
func (t *Tree) InsertAlive(blk *block.Block, state *blockstate.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := blk.Hash()
	if _, exists := t.nodes[h]; exists {
		return ErrAlreadyKnown
	}
	parent, ok := t.nodes[blk.Parent]
	if !ok {
		return ErrUnknownParent
	}
	if parent.status != StatusAlive && parent.status != StatusFinalized {
		return ErrParentNotLive
	}

	depth := int(blk.BlockHeight - t.lastFinalizedHeight - 1)
	if depth < 0 {
		return ErrParentNotLive
	}
	for len(t.branches) <= depth {
		t.branches = append(t.branches, nil)
	}
	t.branches[depth] = append(t.branches[depth], h)
	t.nodes[h] = &node{blk: blk, state: state, status: StatusAlive, height: blk.BlockHeight}
	return nil
}

// MarkDead marks a known block Dead and removes it from its branch layer;
// dead blocks are never revisited (§7 propagation policy).
func (t *Tree) MarkDead(h idhash.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[h]
	if !ok || n.status == StatusDead {
		return
	}
	n.status = StatusDead
	depth := int(n.height - t.lastFinalizedHeight - 1)
	if depth >= 0 && depth < len(t.branches) {
		t.branches[depth] = removeHash(t.branches[depth], h)
	}
}

func removeHash(list []idhash.Hash, h idhash.Hash) []idhash.Hash {
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// BranchLayer returns a copy of the blocks at height lastFinalizedHeight+1+depth.
func (t *Tree) BranchLayer(depth int) []idhash.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if depth < 0 || depth >= len(t.branches) {
		return nil
	}
	out := make([]idhash.Hash, len(t.branches[depth]))
	copy(out, t.branches[depth])
	return out
}

// NumBranchLayers reports how many height layers currently exist above
// the last finalized block.
func (t *Tree) NumBranchLayers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.branches)
}

// AdvancePlan is the mutation finalization.doTrustedFinalize computes by
// walking the tree's read APIs, then applies atomically via Advance.
type AdvancePlan struct {
	Record FinalizationEntry
	// ToFinalize holds the newly-finalized chain from just above the old
	// LFB to the new LFB, in increasing-height order.
	ToFinalize []idhash.Hash
	// ToRemove holds every block to mark Dead, in decreasing-height order
	// so a parent is never touched after its child (§4.G step 8).
	ToRemove []idhash.Hash
	// RemainingBranches is the new branches slice: pruned trunk layers
	// dropped, non-kept siblings filtered out, trailing empty layers
	// trimmed.
	RemainingBranches [][]idhash.Hash
}

// Advance applies steps 5-8 of doTrustedFinalize atomically under the
// tree's lock.
func (t *Tree) Advance(plan AdvancePlan) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(plan.ToFinalize) == 0 {
		return errors.New("tree: empty finalization plan")
	}
	for i, h := range plan.ToFinalize {
		n, ok := t.nodes[h]
		if !ok {
			return ErrUnknownParent
		}
		n.status = StatusFinalized
		if i < len(plan.ToFinalize)-1 && n.state != nil {
			n.state.Archive()
		}
	}
	for _, h := range plan.ToRemove {
		if n, ok := t.nodes[h]; ok {
			n.status = StatusDead
		}
	}

	t.finalizationList = append(t.finalizationList, plan.Record)
	newLFB := plan.ToFinalize[len(plan.ToFinalize)-1]
	t.lastFinalized = newLFB
	t.lastFinalizedHeight = t.nodes[newLFB].height
	t.branches = plan.RemainingBranches
	return nil
}

// PurgeDead drops the in-memory node record for every block currently
// Dead, freeing memory once the finalization processor has archived what
// it needs; used by the finalization processor after each finalization
// advance.
func (t *Tree) PurgeDead() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	for h, nd := range t.nodes {
		if nd.status == StatusDead {
			delete(t.nodes, h)
			n++
		}
	}
	return n
}
