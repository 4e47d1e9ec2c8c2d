// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pending implements the pending-block table described in
// SPEC_FULL.md §4.D: blocks keyed by their unknown parent, plus a
// slot-ordered priority queue that TakeNextUntil drains in slot order.
// PurgePending drops stale entries by scanning the table, not the queue.
package pending

import (
	"container/heap"
	"sync"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/idhash"
)

// Table holds blocks whose parent is not yet live.
type Table struct {
	mu sync.Mutex

	byParent map[idhash.Hash][]*block.Block
	byHash   map[idhash.Hash]*block.Block
	queue    slotQueue
}

func New() *Table {
	return &Table{
		byParent: make(map[idhash.Hash][]*block.Block),
		byHash:   make(map[idhash.Hash]*block.Block),
	}
}

// AddPending attaches blk under its parent and enqueues it by slot.
func (t *Table) AddPending(blk *block.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := blk.Hash()
	if _, exists := t.byHash[h]; exists {
		return
	}
	t.byHash[h] = blk
	t.byParent[blk.Parent] = append(t.byParent[blk.Parent], blk)
	heap.Push(&t.queue, &slotItem{slot: uint64(blk.SlotNumber), child: h, parent: blk.Parent})
}

// TakeChildrenOf atomically removes and returns all pending children of
// parent.
func (t *Table) TakeChildrenOf(parent idhash.Hash) []*block.Block {
	t.mu.Lock()
	defer t.mu.Unlock()

	children := t.byParent[parent]
	delete(t.byParent, parent)
	for _, c := range children {
		delete(t.byHash, c.Hash())
	}
	return children
}

// TakeNextUntil drains the slot priority queue and returns the next
// still-pending block whose slot <= slotCap, skipping stale entries that
// were already resolved via some other path (e.g. promoted through
// TakeChildrenOf, or dropped by PurgePending).
func (t *Table) TakeNextUntil(slotCap block.Slot) (*block.Block, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.queue.Len() > 0 {
		item := t.queue[0]
		if item.slot > uint64(slotCap) {
			return nil, false
		}
		heap.Pop(&t.queue)

		blk, ok := t.byHash[item.child]
		if !ok {
			continue // stale: already resolved
		}
		delete(t.byHash, item.child)
		siblings := t.byParent[item.parent]
		for i, s := range siblings {
			if s.Hash() == item.child {
				t.byParent[item.parent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		if len(t.byParent[item.parent]) == 0 {
			delete(t.byParent, item.parent)
		}
		return blk, true
	}
	return nil, false
}

// PurgePending drops every pending block with slot <= lfbSlot, per §4.G
// step 9.
func (t *Table) PurgePending(lfbSlot block.Slot) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int
	for h, blk := range t.byHash {
		if blk.SlotNumber > lfbSlot {
			continue
		}
		delete(t.byHash, h)
		siblings := t.byParent[blk.Parent]
		for i, s := range siblings {
			if s.Hash() == h {
				t.byParent[blk.Parent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		if len(t.byParent[blk.Parent]) == 0 {
			delete(t.byParent, blk.Parent)
		}
		removed++
	}
	return removed
}

// Len reports the number of blocks currently pending.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byHash)
}
