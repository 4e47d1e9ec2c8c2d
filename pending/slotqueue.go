// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pending

import "github.com/luxfi/concord/idhash"

// slotItem is one entry in the slot-ordered priority queue.
type slotItem struct {
	slot   uint64
	child  idhash.Hash
	parent idhash.Hash
	index  int
}

// slotQueue is a container/heap.Interface min-heap ordered by slot number,
// used by TakeNextUntil to find the earliest pending block without
// scanning the whole table.
type slotQueue []*slotItem

func (q slotQueue) Len() int { return len(q) }

func (q slotQueue) Less(i, j int) bool { return q[i].slot < q[j].slot }

func (q slotQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *slotQueue) Push(x any) {
	item := x.(*slotItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *slotQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
