// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pending

import (
	"testing"

	"github.com/luxfi/concord/block"
	"github.com/stretchr/testify/require"
)

func mkBlock(parent [32]byte, slot uint64, nonce byte) *block.Block {
	return &block.Block{
		Parent:     parent,
		SlotNumber: block.Slot(slot),
		BlockNonce: []byte{nonce},
	}
}

func TestAddPendingAndTakeChildrenOf(t *testing.T) {
	require := require.New(t)
	tbl := New()

	var parent [32]byte
	parent[0] = 1

	b1 := mkBlock(parent, 5, 1)
	b2 := mkBlock(parent, 6, 2)
	tbl.AddPending(b1)
	tbl.AddPending(b2)
	require.Equal(2, tbl.Len())

	children := tbl.TakeChildrenOf(parent)
	require.Len(children, 2)
	require.Equal(0, tbl.Len())

	// A second call returns nothing: the children were already taken.
	require.Empty(tbl.TakeChildrenOf(parent))
}

func TestAddPendingIgnoresDuplicateHash(t *testing.T) {
	require := require.New(t)
	tbl := New()

	var parent [32]byte
	b := mkBlock(parent, 1, 9)
	tbl.AddPending(b)
	tbl.AddPending(b)
	require.Equal(1, tbl.Len())
}

func TestTakeNextUntilOrdersBySlotAndRespectsCap(t *testing.T) {
	require := require.New(t)
	tbl := New()

	var p1, p2 [32]byte
	p1[0], p2[0] = 1, 2

	low := mkBlock(p1, 2, 1)
	mid := mkBlock(p2, 5, 2)
	high := mkBlock(p1, 9, 3)
	tbl.AddPending(high)
	tbl.AddPending(low)
	tbl.AddPending(mid)

	got, ok := tbl.TakeNextUntil(block.Slot(5))
	require.True(ok)
	require.Equal(low.Hash(), got.Hash())

	got, ok = tbl.TakeNextUntil(block.Slot(5))
	require.True(ok)
	require.Equal(mid.Hash(), got.Hash())

	// high is slot 9, above the cap.
	_, ok = tbl.TakeNextUntil(block.Slot(5))
	require.False(ok)
	require.Equal(1, tbl.Len())
}

func TestTakeNextUntilSkipsStaleEntries(t *testing.T) {
	require := require.New(t)
	tbl := New()

	var parent [32]byte
	b := mkBlock(parent, 1, 1)
	tbl.AddPending(b)

	// Promoted through a different path before the queue gets to it.
	tbl.TakeChildrenOf(parent)

	_, ok := tbl.TakeNextUntil(block.Slot(100))
	require.False(ok)
}

func TestPurgePendingRemovesOldSlotsOnly(t *testing.T) {
	require := require.New(t)
	tbl := New()

	var p1, p2 [32]byte
	p1[0], p2[0] = 1, 2

	old := mkBlock(p1, 3, 1)
	fresh := mkBlock(p2, 30, 2)
	tbl.AddPending(old)
	tbl.AddPending(fresh)

	removed := tbl.PurgePending(block.Slot(10))
	require.Equal(1, removed)
	require.Equal(1, tbl.Len())

	_, ok := tbl.byHash[fresh.Hash()]
	require.True(ok)
}
