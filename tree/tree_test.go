// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"testing"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"
)

func newGenesisState(t *testing.T) *blockstate.Snapshot {
	t.Helper()
	s, err := blockstate.New(1, metric.NewRegistry(), 16, 16)
	require.NoError(t, err)
	return s
}

func mkChild(parent *block.Block, height block.Height, slot block.Slot, nonce byte) *block.Block {
	return &block.Block{
		Parent:      parent.Hash(),
		SlotNumber:  slot,
		BlockHeight: height,
		BlockNonce:  []byte{nonce},
	}
}

func newTestTree(t *testing.T) (*Tree, *block.Block) {
	t.Helper()
	genesis := &block.Block{BlockHeight: 0, SlotNumber: 0}
	tr := New(genesis, newGenesisState(t), nil)
	return tr, genesis
}

func TestInsertAliveRequiresLiveParent(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	orphan := &block.Block{Parent: idhash.Zero, BlockHeight: 1, SlotNumber: 1}
	err := tr.InsertAlive(orphan, nil)
	require.ErrorIs(err, ErrUnknownParent)

	child := mkChild(genesis, 1, 1, 1)
	require.NoError(tr.InsertAlive(child, newGenesisState(t)))
	require.Equal(StatusAlive, tr.Status(child.Hash()))
	require.Equal([]idhash.Hash{child.Hash()}, tr.BranchLayer(0))
}

func TestForkThenPrune(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	x := mkChild(genesis, 1, 1, 1)
	y := mkChild(genesis, 1, 1, 2) // sibling fork at the same height
	require.NoError(tr.InsertAlive(x, newGenesisState(t)))
	require.NoError(tr.InsertAlive(y, newGenesisState(t)))

	x2 := mkChild(x, 2, 2, 3)
	require.NoError(tr.InsertAlive(x2, newGenesisState(t)))

	require.True(tr.IsAncestor(genesis.Hash(), x2.Hash()))
	require.False(tr.IsAncestor(y.Hash(), x2.Hash()))

	// Finalize x (height 1): y is a non-ancestor at the same layer and
	// must be pruned; x2's layer collapses to depth 0.
	plan := AdvancePlan{
		Record:     FinalizationEntry{Index: 1, FinalizedBlock: x.Hash()},
		ToFinalize: []idhash.Hash{x.Hash()},
		ToRemove:   []idhash.Hash{y.Hash()},
		RemainingBranches: [][]idhash.Hash{
			{x2.Hash()},
		},
	}
	require.NoError(tr.Advance(plan))

	require.Equal(StatusFinalized, tr.Status(x.Hash()))
	require.Equal(StatusDead, tr.Status(y.Hash()))
	require.Equal(StatusAlive, tr.Status(x2.Hash()))

	lfb, height := tr.LastFinalized()
	require.Equal(x.Hash(), lfb)
	require.Equal(block.Height(1), height)
	require.Equal([]idhash.Hash{x2.Hash()}, tr.BranchLayer(0))
}

func TestChangeFocusBlockRejectsUnknown(t *testing.T) {
	require := require.New(t)
	tr, _ := newTestTree(t)
	require.ErrorIs(tr.ChangeFocusBlock(idhash.Zero), ErrNotLive)
}
