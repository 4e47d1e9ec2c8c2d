// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/config"
	"github.com/luxfi/concord/finalization"
	"github.com/luxfi/concord/hostcap"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/store"
	"github.com/luxfi/concord/tree"
	"github.com/luxfi/concord/txtable"
	"github.com/luxfi/concord/wire"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) VerifySignature(*block.Block) bool                        { return true }
func (stubVerifier) VerifyPreflight(*block.Block, blockstate.Chain) bool      { return true }
func (stubVerifier) VerifyLiveParent(*block.Block, blockstate.Chain) bool     { return true }

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, parent *blockstate.Snapshot, blk *block.Block) (*blockstate.Snapshot, idhash.Hash, []txtable.Outcome, error) {
	next := blockstate.Thaw(parent).Freeze()
	return next, blk.ClaimedOutcomesHash, nil, nil
}

type stubOracle struct{}

func (stubOracle) Consume(context.Context, finalization.FinalizationRecord) (finalization.Outcome, error) {
	return finalization.OutcomeConsumed, nil
}
func (stubOracle) CommitteeAt(uint64) (finalization.Committee, error) {
	return finalization.Committee{}, nil
}

type stubTxVerifier struct{}

func (stubTxVerifier) Verify(block.Transaction) (txtable.VerificationResult, error) {
	return txtable.VerificationResult{Valid: true}, nil
}

func newGenesisState(t *testing.T) *blockstate.Snapshot {
	t.Helper()
	s, err := blockstate.New(1, metric.NewRegistry(), 16, 16)
	require.NoError(t, err)
	return s
}

func newTestCoordinator(t *testing.T) (*Coordinator, *block.Block) {
	t.Helper()
	genesis := &block.Block{BlockHeight: 0, SlotNumber: 0}
	genState := newGenesisState(t)

	var notified []hostcap.BlockEvent
	caps := hostcap.Capabilities{
		Broadcast:   func(context.Context, wire.Envelope) error { return nil },
		Regenesis:   func(context.Context, idhash.Hash) error { return nil },
		Log:         log.NoLog{},
		NotifyBlock: func(_ context.Context, e hostcap.BlockEvent) { notified = append(notified, e) },
	}
	cfg := config.Default

	c, err := New(&cfg, caps, Deps{
		GenesisBlock: genesis,
		GenesisState: genState,
		GenesisIndex: 0,
		TxVerifier:   stubTxVerifier{},
		Oracle:       stubOracle{},
		Executor:     stubExecutor{},
		Verifier:     stubVerifier{},
	})
	require.NoError(t, err)
	return c, genesis
}

func TestNewRejectsMissingCapability(t *testing.T) {
	require := require.New(t)
	cfg := config.Default
	_, err := New(&cfg, hostcap.Capabilities{}, Deps{
		GenesisBlock: &block.Block{},
		GenesisState: newGenesisState(t),
	})
	require.ErrorIs(err, ErrMissingCapability)
}

func encodeChild(parent *block.Block, slot block.Slot, height block.Height, stateHash idhash.Hash) *block.Block {
	blk := &block.Block{
		Parent:      parent.Hash(),
		SlotNumber:  slot,
		BlockHeight: height,
	}
	blk.ClaimedStateHash = stateHash
	blk.ClaimedOutcomesHash = idhash.Zero
	return blk
}

func TestCoordinatorReceiveAndExecuteBlockThroughSerialWriter(t *testing.T) {
	require := require.New(t)
	c, genesis := newTestCoordinator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Run(ctx)
	defer c.Shutdown()

	genState, _ := c.QuerySnapshot(genesis.Hash())
	frozen := blockstate.Thaw(genState).Freeze()
	child := encodeChild(genesis, 1, 1, frozen.Hash())
	raw := block.Encode(child)

	res, cont := c.ReceiveBlock(ctx, 0, raw)
	require.Equal(wire.Success, res)
	require.NotNil(cont)

	execRes := c.ExecuteBlock(ctx, cont)
	require.Equal(wire.Success, execRes)
	require.Equal(tree.StatusAlive, c.Tree.Status(child.Hash()))
}

func TestCoordinatorOnFinalizePersistsBlockAndRecordToEra(t *testing.T) {
	require := require.New(t)
	genesis := &block.Block{BlockHeight: 0, SlotNumber: 0}
	genState := newGenesisState(t)

	era, err := store.OpenEra(memdb.New(), 0)
	require.NoError(err)

	caps := hostcap.Capabilities{
		Broadcast:   func(context.Context, wire.Envelope) error { return nil },
		Regenesis:   func(context.Context, idhash.Hash) error { return nil },
		Log:         log.NoLog{},
		NotifyBlock: func(context.Context, hostcap.BlockEvent) {},
	}
	cfg := config.Default

	c, err := New(&cfg, caps, Deps{
		GenesisBlock: genesis,
		GenesisState: genState,
		GenesisIndex: 0,
		TxVerifier:   stubTxVerifier{},
		Oracle:       stubOracle{},
		Executor:     stubExecutor{},
		Verifier:     stubVerifier{},
		Era:          era,
	})
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Run(ctx)
	defer c.Shutdown()

	frozen := blockstate.Thaw(genState).Freeze()
	child := encodeChild(genesis, 1, 1, frozen.Hash())
	raw := block.Encode(child)

	res, cont := c.ReceiveBlock(ctx, 0, raw)
	require.Equal(wire.Success, res)
	require.Equal(wire.Success, c.ExecuteBlock(ctx, cont))

	h := child.Hash()
	rec := finalization.FinalizationRecord{Index: 1, FinalizedBlock: h}
	require.Equal(wire.Success, c.ReceiveFinalizationRecord(ctx, rec))

	storedBlock, err := era.Blocks.Get(h[:])
	require.NoError(err)
	require.Equal(block.Encode(child), storedBlock)

	storedRecord, err := era.Finals.Get([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(err)
	gotRec, err := finalization.DecodeRecord(storedRecord)
	require.NoError(err)
	require.Equal(rec.Index, gotRec.Index)
	require.Equal(rec.FinalizedBlock, gotRec.FinalizedBlock)
}

func TestCoordinatorShutdownStopsRunLoop(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	c.Run(ctx)
	c.Shutdown()

	select {
	case <-c.done:
	default:
		t.Fatal("run loop did not stop after Shutdown")
	}
}
