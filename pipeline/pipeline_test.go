// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/catchup"
	"github.com/luxfi/concord/config"
	"github.com/luxfi/concord/finalization"
	"github.com/luxfi/concord/hostcap"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/pending"
	"github.com/luxfi/concord/tree"
	"github.com/luxfi/concord/txtable"
	"github.com/luxfi/concord/wire"
	"github.com/luxfi/ids"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) VerifySignature(*block.Block) bool { return true }
func (stubVerifier) VerifyPreflight(*block.Block, blockstate.Chain) bool { return true }
func (stubVerifier) VerifyLiveParent(*block.Block, blockstate.Chain) bool { return true }

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

type stubVerifierAlwaysNoOwnedTx struct{}

func (stubVerifierAlwaysNoOwnedTx) Verify(block.Transaction) (txtable.VerificationResult, error) {
	return txtable.VerificationResult{Valid: true}, nil
}

func newSnapshot(t *testing.T) *blockstate.Snapshot {
	t.Helper()
	s, err := blockstate.New(1, metric.NewRegistry(), 16, 16)
	require.NoError(t, err)
	return s
}

func newPipeline(t *testing.T) (*Pipeline, *tree.Tree, *block.Block) {
	t.Helper()
	genesis := &block.Block{BlockHeight: 0, SlotNumber: 0}
	genState := newSnapshot(t)
	tr := tree.New(genesis, genState, nil)
	pt := pending.New()
	tt, err := txtable.New(stubVerifierAlwaysNoOwnedTx{}, 0, time.Hour, nil, nil)
	require.NoError(t, err)

	cfg := config.Default
	caps := hostcap.Capabilities{}
	p := New(&cfg, tr, pt, tt, stubOracle{}, stubExecutor{}, nil, stubVerifier{}, caps, 0)
	return p, tr, genesis
}

func encodeChild(parent *block.Block, slot block.Slot, height block.Height, nonce byte) *block.Block {
	blk := &block.Block{
		Parent:      parent.Hash(),
		SlotNumber:  slot,
		BlockHeight: height,
		BlockNonce:  []byte{nonce},
	}
	blk.ClaimedStateHash = idhash.Of(blk)
	blk.ClaimedOutcomesHash = idhash.Zero
	return blk
}

func TestBroadcastStatusAndReceiveStatusEnvelopeRoundTrip(t *testing.T) {
	require := require.New(t)
	genesis := &block.Block{BlockHeight: 0, SlotNumber: 0}
	genState := newSnapshot(t)
	tr := tree.New(genesis, genState, nil)
	pt := pending.New()
	tt, err := txtable.New(stubVerifierAlwaysNoOwnedTx{}, 0, time.Hour, nil, nil)
	require.NoError(err)

	var captured wire.Envelope
	cfg := config.Default
	caps := hostcap.Capabilities{
		Broadcast: func(_ context.Context, e wire.Envelope) error {
			captured = e
			return nil
		},
	}
	sender := New(&cfg, tr, pt, tt, stubOracle{}, stubExecutor{}, nil, stubVerifier{}, caps, 0)

	require.NoError(sender.BroadcastStatus(context.Background()))
	require.Equal(wire.TypeCatchUpStatus, captured.Type)

	receiver, _, _ := newPipeline(t)
	res, err := receiver.ReceiveStatusEnvelope(context.Background(), captured.Body)
	require.NoError(err)
	require.Equal(wire.Success, res)
}

func TestReceiveBlockRejectsWrongGenesisIndex(t *testing.T) {
	require := require.New(t)
	p, _, genesis := newPipeline(t)
	child := encodeChild(genesis, 1, 1, 1)
	raw := block.Encode(child)

	res, cont := p.ReceiveBlock(context.Background(), 7, raw, false)
	require.Equal(wire.InvalidGenesisIndex, res)
	require.Nil(cont)
}

func TestReceiveAndExecuteBlockAgainstFinalizedParent(t *testing.T) {
	require := require.New(t)
	p, tr, genesis := newPipeline(t)

	child := encodeChild(genesis, 1, 1, 1)
	// The stub executor freezes an empty diff of the parent, so the real
	// claimed state hash must match that freeze's output.
	genState, _ := tr.State(genesis.Hash())
	frozen := blockstate.Thaw(genState).Freeze()
	child.ClaimedStateHash = frozen.Hash()
	raw := block.Encode(child)

	res, cont := p.ReceiveBlock(context.Background(), 0, raw, false)
	require.Equal(wire.Success, res)
	require.NotNil(cont)

	execRes := p.ExecuteBlock(context.Background(), cont)
	require.Equal(wire.Success, execRes)
	require.Equal(tree.StatusAlive, tr.Status(child.Hash()))
}

// TestExecuteBlockCommitsIncludedTransactions confirms ExecuteBlock
// actually drives §4.C's Received -> Committed transition instead of
// discarding the executor's outcomes, per SPEC_FULL.md §4.C/§8
// invariant 5.
func TestExecuteBlockCommitsIncludedTransactions(t *testing.T) {
	require := require.New(t)
	p, tr, genesis := newPipeline(t)

	var sender ids.ShortID
	sender[0] = 7
	// Second-precision expiry: the wire encoding truncates to Unix
	// seconds, so a sub-second value here would make the post-decode
	// transaction hash differently and miss the CommitInBlock lookup.
	expiry := time.Unix(time.Now().Add(time.Hour).Unix(), 0).UTC()
	tx := &block.NormalTransaction{Sender: sender, Nonce: 0, ExpiryTime: expiry}
	outcome, _, err := p.txtable.AddCommit(tx, block.Slot(0), time.Now())
	require.NoError(err)
	require.Equal(txtable.OutcomeAdded, outcome)

	child := encodeChild(genesis, 1, 1, 1)
	child.Transactions = []block.Transaction{tx}
	genState, _ := tr.State(genesis.Hash())
	frozen := blockstate.Thaw(genState).Freeze()
	child.ClaimedStateHash = frozen.Hash()
	raw := block.Encode(child)

	res, cont := p.ReceiveBlock(context.Background(), 0, raw, false)
	require.Equal(wire.Success, res)
	require.NotNil(cont)

	execRes := p.ExecuteBlock(context.Background(), cont)
	require.Equal(wire.Success, execRes)

	entry, ok := p.txtable.Lookup(tx.Hash())
	require.True(ok)
	require.Equal(txtable.StatusCommitted, entry.Status)
	commit, ok := entry.Commits[child.Hash()]
	require.True(ok)
	require.Equal(0, commit.TxIndex)
}

func TestReceiveBlockShutDown(t *testing.T) {
	require := require.New(t)
	p, _, genesis := newPipeline(t)
	child := encodeChild(genesis, 1, 1, 1)
	res, cont := p.ReceiveBlock(context.Background(), 0, block.Encode(child), true)
	require.Equal(wire.ConsensusShutDown, res)
	require.Nil(cont)
}

func TestReceiveCatchUpStatusRejectsWrongGenesisIndex(t *testing.T) {
	require := require.New(t)
	p, _, _ := newPipeline(t)
	res := p.ReceiveCatchUpStatus(context.Background(), catchup.Status{GenesisIndex: 9})
	require.Equal(wire.InvalidGenesisIndex, res)
}

func TestReceiveCatchUpStatusReportsContinueWhenPeerAhead(t *testing.T) {
	require := require.New(t)
	p, _, _ := newPipeline(t)
	ahead := catchup.Status{GenesisIndex: 0, LastFinalizedHeight: 100}
	res := p.ReceiveCatchUpStatus(context.Background(), ahead)
	require.Equal(wire.ContinueCatchUp, res)
}

func TestReceiveCatchUpStatusNoBroadcastWhenPeerLevel(t *testing.T) {
	require := require.New(t)
	p, tr, genesis := newPipeline(t)
	_ = tr

	var broadcasts int
	p.caps.Broadcast = func(context.Context, wire.Envelope) error {
		broadcasts++
		return nil
	}
	// self's LastFinalizedHeight is genesis (0); a peer that has not seen
	// even the genesis checkpoint reports LastFinalizedHeight 0 too, so
	// self is neither ahead nor behind -- Success with no broadcast.
	behind := catchup.Status{GenesisIndex: 0, LastFinalizedHeight: 0, LastFinalizedBlock: genesis.Hash()}
	res := p.ReceiveCatchUpStatus(context.Background(), behind)
	require.Equal(wire.Success, res)
	require.Equal(0, broadcasts)
}

func TestReceiveBlockUnknownParentQueuesPending(t *testing.T) {
	require := require.New(t)
	p, tr, genesis := newPipeline(t)
	_ = genesis

	orphanParent := idhash.OfBytes([]byte("nonexistent"))
	orphan := &block.Block{Parent: orphanParent, SlotNumber: 5, BlockHeight: 5}
	orphan.ClaimedStateHash = idhash.Of(orphan)
	raw := block.Encode(orphan)

	res, cont := p.ReceiveBlock(context.Background(), 0, raw, false)
	require.Equal(wire.PendingBlock, res)
	require.Nil(cont)
	require.Equal(tree.StatusUnknown, tr.Status(orphan.Hash()))
}
