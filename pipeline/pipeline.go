// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pipeline

import (
	"context"
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
	"github.com/luxfi/consensus/utils/timer/mockable"
)

// Executor runs a block's transactions against a parent state, producing
// the new state and outcome data §4.F step "executeBlock" 3 describes.
// It is the seam where the WASM/contract execution engine attaches; this
// module treats it as an external collaborator, matching the spec's
// treatment of the finalization oracle.
type Executor interface {
	Execute(ctx context.Context, parent *blockstate.Snapshot, blk *block.Block) (next *blockstate.Snapshot, outcomesHash idhash.Hash, outcomes []txtable.Outcome, err error)
}

// SeedUpdater computes the next leadership-election seed state.
type SeedUpdater interface {
	UpdateSeed(parent blockstate.SeedState, slot block.Slot, nonce []byte) blockstate.SeedState
}

// Verifier checks baker eligibility and VRF/signature validity, both for
// the pending-block pre-flight path and the live-parent path.
type Verifier interface {
	VerifySignature(blk *block.Block) bool
	VerifyPreflight(blk *block.Block, lastFinalized blockstate.Chain) bool
	VerifyLiveParent(blk *block.Block, parentState blockstate.Chain) bool
}

// Clock supplies the current time; a narrow seam for deterministic tests.
type Clock interface {
	Now() time.Time
}

// wallClock adapts mockable.Clock (the teacher's own thin wrapper around
// global time, github.com/luxfi/consensus/utils/timer/mockable) to the Clock
// interface used throughout this package.
type wallClock struct {
	c mockable.Clock
}

func (w *wallClock) Now() time.Time { return w.c.Now() }

// Pipeline is the receive/execute pipeline (§4.F): validate, optionally
// queue as pending, execute, make live.
type Pipeline struct {
	cfg      *config.Config
	tree     *tree.Tree
	pending  *pending.Table
	txtable  *txtable.Table
	oracle   finalization.Oracle
	executor Executor
	seeder   SeedUpdater
	verifier Verifier
	caps     hostcap.Capabilities
	clock    Clock

	genesisIndex uint32
}

func New(
	cfg *config.Config,
	t *tree.Tree,
	pt *pending.Table,
	tt *txtable.Table,
	oracle finalization.Oracle,
	executor Executor,
	seeder SeedUpdater,
	verifier Verifier,
	caps hostcap.Capabilities,
	genesisIndex uint32,
) *Pipeline {
	return &Pipeline{
		cfg: cfg, tree: t, pending: pt, txtable: tt,
		oracle: oracle, executor: executor, seeder: seeder, verifier: verifier,
		caps: caps, clock: &wallClock{}, genesisIndex: genesisIndex,
	}
}

// ReceiveBlock implements §4.F's receiveBlock.
func (p *Pipeline) ReceiveBlock(ctx context.Context, genesisIndex uint32, raw []byte, shutDown bool) (UpdateResult, *ExecuteCont) {
	if shutDown {
		return wire.ConsensusShutDown, nil
	}

	blk, err := decodeBlock(raw)
	if err != nil {
		return wire.SerializationFail, nil
	}
	if genesisIndex != p.genesisIndex {
		return wire.InvalidGenesisIndex, nil
	}
	blk.GenesisIndex = genesisIndex

	genesisTime, slotDuration := p.eraTiming()
	if block.SlotTime(genesisTime, slotDuration, blk.SlotNumber).After(p.clock.Now().Add(p.cfg.EarlyBlockThreshold)) {
		return wire.EarlyBlock, nil
	}

	h := blk.Hash()
	if p.tree.Status(h) != tree.StatusUnknown {
		return wire.Duplicate, nil
	}

	lfbHash, _ := p.tree.LastFinalized()
	lfbBlk, _ := p.tree.Block(lfbHash)
	if lfbBlk != nil && blk.SlotNumber <= lfbBlk.SlotNumber {
		p.tree.MarkDead(h) // no-op if not yet inserted, kept for symmetry with the mark-dead-on-stale rule
		return wire.Stale, nil
	}

	switch p.tree.Status(blk.Parent) {
	case tree.StatusUnknown:
		return p.tryQueuePending(blk)
	case tree.StatusDead:
		return wire.Stale, nil
	case tree.StatusAlive, tree.StatusFinalized:
		parentState, ok := p.tree.State(blk.Parent)
		if !ok || !p.verifier.VerifyLiveParent(blk, parentState) {
			p.tree.MarkDead(h)
			return wire.Invalid, nil
		}
		if !p.verifier.VerifySignature(blk) {
			p.tree.MarkDead(h)
			return wire.Invalid, nil
		}
		cont := &ExecuteCont{blk: blk, drop: func(b *block.Block) { p.tree.MarkDead(b.Hash()) }}
		return wire.Success, cont
	default:
		return p.tryQueuePending(blk)
	}
}

// tryQueuePending implements the pending-block pre-flight checks.
func (p *Pipeline) tryQueuePending(blk *block.Block) (UpdateResult, *ExecuteCont) {
	lfbHash, _ := p.tree.LastFinalized()
	lfbState, ok := p.tree.State(lfbHash)
	if ok && p.verifier != nil && !p.verifier.VerifyPreflight(blk, lfbState) {
		return wire.Invalid, nil
	}
	if !p.verifier.VerifySignature(blk) {
		return wire.Invalid, nil
	}
	p.pending.AddPending(blk)
	return wire.PendingBlock, nil
}

// ExecuteBlock implements §4.F's executeBlock.
func (p *Pipeline) ExecuteBlock(ctx context.Context, cont *ExecuteCont) UpdateResult {
	if cont == nil || cont.executed {
		return wire.Invalid
	}
	blk := cont.blk
	defer cont.Drop()

	if p.tree.Status(blk.Parent) != tree.StatusAlive && p.tree.Status(blk.Parent) != tree.StatusFinalized {
		return wire.Invalid
	}
	parentState, ok := p.tree.State(blk.Parent)
	if !ok {
		return wire.Invalid
	}

	if blk.Finalization != nil {
		res := p.consumeEmbeddedFinalization(ctx, blk)
		if res != wire.Success && res != wire.Duplicate {
			return res
		}
	}

	nextState, outcomesHash, outcomes, err := p.executor.Execute(ctx, parentState, blk)
	if err != nil {
		return wire.Invalid
	}
	if nextState.Hash() != blk.ClaimedStateHash || outcomesHash != blk.ClaimedOutcomesHash {
		return wire.Invalid
	}

	if err := p.tree.InsertAlive(blk, nextState); err != nil {
		return wire.Invalid
	}
	cont.executed = true

	// Commit every transaction into the block it just landed in, per
	// §4.C's Received -> Committed transition; a transaction the table
	// never saw individually (ErrUnknown) has nothing to commit and is
	// left alone rather than treated as a failure.
	h := blk.Hash()
	for i, tx := range blk.Transactions {
		var outcome txtable.Outcome
		if i < len(outcomes) {
			outcome = outcomes[i]
		}
		_ = p.txtable.CommitInBlock(h, blk.SlotNumber, tx.Hash(), i, outcome)
	}

	if p.caps.NotifyBlock != nil {
		p.caps.NotifyBlock(ctx, hostcap.BlockEvent{Kind: hostcap.BlockArrived, Block: h})
	}

	for _, child := range p.pending.TakeChildrenOf(h) {
		p.promoteAndExecute(ctx, child)
	}
	return wire.Success
}

// promoteAndExecute re-runs a formerly-pending block through the same
// live-parent path a freshly received block takes, now that its parent is
// Alive, per §4.F step 6 ("recursively process each child with this same
// live-parent path").
func (p *Pipeline) promoteAndExecute(ctx context.Context, blk *block.Block) UpdateResult {
	parentState, ok := p.tree.State(blk.Parent)
	if !ok || !p.verifier.VerifyLiveParent(blk, parentState) || !p.verifier.VerifySignature(blk) {
		p.tree.MarkDead(blk.Hash())
		return wire.Invalid
	}
	cont := &ExecuteCont{blk: blk, drop: func(b *block.Block) { p.tree.MarkDead(b.Hash()) }}
	return p.ExecuteBlock(ctx, cont)
}

func (p *Pipeline) consumeEmbeddedFinalization(ctx context.Context, blk *block.Block) UpdateResult {
	rec := finalization.FinalizationRecord{
		Index:          blk.Finalization.Index,
		FinalizedBlock: blk.Finalization.FinalizedBlock,
		Delay:          uint64(blk.Finalization.Delay),
		AggregateProof: blk.Finalization.Proof,
	}
	outcome, err := p.oracle.Consume(ctx, rec)
	if err != nil {
		return wire.Invalid
	}
	switch outcome {
	case finalization.OutcomeConsumed:
		return wire.Success
	case finalization.OutcomeDuplicate:
		return wire.Duplicate
	default:
		return wire.Invalid
	}
}

// ReceiveTransaction implements §4.F's receiveTransaction: admit
// individually against the last-finalized state.
func (p *Pipeline) ReceiveTransaction(tx block.Transaction) UpdateResult {
	lfbHash, _ := p.tree.LastFinalized()
	lfbSlot := block.Slot(0)
	if blk, ok := p.tree.Block(lfbHash); ok {
		lfbSlot = blk.SlotNumber
	}
	outcome, verRes, err := p.txtable.AddCommit(tx, lfbSlot, p.clock.Now())
	if err != nil {
		return wire.VerificationFailed
	}
	switch outcome {
	case txtable.OutcomeAdded:
		return wire.Success
	case txtable.OutcomeDuplicate:
		return wire.Duplicate
	case txtable.OutcomeObsoleteNonce:
		return wire.DuplicateNonce
	default:
		if !verRes.Valid && !verRes.MaybeValid {
			return wire.VerificationFailed
		}
		return wire.Invalid
	}
}

// ReceiveFinalizationRecord implements §4.F's receiveFinalizationRecord:
// authenticate through the oracle, then hand a trusted record onward.
func (p *Pipeline) ReceiveFinalizationRecord(ctx context.Context, rec finalization.FinalizationRecord, proc *finalization.Processor) UpdateResult {
	outcome, err := p.oracle.Consume(ctx, rec)
	if err != nil {
		return wire.Invalid
	}
	switch outcome {
	case finalization.OutcomeDuplicate:
		return wire.Duplicate
	case finalization.OutcomeRejected:
		return wire.Invalid
	}
	return proc.DoTrustedFinalize(rec)
}

// Status reports this node's own catch-up status, per §6's catch-up
// message contents.
func (p *Pipeline) Status() catchup.Status {
	lfbHash, lfbHeight := p.tree.LastFinalized()
	focus := p.tree.FocusBlock()
	focusHeight := lfbHeight
	if blk, ok := p.tree.Block(focus); ok {
		focusHeight = blk.BlockHeight
	}
	return catchup.Status{
		GenesisIndex:        p.genesisIndex,
		LastFinalizedBlock:  lfbHash,
		LastFinalizedHeight: uint64(lfbHeight),
		BestBlock:           focus,
		BestBlockHeight:     uint64(focusHeight),
	}
}

// BroadcastStatus wraps this node's own catch-up status in a
// TypeCatchUpStatus envelope and hands it to the broadcast capability,
// completing the wire.Envelope seam §6 reserves for catch-up handshakes.
func (p *Pipeline) BroadcastStatus(ctx context.Context) error {
	if p.caps.Broadcast == nil {
		return nil
	}
	body, err := catchup.EncodeStatus(p.Status())
	if err != nil {
		return err
	}
	return p.caps.Broadcast(ctx, wire.Envelope{Type: wire.TypeCatchUpStatus, GenesisIndex: p.genesisIndex, Body: body})
}

// ReceiveStatusEnvelope decodes an incoming TypeCatchUpStatus envelope
// body and runs it through ReceiveCatchUpStatus.
func (p *Pipeline) ReceiveStatusEnvelope(ctx context.Context, body []byte) (UpdateResult, error) {
	peer, err := catchup.DecodeStatus(body)
	if err != nil {
		return 0, err
	}
	return p.ReceiveCatchUpStatus(ctx, peer), nil
}

// ReceiveCatchUpStatus implements §4.F's receiveCatchUpStatus: compare a
// peer's status against our own and, when we are ahead, broadcast a
// bounded burst of blocks the peer is missing through the Broadcast
// capability.
func (p *Pipeline) ReceiveCatchUpStatus(ctx context.Context, peer catchup.Status) UpdateResult {
	if peer.GenesisIndex != p.genesisIndex {
		return wire.InvalidGenesisIndex
	}

	self := p.Status()
	if self.NeedsCatchUp(peer) {
		return wire.ContinueCatchUp
	}
	if !peer.NeedsCatchUp(self) {
		return wire.Success
	}

	const maxBurstBlocks = 32
	h := self.LastFinalizedBlock
	sent := 0
	for sent < maxBurstBlocks {
		blk, ok := p.tree.Block(h)
		if !ok || h == peer.LastFinalizedBlock {
			break
		}
		if p.caps.Broadcast != nil {
			env := wire.Envelope{Type: wire.TypeBlock, GenesisIndex: p.genesisIndex, Body: block.Encode(blk)}
			if err := p.caps.Broadcast(ctx, env); err != nil {
				break
			}
		}
		sent++
		parent, ok := p.tree.ParentOf(h)
		if !ok {
			break
		}
		h = parent
	}
	return wire.Success
}

func (p *Pipeline) eraTiming() (time.Time, time.Duration) {
	return time.Unix(0, 0), time.Second
}

func decodeBlock(raw []byte) (*block.Block, error) {
	return block.Decode(raw)
}
