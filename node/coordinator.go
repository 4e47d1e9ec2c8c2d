// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node wires the tree, pending table, transaction table,
// pipeline, and finalization processor into a single logical serial
// writer, per SPEC_FULL.md §5's single-writer requirement. The Skov
// state (block tree, focus block, transaction table) is mutated only by
// one goroutine draining an unbuffered command channel, grounded on the
// teacher's own single-goroutine event loop in
// vms/platformvm/block/builder/builder.go's WaitForEvent/select shape.
package node

import (
	"context"
	"errors"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/config"
	"github.com/luxfi/concord/finalization"
	"github.com/luxfi/concord/hostcap"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/metrics"
	"github.com/luxfi/concord/pending"
	"github.com/luxfi/concord/pipeline"
	"github.com/luxfi/concord/store"
	"github.com/luxfi/concord/tree"
	"github.com/luxfi/concord/txtable"
	"github.com/luxfi/concord/wire"
	"github.com/luxfi/log"
	"go.uber.org/zap"
)

var ErrMissingCapability = errors.New("node: capabilities record has a nil required field")

// command is one unit of serialized work; the coordinator's run loop
// drains these one at a time so the tree/pending/txtable state is never
// touched from two goroutines at once.
type command struct {
	run  func(ctx context.Context)
	done chan struct{}
}

// Coordinator is the assembled consensus core: the tree-state machinery
// wired together and driven by a single serial-writer goroutine.
type Coordinator struct {
	cfg  *config.Config
	caps hostcap.Capabilities
	log  log.Logger

	Tree        *tree.Tree
	Pending     *pending.Table
	TxTable     *txtable.Table
	Pipeline    *pipeline.Pipeline
	Finalizer   *finalization.Processor
	TreeMetrics *metrics.TreeMetrics
	StoreMetrics *metrics.StoreMetrics

	era *store.Era

	cmds   chan command
	cancel context.CancelFunc
	done   chan struct{}
}

// Deps bundles the collaborators New needs beyond cfg/caps: the
// genesis block/state pair and the pluggable pipeline/finalization
// seams (executor, verifier, oracle) that are host- or
// protocol-specific and therefore not constructed here.
type Deps struct {
	GenesisBlock *block.Block
	GenesisState *blockstate.Snapshot
	GenesisIndex uint32

	TxVerifier txtable.Verifier
	Oracle     finalization.Oracle
	Executor   pipeline.Executor
	Seeder     pipeline.SeedUpdater
	Verifier   pipeline.Verifier

	Registry metrics.Registry

	// Era is the persistent tree-state store a finalization advance
	// durably lands in. Nil is accepted (the coordinator then runs
	// purely in memory, as tests and short-lived tools do), but a
	// long-running node must supply one to satisfy §4.E/§4.G's
	// atomicity requirement.
	Era *store.Era
}

// New assembles a Coordinator: tree seeded at genesis, empty pending and
// transaction tables, and a pipeline/finalization processor wired to
// them, exactly the "small capability record passed at construction"
// shape SPEC_FULL.md §9 describes.
func New(cfg *config.Config, caps hostcap.Capabilities, deps Deps) (*Coordinator, error) {
	if caps.Broadcast == nil || caps.Regenesis == nil || caps.Log == nil || caps.NotifyBlock == nil {
		return nil, ErrMissingCapability
	}

	t := tree.New(deps.GenesisBlock, deps.GenesisState, caps.Log)
	pt := pending.New()
	tt, err := txtable.New(deps.TxVerifier, cfg.InsertionsBeforeTransactionPurge, cfg.TransactionsKeepAliveTime, caps.Log, nil)
	if err != nil {
		return nil, err
	}
	tm, err := metrics.NewTreeMetrics(deps.Registry)
	if err != nil {
		return nil, err
	}
	sm, err := metrics.NewStoreMetrics(deps.Registry)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg: cfg, caps: caps, log: caps.Log,
		Tree: t, Pending: pt, TxTable: tt,
		TreeMetrics:  tm,
		StoreMetrics: sm,
		era:          deps.Era,
		cmds:         make(chan command),
		done:         make(chan struct{}),
	}

	c.Finalizer = finalization.New(t, tt, pt, caps.Log, c.onFinalize)
	c.Pipeline = pipeline.New(cfg, t, pt, tt, deps.Oracle, deps.Executor, deps.Seeder, deps.Verifier, caps, deps.GenesisIndex)
	return c, nil
}

// onFinalize runs after the tree has already advanced past rec: it
// updates the tree metrics gauges and, when a persistent store is
// wired in, durably commits every newly-finalized block plus the
// finalization record itself as one staged transaction, per
// §4.E/§4.G's "steps 5-8 are one persistent-store transaction" rule.
func (c *Coordinator) onFinalize(rec finalization.FinalizationRecord, newLFB idhash.Hash, archived []idhash.Hash) {
	if c.TreeMetrics != nil {
		_, height := c.Tree.LastFinalized()
		c.TreeMetrics.ObserveFinalizedHeight(uint64(height))
		c.TreeMetrics.ObserveDeadPurged(len(archived))
		c.TreeMetrics.ObserveBranches(c.Tree.NumBranchLayers())
	}

	if c.era == nil {
		return
	}
	newlyFinalized := append(append([]idhash.Hash{}, archived...), newLFB)
	staging := c.era.BeginFinalizationAdvance()
	for _, h := range newlyFinalized {
		blk, ok := c.Tree.Block(h)
		if !ok {
			staging.Abort()
			c.StoreMetrics.ObserveAbort()
			c.log.Error("finalization advance: newly-finalized block missing from tree, aborting persist",
				zap.Uint64("index", rec.Index), zap.Stringer("block", h))
			return
		}
		if err := staging.PutBlock(h, block.Encode(blk)); err != nil {
			staging.Abort()
			c.StoreMetrics.ObserveAbort()
			c.log.Error("finalization advance: staging block write failed, aborting persist",
				zap.Uint64("index", rec.Index), zap.Stringer("block", h), zap.Error(err))
			return
		}
	}
	if err := staging.PutFinalizationRecord(rec.Index, finalization.EncodeRecord(rec)); err != nil {
		staging.Abort()
		c.StoreMetrics.ObserveAbort()
		c.log.Error("finalization advance: staging record write failed, aborting persist",
			zap.Uint64("index", rec.Index), zap.Error(err))
		return
	}
	if err := staging.Commit(); err != nil {
		c.StoreMetrics.ObserveAbort()
		c.log.Error("finalization advance: commit failed",
			zap.Uint64("index", rec.Index), zap.Error(err))
		return
	}
	c.StoreMetrics.ObserveCommit()
	c.log.Debug("finalization advance persisted",
		zap.Uint64("index", rec.Index), zap.Int("blocksWritten", len(newlyFinalized)))
}

// Run starts the serial-writer goroutine; it drains cmds until ctx is
// cancelled or Shutdown is called.
func (c *Coordinator) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case cmd := <-c.cmds:
				cmd.run(ctx)
				close(cmd.done)
			}
		}
	}()
}

// Shutdown stops the run loop and waits for the in-flight command, if
// any, to finish.
func (c *Coordinator) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.done
}

// enqueue submits fn to the serial writer and blocks until it runs.
func (c *Coordinator) enqueue(ctx context.Context, fn func(ctx context.Context)) {
	cmd := command{run: fn, done: make(chan struct{})}
	select {
	case c.cmds <- cmd:
		<-cmd.done
	case <-ctx.Done():
	}
}

// ReceiveBlock submits a block to the serial writer and returns once the
// reception phase (verify/queue/prepare) completes.
func (c *Coordinator) ReceiveBlock(ctx context.Context, genesisIndex uint32, raw []byte) (wire.ResultCode, *pipeline.ExecuteCont) {
	var res wire.ResultCode
	var cont *pipeline.ExecuteCont
	c.enqueue(ctx, func(ctx context.Context) {
		res, cont = c.Pipeline.ReceiveBlock(ctx, genesisIndex, raw, false)
	})
	return res, cont
}

// ExecuteBlock submits a prepared continuation for execution.
func (c *Coordinator) ExecuteBlock(ctx context.Context, cont *pipeline.ExecuteCont) wire.ResultCode {
	var res wire.ResultCode
	c.enqueue(ctx, func(ctx context.Context) {
		res = c.Pipeline.ExecuteBlock(ctx, cont)
	})
	return res
}

// ReceiveFinalizationRecord submits a trusted finalization record.
func (c *Coordinator) ReceiveFinalizationRecord(ctx context.Context, rec finalization.FinalizationRecord) wire.ResultCode {
	var res wire.ResultCode
	c.enqueue(ctx, func(context.Context) {
		res = c.Finalizer.DoTrustedFinalize(rec)
	})
	return res
}

// QuerySnapshot is a read-only lookup that bypasses the serial writer:
// the tree's own RWMutex already makes reads safe to run concurrently
// with the writer goroutine (§5, "reads never block on the writer").
func (c *Coordinator) QuerySnapshot(h idhash.Hash) (*blockstate.Snapshot, bool) {
	return c.Tree.State(h)
}

// FocusBlock returns the tree's current focus block without touching
// the serial writer.
func (c *Coordinator) FocusBlock() idhash.Hash { return c.Tree.FocusBlock() }
