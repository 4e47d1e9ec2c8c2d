// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/finalization"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/txtable"
)

// The protocol-specific collaborators (transaction verification, block
// execution, VRF/signature checks, the finalization oracle) are supplied
// by the host embedding this module, per SPEC_FULL.md §5's "invoked per
// transaction, returns a deterministic state delta ... opaque" design.
// These accept-everything placeholders let the binary boot standalone
// for local development, mirroring the teacher's own noopDatabase in
// vms/rpcchainvm/vm_client.go: a real interface implementation that does
// the minimum needed to satisfy the type, clearly not production logic.

type acceptAllTxVerifier struct{}

func (acceptAllTxVerifier) Verify(block.Transaction) (txtable.VerificationResult, error) {
	return txtable.VerificationResult{Valid: true}, nil
}

type passthroughExecutor struct{}

func (passthroughExecutor) Execute(_ context.Context, parent *blockstate.Snapshot, blk *block.Block) (*blockstate.Snapshot, idhash.Hash, []txtable.Outcome, error) {
	next := blockstate.Thaw(parent).Freeze()
	return next, blk.ClaimedOutcomesHash, nil, nil
}

type acceptAllVerifier struct{}

func (acceptAllVerifier) VerifySignature(*block.Block) bool                    { return true }
func (acceptAllVerifier) VerifyPreflight(*block.Block, blockstate.Chain) bool  { return true }
func (acceptAllVerifier) VerifyLiveParent(*block.Block, blockstate.Chain) bool { return true }

type acceptAllOracle struct{}

func (acceptAllOracle) Consume(context.Context, finalization.FinalizationRecord) (finalization.Outcome, error) {
	return finalization.OutcomeConsumed, nil
}

func (acceptAllOracle) CommitteeAt(uint64) (finalization.Committee, error) {
	return finalization.Committee{}, nil
}
