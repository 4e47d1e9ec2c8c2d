// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package regenesis implements the protocol-update procedure of
// SPEC_FULL.md §4.H: once the terminal block of an era is finalized, a new
// era begins with migrated state and a fresh genesis record.
package regenesis

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/log"
)

// Params are the chain parameters carried forward unchanged across a
// regenesis, per §4.H step 1.
type Params struct {
	EpochLength           uint64
	SlotDuration          time.Duration
	MaxBlockEnergy        uint64
	FinalizationDelay     uint64
	FinalizationCommittee int
}

// GenesisData is the new era's genesis record, produced with the
// `RegenesisData` constructor the spec names in step 4.
type GenesisData struct {
	GenesisIndex       uint32
	GenesisTime        time.Time
	FirstGenesis       idhash.Hash
	PreviousGenesis    idhash.Hash
	TerminalBlock      idhash.Hash
	Params             Params
	StateHash          idhash.Hash
	StartAbsoluteHeight uint64
}

// CanonicalBytes gives GenesisData a deterministic encoding so two nodes
// processing the same terminal block produce byte-identical records,
// satisfying §8 property 10 (regenesis determinism).
func (g GenesisData) CanonicalBytes() []byte {
	out := make([]byte, 0, 128)
	out = append(out, g.FirstGenesis[:]...)
	out = append(out, g.PreviousGenesis[:]...)
	out = append(out, g.TerminalBlock[:]...)
	out = append(out, g.StateHash[:]...)
	out = appendUint64(out, uint64(g.GenesisTime.Unix()))
	out = appendUint64(out, g.Params.EpochLength)
	out = appendUint64(out, uint64(g.Params.SlotDuration))
	out = appendUint64(out, g.Params.MaxBlockEnergy)
	out = appendUint64(out, g.Params.FinalizationDelay)
	out = appendUint64(out, g.StartAbsoluteHeight)
	out = appendUint32(out, g.GenesisIndex)
	return out
}

func (g GenesisData) Hash() idhash.Hash { return idhash.Of(g) }

func appendUint64(b []byte, v uint64) []byte {
	for i := 7; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}

func appendUint32(b []byte, v uint32) []byte {
	for i := 3; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}

// EraInfo describes the era being retired, enough for Regenesis to
// compute the next era's genesis identifiers per §4.H step 2.
type EraInfo struct {
	Index           uint32
	FirstGenesis    idhash.Hash // this era's own firstGenesis; zero if this era is itself initial
	CurrentGenesis  idhash.Hash // this era's current (i.e. own) genesis hash
	Params          Params
	TerminalBakers  map[string]bool // baker ids serving the terminal epoch, carried into the new era
}

// Migrator applies per-protocol-version account/stake/delegation
// migrations during step 3; a no-op migrator is valid when no version
// bump changes entity shapes.
type Migrator interface {
	Migrate(ctx context.Context, d *blockstate.Diff) error
}

type noopMigrator struct{}

func (noopMigrator) Migrate(context.Context, *blockstate.Diff) error { return nil }

// NoopMigrator is used when a protocol update carries no data migration.
var NoopMigrator Migrator = noopMigrator{}

// Regenesis runs §4.H steps 1-4 given the terminal block's slot-time and
// last state, producing the migrated genesis state and its GenesisData
// record. Step 5 (notifying the host) is the caller's responsibility via
// hostcap.Capabilities.Regenesis, since Regenesis itself has no host
// dependency.
func Regenesis(
	ctx context.Context,
	era EraInfo,
	terminalBlock idhash.Hash,
	terminalSlotTime time.Time,
	terminalHeight uint64,
	priorState *blockstate.Snapshot,
	migrator Migrator,
	logger log.Logger,
) (*blockstate.Snapshot, GenesisData, error) {
	if migrator == nil {
		migrator = NoopMigrator
	}

	diff := blockstate.Thaw(priorState)

	seed := diff.SeedState()
	newNonce := idhash.Hash(sha256.Sum256(append([]byte("Regenesis"), seed.UpdatedNonce[:]...)))
	seed.LeadershipElectionNonce = newNonce
	seed.UpdatedNonce = newNonce
	seed.Epoch = 0
	diff.SetSeedState(seed)

	for _, updateType := range diff.QueuedUpdateTypes() {
		diff.ClearUpdateQueue(updateType)
	}

	if err := migrator.Migrate(ctx, diff); err != nil {
		return nil, GenesisData{}, err
	}

	next := diff.Freeze()

	firstGenesis := era.FirstGenesis
	if firstGenesis == idhash.Zero {
		firstGenesis = era.CurrentGenesis
	}

	gen := GenesisData{
		GenesisIndex:        era.Index + 1,
		GenesisTime:         terminalSlotTime,
		FirstGenesis:        firstGenesis,
		PreviousGenesis:     era.CurrentGenesis,
		TerminalBlock:       terminalBlock,
		Params:              era.Params,
		StateHash:           next.Hash(),
		StartAbsoluteHeight: terminalHeight + 1,
	}

	if logger != nil {
		logger.Info("regenesis produced new era", "genesisIndex", gen.GenesisIndex, "newGenesisHash", gen.Hash())
	}
	return next, gen, nil
}
