// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txtable

import (
	"testing"
	"time"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(block.Transaction) (VerificationResult, error) {
	return VerificationResult{Valid: true}, nil
}

func newTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(acceptAllVerifier{}, 0, time.Hour, nil, nil)
	require.NoError(t, err)
	return tbl
}

func normalTx(sender ids.ShortID, nonce uint64) *block.NormalTransaction {
	return &block.NormalTransaction{Sender: sender, Nonce: nonce, ExpiryTime: time.Now().Add(time.Hour)}
}

func TestAddCommitAdmitsAndRejectsDuplicate(t *testing.T) {
	require := require.New(t)
	tbl := newTable(t)
	var a ids.ShortID
	a[0] = 1

	tx := normalTx(a, 0)
	outcome, _, err := tbl.AddCommit(tx, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeAdded, outcome)

	outcome, _, err = tbl.AddCommit(tx, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeDuplicate, outcome)
}

// A fresh account has never finalized anything, so its nonce floor must
// stay at 0 regardless of arrival order: a nonce-5 transaction arriving
// first must not raise the floor and wrongly obsolete a legitimate,
// never-finalized nonce-3 transaction that arrives afterward.
func TestAddCommitDoesNotBootstrapFloorFromArrivingNonce(t *testing.T) {
	require := require.New(t)
	tbl := newTable(t)
	var a ids.ShortID
	a[0] = 1

	five := normalTx(a, 5)
	outcome, _, err := tbl.AddCommit(five, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeAdded, outcome)

	three := normalTx(a, 3)
	outcome, _, err = tbl.AddCommit(three, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeAdded, outcome, "nonce 3 was never finalized, so it must still be admissible")
}

func TestAddCommitRejectsSeqBelowFinalizedFloor(t *testing.T) {
	require := require.New(t)
	tbl := newTable(t)
	var a ids.ShortID
	a[0] = 1

	first := normalTx(a, 0)
	_, _, err := tbl.AddCommit(first, 0, time.Now())
	require.NoError(err)

	var blk [32]byte
	blk[0] = 9
	require.NoError(tbl.CommitInBlock(blk, 0, first.Hash(), 0, Outcome{Success: true}))
	require.NoError(tbl.Finalize(blk, first.Hash()))

	require.Equal(uint64(1), tbl.accountNonces.nextFor(a))

	stale := normalTx(a, 0)
	stale.Payload = []byte("stale")
	outcome, _, err := tbl.AddCommit(stale, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeObsoleteNonce, outcome)
}

// S2 — Nonce race: two transactions from the same sender share a nonce;
// finalizing one drops the other and advances nextNonce past it.
func TestFinalizeDropsCompetingSameNonceTransaction(t *testing.T) {
	require := require.New(t)
	tbl := newTable(t)
	var a ids.ShortID
	a[0] = 7

	first := normalTx(a, 7)
	first.Payload = []byte("first")
	second := normalTx(a, 7)
	second.Payload = []byte("second")

	outcome, _, err := tbl.AddCommit(first, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeAdded, outcome)
	outcome, _, err = tbl.AddCommit(second, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeAdded, outcome)

	var blk [32]byte
	blk[0] = 1
	require.NoError(tbl.CommitInBlock(blk, 1, first.Hash(), 0, Outcome{Success: true}))
	require.NoError(tbl.Finalize(blk, first.Hash()))

	finalized, ok := tbl.Lookup(first.Hash())
	require.True(ok)
	require.Equal(StatusFinalized, finalized.Status)

	_, ok = tbl.Lookup(second.Hash())
	require.False(ok, "the competing same-nonce transaction must be dropped from the table")

	require.Equal(uint64(8), tbl.accountNonces.nextFor(a))
}

// Non-finalized nonces (§8 property 7): after nonce 0 is finalized, the
// pending entries read from nextNonce start at 1, and an unfinalized
// arrival never advances the floor.
func TestGetAccountNonFinalizedStartsAtNextNonce(t *testing.T) {
	require := require.New(t)
	tbl := newTable(t)
	var a ids.ShortID
	a[0] = 3

	tx0 := normalTx(a, 0)
	tx1 := normalTx(a, 1)
	_, _, err := tbl.AddCommit(tx0, 0, time.Now())
	require.NoError(err)
	_, _, err = tbl.AddCommit(tx1, 0, time.Now())
	require.NoError(err)

	entries := tbl.GetAccountNonFinalized(a, 0)
	require.Len(entries, 2)

	var blk [32]byte
	blk[0] = 4
	require.NoError(tbl.CommitInBlock(blk, 0, tx0.Hash(), 0, Outcome{Success: true}))
	require.NoError(tbl.Finalize(blk, tx0.Hash()))

	entries = tbl.GetAccountNonFinalized(a, tbl.accountNonces.nextFor(a))
	require.Len(entries, 1)
	require.Equal(uint64(1), entries[0].Sequence)
}

func TestChainUpdateUsesUpdateTypeSequenceIndex(t *testing.T) {
	require := require.New(t)
	tbl := newTable(t)

	up := &block.ChainUpdate{UpdateType: "slot-duration", Sequence: 0, ExpiryTime: time.Now().Add(time.Hour)}
	outcome, _, err := tbl.AddCommit(up, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeAdded, outcome)

	stale := &block.ChainUpdate{UpdateType: "slot-duration", Sequence: 0, ExpiryTime: time.Now().Add(2 * time.Hour)}
	var blk [32]byte
	blk[0] = 2
	require.NoError(tbl.CommitInBlock(blk, 0, up.Hash(), 0, Outcome{Success: true}))
	require.NoError(tbl.Finalize(blk, up.Hash()))

	outcome, _, err = tbl.AddCommit(stale, 0, time.Now())
	require.NoError(err)
	require.Equal(OutcomeObsoleteNonce, outcome)
}

// Purge safety (§8 property 8): a finalized transaction is never purged,
// and only stale, keep-alive-expired, low-slot entries are removed.
func TestPurgeRemovesOnlyStaleUnfinalizedEntries(t *testing.T) {
	require := require.New(t)
	tbl, err := New(acceptAllVerifier{}, 0, time.Minute, nil, nil)
	require.NoError(err)

	var a, b ids.ShortID
	a[0], b[0] = 1, 2

	stale := normalTx(a, 0)
	stale.ExpiryTime = time.Now().Add(time.Hour)
	_, _, err = tbl.AddCommit(stale, 0, time.Now().Add(-2*time.Hour))
	require.NoError(err)
	tbl.byHash[stale.Hash()].ArrivalUnix = time.Now().Add(-2 * time.Hour).Unix()

	fresh := normalTx(b, 0)
	_, _, err = tbl.AddCommit(fresh, 0, time.Now())
	require.NoError(err)

	removed := tbl.Purge(time.Now(), block.Slot(0))
	require.Equal(1, removed)

	_, ok := tbl.Lookup(stale.Hash())
	require.False(ok)
	_, ok = tbl.Lookup(fresh.Hash())
	require.True(ok)
}
