package txtable

import (
	"errors"
	"sync"
	"time"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	ErrObsoleteNonce = errors.New("txtable: nonce/sequence already finalized")
	ErrUnknown       = errors.New("txtable: unknown transaction")
)

// Verifier is the scheduler collaborator that decides whether a
// transaction is admissible against a given block state. It is invoked
// without the tree's global lock held (§5), and its result is cached.
type Verifier interface {
	Verify(tx block.Transaction) (VerificationResult, error)
}

// AddOutcome is the result of AddCommit, mirroring the four cases in
// SPEC_FULL.md §4.C.
type AddOutcome int

const (
	OutcomeAdded AddOutcome = iota
	OutcomeDuplicate
	OutcomeObsoleteNonce
	OutcomeNotAdded
)

// Table is the transaction table (§4.C).
type Table struct {
	mu sync.RWMutex

	log      log.Logger
	verifier Verifier

	byHash map[idhash.Hash]*Entry

	accountNonces nonceIndex[ids.ShortID]
	updateSeqs    nonceIndex[string]

	insertionsSincePurge int
	purgeEvery           int
	keepAlive            time.Duration

	metrics *tableMetrics
}

// New constructs an empty Table.
func New(verifier Verifier, purgeEvery int, keepAlive time.Duration, logger log.Logger, reg MetricsRegistry) (*Table, error) {
	m, err := newTableMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Table{
		log:           logger,
		verifier:      verifier,
		byHash:        make(map[idhash.Hash]*Entry),
		accountNonces: *newNonceIndex[ids.ShortID](),
		updateSeqs:    *newNonceIndex[string](),
		purgeEvery:    purgeEvery,
		keepAlive:     keepAlive,
		metrics:       m,
	}, nil
}

// senderKey extracts the (nonce-index key, sequence number) pair for a
// transaction, or ok=false for transactions with no ordering key
// (CredentialDeployment, which is keyed only by registration id).
func senderKey(tx block.Transaction) (accountKey ids.ShortID, updateKey string, seq uint64, hasAccount, hasUpdate bool) {
	switch t := tx.(type) {
	case *block.NormalTransaction:
		return t.Sender, "", t.Nonce, true, false
	case *block.ChainUpdate:
		return ids.ShortID{}, t.UpdateType, t.Sequence, false, true
	default:
		return ids.ShortID{}, "", 0, false, false
	}
}

// AddCommit verifies tx if unseen and admits it, per §4.C.
func (t *Table) AddCommit(tx block.Transaction, receivedSlot block.Slot, now time.Time) (AddOutcome, VerificationResult, error) {
	h := tx.Hash()

	t.mu.Lock()
	if existing, ok := t.byHash[h]; ok {
		t.mu.Unlock()
		return OutcomeDuplicate, existing.Verification, nil
	}
	t.mu.Unlock()

	accountKey, updateKey, seq, hasAccount, hasUpdate := senderKey(tx)
	if hasAccount {
		t.mu.RLock()
		floor := t.accountNonces.nextFor(accountKey)
		t.mu.RUnlock()
		if seq < floor {
			return OutcomeObsoleteNonce, VerificationResult{}, nil
		}
	}
	if hasUpdate {
		t.mu.RLock()
		floor := t.updateSeqs.nextFor(updateKey)
		t.mu.RUnlock()
		if seq < floor {
			return OutcomeObsoleteNonce, VerificationResult{}, nil
		}
	}

	// Verification happens without the table lock held, per §5.
	verRes, err := t.verifier.Verify(tx)
	if err != nil {
		return OutcomeNotAdded, VerificationResult{}, err
	}
	if !verRes.Valid && !verRes.MaybeValid {
		return OutcomeNotAdded, verRes, nil
	}

	entry := &Entry{
		Tx:           tx,
		Status:       StatusReceived,
		ReceivedSlot: receivedSlot,
		Verification: verRes,
		Commits:      make(map[idhash.Hash]Commitment),
		ArrivalUnix:  now.Unix(),
	}

	t.mu.Lock()
	if _, ok := t.byHash[h]; ok {
		t.mu.Unlock()
		return OutcomeDuplicate, verRes, nil
	}
	t.byHash[h] = entry
	if hasAccount {
		t.accountNonces.add(accountKey, seq, h)
	}
	if hasUpdate {
		t.updateSeqs.add(updateKey, seq, h)
	}
	t.insertionsSincePurge++
	shouldPurge := t.purgeEvery > 0 && t.insertionsSincePurge >= t.purgeEvery
	t.mu.Unlock()

	t.metrics.observeAdd()
	if shouldPurge {
		t.log.Debug("transaction table reached purge cadence")
	}
	return OutcomeAdded, verRes, nil
}

// CommitInBlock attaches an outcome slot to the transaction, per §4.C.
func (t *Table) CommitInBlock(blk idhash.Hash, slot block.Slot, h idhash.Hash, txIdx int, outcome Outcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byHash[h]
	if !ok {
		return ErrUnknown
	}
	e.Commits[blk] = Commitment{Slot: slot, TxIndex: txIdx, Outcome: outcome}
	if e.Status == StatusReceived {
		e.Status = StatusCommitted
	}
	return nil
}

// MarkDeadInBlock forgets a specific block association, per §4.C.
func (t *Table) MarkDeadInBlock(blk idhash.Hash, h idhash.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byHash[h]
	if !ok {
		return
	}
	delete(e.Commits, blk)
	if len(e.Commits) == 0 && e.Status == StatusCommitted {
		e.Status = StatusReceived
	}
}

// Finalize moves an entry Committed -> Finalized. Every other
// not-yet-finalized entry at the same (sender, nonce) is removed and the
// nonce index advances, per §4.C.
func (t *Table) Finalize(blk idhash.Hash, h idhash.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byHash[h]
	if !ok {
		return ErrUnknown
	}
	commit, ok := e.Commits[blk]
	if !ok {
		return ErrUnknown
	}

	e.Status = StatusFinalized
	e.FinalizedIn = blk
	e.FinalizedOutcome = commit.Outcome
	e.Commits = nil

	accountKey, updateKey, seq, hasAccount, hasUpdate := senderKey(e.Tx)
	var removed []idhash.Hash
	if hasAccount {
		removed = t.accountNonces.finalizeSeq(accountKey, seq, h)
	}
	if hasUpdate {
		removed = t.updateSeqs.finalizeSeq(updateKey, seq, h)
	}
	for _, other := range removed {
		if oe, ok := t.byHash[other]; ok {
			oe.Status = StatusDropped
			delete(t.byHash, other)
		}
	}
	return nil
}

// Purge deletes any transaction whose latest slot <= lfbSlot and whose
// arrival time is older than the keep-alive horizon, per §4.C / §8
// property 8.
func (t *Table) Purge(now time.Time, lfbSlot block.Slot) int {
	horizon := now.Add(-t.keepAlive).Unix()

	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int
	for h, e := range t.byHash {
		if e.Status == StatusFinalized {
			continue
		}
		if e.ArrivalUnix >= horizon {
			continue
		}
		if t.maxSlot(e) > lfbSlot {
			continue
		}
		t.removeLocked(h, e)
		removed++
	}
	t.insertionsSincePurge = 0
	t.metrics.observePurge(removed)
	return removed
}

func (t *Table) maxSlot(e *Entry) block.Slot {
	max := e.ReceivedSlot
	for _, c := range e.Commits {
		if c.Slot > max {
			max = c.Slot
		}
	}
	return max
}

func (t *Table) removeLocked(h idhash.Hash, e *Entry) {
	accountKey, updateKey, seq, hasAccount, hasUpdate := senderKey(e.Tx)
	if hasAccount {
		t.accountNonces.remove(accountKey, seq, h)
	}
	if hasUpdate {
		t.updateSeqs.remove(updateKey, seq, h)
	}
	delete(t.byHash, h)
}

// Lookup returns the entry for a transaction hash.
func (t *Table) Lookup(h idhash.Hash) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byHash[h]
	return e, ok
}

// GetAccountNonFinalized returns the non-finalized transactions for
// account addr with nonce >= fromNonce.
func (t *Table) GetAccountNonFinalized(addr ids.ShortID, fromNonce uint64) []SeqEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accountNonces.atOrAfter(addr, fromNonce)
}

// GetNonFinalizedChainUpdates returns the non-finalized chain updates of
// the given type with sequence >= fromSeq.
func (t *Table) GetNonFinalizedChainUpdates(updateType string, fromSeq uint64) []SeqEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updateSeqs.atOrAfter(updateType, fromSeq)
}
