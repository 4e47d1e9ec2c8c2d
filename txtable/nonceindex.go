package txtable

import (
	"sort"

	"github.com/luxfi/concord/idhash"
)

// nonceIndex tracks, for one key K (a sender account or an update type),
// the next admissible sequence number and the set of not-yet-finalized
// transaction hashes at each sequence number >= that floor.
//
// Every key in the map is >= next. The keys need not be contiguous: add
// admits any sequence number at or above the floor, so gaps below a
// pending sequence number are possible.
type nonceIndex[K comparable] struct {
	next    map[K]uint64
	pending map[K]map[uint64]map[idhash.Hash]struct{}
}

func newNonceIndex[K comparable]() *nonceIndex[K] {
	return &nonceIndex[K]{
		next:    make(map[K]uint64),
		pending: make(map[K]map[uint64]map[idhash.Hash]struct{}),
	}
}

func (n *nonceIndex[K]) nextFor(k K) uint64 {
	return n.next[k]
}

// add records that hash h occupies sequence number seq for key k. It
// never advances next by itself -- only finalizeSeq does that. The
// floor for a key with no finalized transactions yet stays at the map's
// zero value (0), which is the correct "nothing finalized" starting
// point; it must never be pulled up to an arriving transaction's own
// sequence number, or a legitimate lower, not-yet-arrived sequence
// would be wrongly rejected as obsolete.
func (n *nonceIndex[K]) add(k K, seq uint64, h idhash.Hash) {
	bucket, ok := n.pending[k]
	if !ok {
		bucket = make(map[uint64]map[idhash.Hash]struct{})
		n.pending[k] = bucket
	}
	set, ok := bucket[seq]
	if !ok {
		set = make(map[idhash.Hash]struct{})
		bucket[seq] = set
	}
	set[h] = struct{}{}
}

func (n *nonceIndex[K]) remove(k K, seq uint64, h idhash.Hash) {
	bucket, ok := n.pending[k]
	if !ok {
		return
	}
	set, ok := bucket[seq]
	if !ok {
		return
	}
	delete(set, h)
	if len(set) == 0 {
		delete(bucket, seq)
	}
	if len(bucket) == 0 {
		delete(n.pending, k)
	}
}

// atOrAfter returns every (seq, hashes) pair with seq >= from, in
// ascending sequence order.
func (n *nonceIndex[K]) atOrAfter(k K, from uint64) []SeqEntry {
	bucket := n.pending[k]
	var out []SeqEntry
	for seq, set := range bucket {
		if seq < from {
			continue
		}
		hashes := make([]idhash.Hash, 0, len(set))
		for h := range set {
			hashes = append(hashes, h)
		}
		out = append(out, SeqEntry{Sequence: seq, Hashes: hashes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// SeqEntry is one (sequence number, competing transaction hashes) pair.
type SeqEntry struct {
	Sequence uint64
	Hashes   []idhash.Hash
}

// finalizeSeq advances next past seq for key k and removes every entry at
// seq other than keep (the finalized one), so the interval stays
// contiguous.
func (n *nonceIndex[K]) finalizeSeq(k K, seq uint64, keep idhash.Hash) (removed []idhash.Hash) {
	bucket := n.pending[k]
	if bucket != nil {
		if set, ok := bucket[seq]; ok {
			for h := range set {
				if h != keep {
					removed = append(removed, h)
				}
			}
			delete(bucket, seq)
			if len(bucket) == 0 {
				delete(n.pending, k)
			}
		}
	}
	if n.next[k] <= seq {
		n.next[k] = seq + 1
	}
	return removed
}
