package blockstate

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/luxfi/ids"

	"github.com/luxfi/concord/idhash"
)

// The functions in this file compute the per-table digests that feed
// Snapshot.merkleRoot. Each sorts its keys first so the digest is
// independent of map iteration order, which Go deliberately randomizes.

func hashAccounts(accounts map[ids.ShortID]*Account) []byte {
	keys := make([]ids.ShortID, 0, len(accounts))
	for k := range accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	h := sha256.New()
	for _, k := range keys {
		a := accounts[k]
		h.Write(k[:])
		writeUint64(h, a.Balance)
		writeUint64(h, a.Stake)
	}
	return h.Sum(nil)
}

func hashInstances(instances map[ids.ShortID]*Instance) []byte {
	keys := make([]ids.ShortID, 0, len(instances))
	for k := range instances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	h := sha256.New()
	for _, k := range keys {
		i := instances[k]
		h.Write(k[:])
		h.Write(i.Module[:])
		writeUint64(h, i.Balance)
		h.Write(i.MutableState)
	}
	return h.Sum(nil)
}

func hashModules(modules map[idhash.Hash]*Module) []byte {
	keys := make([]idhash.Hash, 0, len(modules))
	for k := range modules {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	h := sha256.New()
	for _, k := range keys {
		h.Write(k[:])
		h.Write(modules[k].Artifact)
	}
	return h.Sum(nil)
}

func hashBakers(bakers map[ids.NodeID]*Baker) []byte {
	keys := make([]ids.NodeID, 0, len(bakers))
	for k := range bakers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	h := sha256.New()
	for _, k := range keys {
		b := bakers[k]
		h.Write(k[:])
		writeUint64(h, b.StakedAmount)
	}
	return h.Sum(nil)
}

func hashRewards(r RewardAccounts) []byte {
	h := sha256.New()
	writeUint64(h, r.Baking)
	writeUint64(h, r.Finalization)
	writeUint64(h, r.GAS)
	writeUint64(h, r.TotalEncrypted)
	writeUint64(h, r.TotalGTU)
	writeUint64(h, r.ExtraBalance)
	return h.Sum(nil)
}

func hashSeed(s SeedState) []byte {
	h := sha256.New()
	writeUint64(h, uint64(s.Epoch))
	h.Write(s.LeadershipElectionNonce[:])
	h.Write(s.UpdatedNonce[:])
	return h.Sum(nil)
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h.Write(b[:])
}
