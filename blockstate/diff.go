package blockstate

import (
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
)

// Diff is a mutable workspace opened against a parent Snapshot, following
// the teacher's Diff/diff split (vms/platformvm/state/diff.go): reads fall
// through to the parent for anything not locally modified, writes are
// buffered until Freeze produces a new immutable Snapshot. This is the Go
// rendering of §4.B's thaw/freeze pair.
type Diff struct {
	parent *Snapshot

	modifiedAccounts  map[ids.ShortID]*Account
	modifiedInstances map[ids.ShortID]*Instance
	addedModules      map[idhash.Hash]*Module
	modifiedBakers    map[ids.NodeID]*Baker
	addedDelegators   []*Delegator
	seed              SeedState
	params            ChainParameters
	rewards           RewardAccounts
	appendedUpdates    map[string][]UpdateQueueEntry
	clearedUpdateTypes set.Set[string]
}

// Thaw opens a mutable workspace on top of parent.
func Thaw(parent *Snapshot) *Diff {
	return &Diff{
		parent:             parent,
		modifiedAccounts:   make(map[ids.ShortID]*Account),
		modifiedInstances:  make(map[ids.ShortID]*Instance),
		addedModules:       make(map[idhash.Hash]*Module),
		modifiedBakers:     make(map[ids.NodeID]*Baker),
		seed:               parent.seed,
		params:             parent.params,
		rewards:            parent.rewards,
		appendedUpdates:    make(map[string][]UpdateQueueEntry),
		clearedUpdateTypes: set.NewSet[string](0),
	}
}

func (d *Diff) GetAccount(addr ids.ShortID) (*Account, error) {
	if a, ok := d.modifiedAccounts[addr]; ok {
		if a == nil {
			return nil, ErrNotFound
		}
		return a, nil
	}
	return d.parent.GetAccount(addr)
}

func (d *Diff) PutAccount(a *Account) {
	d.modifiedAccounts[a.Address] = a
}

func (d *Diff) GetInstance(addr ids.ShortID) (*Instance, error) {
	if i, ok := d.modifiedInstances[addr]; ok {
		if i == nil {
			return nil, ErrNotFound
		}
		return i, nil
	}
	return d.parent.GetInstance(addr)
}

func (d *Diff) PutInstance(i *Instance) {
	d.modifiedInstances[i.Address] = i
}

func (d *Diff) GetModule(ref idhash.Hash) (*Module, error) {
	if m, ok := d.addedModules[ref]; ok {
		return m, nil
	}
	return d.parent.GetModule(ref)
}

func (d *Diff) PutModule(m *Module) {
	d.addedModules[m.Ref] = m
}

func (d *Diff) SeedState() SeedState              { return d.seed }
func (d *Diff) SetSeedState(s SeedState)          { d.seed = s }
func (d *Diff) SetParameters(p ChainParameters)   { d.params = p }
func (d *Diff) SetRewards(r RewardAccounts)       { d.rewards = r }

// QueuedUpdateTypes lists every update type with a non-empty pending
// queue, combining the parent's carried-forward entries with anything
// appended to this diff; used by regenesis to empty the queue wholesale.
func (d *Diff) QueuedUpdateTypes() []string {
	seen := make(map[string]bool)
	for k, v := range d.parent.updateQueue {
		if len(v) > 0 && !d.clearedUpdateTypes.Contains(k) {
			seen[k] = true
		}
	}
	for k, v := range d.appendedUpdates {
		if len(v) > 0 {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

func (d *Diff) PutBaker(b *Baker) { d.modifiedBakers[b.ID] = b }

func (d *Diff) AppendUpdate(updateType string, e UpdateQueueEntry) {
	d.appendedUpdates[updateType] = append(d.appendedUpdates[updateType], e)
}

// ClearUpdateQueue empties the update queue for the given type, used by
// regenesis (§4.H step 3: "empty the update queue").
func (d *Diff) ClearUpdateQueue(updateType string) {
	d.clearedUpdateTypes.Add(updateType)
	delete(d.appendedUpdates, updateType)
}

// Freeze commits the diff into a new immutable Snapshot, sharing the
// parent's caches (accounts/modules not touched by this diff are served
// from the same LRU, avoiding duplicate cache churn per block).
func (d *Diff) Freeze() *Snapshot {
	next := &Snapshot{
		protocolVersion: d.parent.protocolVersion,
		accounts:        make(map[ids.ShortID]*Account, len(d.parent.accounts)+len(d.modifiedAccounts)),
		credIndex:       make(map[string]ids.ShortID, len(d.parent.credIndex)),
		instances:       make(map[ids.ShortID]*Instance, len(d.parent.instances)+len(d.modifiedInstances)),
		modules:         make(map[idhash.Hash]*Module, len(d.parent.modules)+len(d.addedModules)),
		bakers:          make(map[ids.NodeID]*Baker, len(d.parent.bakers)+len(d.modifiedBakers)),
		updateQueue:     make(map[string][]UpdateQueueEntry, len(d.parent.updateQueue)),
		accountCache:    d.parent.accountCache,
		moduleCache:     d.parent.moduleCache,
		seed:            d.seed,
		params:          d.params,
		rewards:         d.rewards,
	}
	for k, v := range d.parent.accounts {
		next.accounts[k] = v
	}
	for k, v := range d.modifiedAccounts {
		if v == nil {
			delete(next.accounts, k)
			continue
		}
		next.accounts[k] = v
		for _, cred := range v.CredentialIDs {
			next.credIndex[string(cred)] = k
		}
	}
	for k, v := range d.parent.credIndex {
		if _, exists := next.credIndex[k]; !exists {
			next.credIndex[k] = v
		}
	}
	for k, v := range d.parent.instances {
		next.instances[k] = v
	}
	for k, v := range d.modifiedInstances {
		next.instances[k] = v
	}
	for k, v := range d.parent.modules {
		next.modules[k] = v
	}
	for k, v := range d.addedModules {
		next.modules[k] = v
	}
	for k, v := range d.parent.bakers {
		next.bakers[k] = v
	}
	for k, v := range d.modifiedBakers {
		next.bakers[k] = v
	}
	for k, v := range d.parent.updateQueue {
		if d.clearedUpdateTypes.Contains(k) {
			continue
		}
		next.updateQueue[k] = append([]UpdateQueueEntry{}, v...)
	}
	for k, v := range d.appendedUpdates {
		next.updateQueue[k] = append(next.updateQueue[k], v...)
	}

	next.hash = idhash.OfBytes(next.merkleRoot())
	return next
}

// merkleRoot is the structural Merkle composition over entity tables
// SPEC_FULL.md §4.B calls for. It hashes the sorted content of the
// account, instance, module, baker, reward and seed tables in turn and
// folds the results together, so a change to any of those tables changes
// the state hash. Other snapshot data, such as the update queue and the
// chain parameters, is not part of the hash.
func (s *Snapshot) merkleRoot() []byte {
	var leaves [][]byte
	leaves = append(leaves, hashAccounts(s.accounts))
	leaves = append(leaves, hashInstances(s.instances))
	leaves = append(leaves, hashModules(s.modules))
	leaves = append(leaves, hashBakers(s.bakers))
	leaves = append(leaves, hashRewards(s.rewards))
	leaves = append(leaves, hashSeed(s.seed))
	out := make([]byte, 0, 32*len(leaves))
	for _, l := range leaves {
		out = append(out, l...)
	}
	return out
}
