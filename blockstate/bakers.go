package blockstate

import (
	"github.com/google/btree"
	"github.com/luxfi/ids"
)

// cooldownItem orders bakers and delegators by (cooldown-end, id), so the
// set whose cooldown has elapsed can be range-scanned instead of found by
// a linear pass over every staker. GetSlotBakers does not read this
// index. Grounded on the teacher's btree-ordered staker
// iteration in vms/platformvm/state/stakers.go.
type cooldownItem struct {
	cooldownEnd Epoch
	id          ids.NodeID
}

func (a cooldownItem) Less(than btree.Item) bool {
	b := than.(cooldownItem)
	if a.cooldownEnd != b.cooldownEnd {
		return a.cooldownEnd < b.cooldownEnd
	}
	return a.id.String() < b.id.String()
}

// CooldownIndex is an ordered index over baker/delegator cooldown end
// epochs, letting the tree ask "who becomes eligible again by epoch E" in
// O(log n + k) instead of scanning every staker.
type CooldownIndex struct {
	tree *btree.BTree
}

func NewCooldownIndex() *CooldownIndex {
	return &CooldownIndex{tree: btree.New(32)}
}

func (c *CooldownIndex) Add(id ids.NodeID, cooldownEnd Epoch) {
	c.tree.ReplaceOrInsert(cooldownItem{cooldownEnd: cooldownEnd, id: id})
}

func (c *CooldownIndex) Remove(id ids.NodeID, cooldownEnd Epoch) {
	c.tree.Delete(cooldownItem{cooldownEnd: cooldownEnd, id: id})
}

// ElapsedBy returns every baker/delegator id whose cooldown ends at or
// before the given epoch, in ascending cooldown-end order.
func (c *CooldownIndex) ElapsedBy(epoch Epoch) []ids.NodeID {
	var out []ids.NodeID
	c.tree.AscendLessThan(cooldownItem{cooldownEnd: epoch + 1}, func(item btree.Item) bool {
		out = append(out, item.(cooldownItem).id)
		return true
	})
	return out
}
