package blockstate

import (
	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/cache/metercacher"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/ids"
	"github.com/luxfi/metric"
)

// newCaches builds the bounded, metered LRUs described in SPEC_FULL.md
// §4.B: "bounded LRU of accounts (default 10 000) and module metadata
// (default 1 000)", following the teacher's
// metercacher.New(name, registry, lru.NewCache(size)) idiom.
func newCaches(accountsCacheSize, modulesCacheSize int, reg metric.Registry) (accounts cache.Cacher[ids.ShortID, *Account], modules cache.Cacher[idhash.Hash, *Module], err error) {
	accounts, err = metercacher.New[ids.ShortID, *Account](
		"account_cache",
		reg,
		lru.NewCache[ids.ShortID, *Account](accountsCacheSize),
	)
	if err != nil {
		return nil, nil, err
	}

	modules, err = metercacher.New[idhash.Hash, *Module](
		"module_cache",
		reg,
		lru.NewCache[idhash.Hash, *Module](modulesCacheSize),
	)
	if err != nil {
		return nil, nil, err
	}
	return accounts, modules, nil
}
