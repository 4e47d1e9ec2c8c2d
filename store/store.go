// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store implements persistence and caching per SPEC_FULL.md §4.I.
// The corpus carries no LMDB binding, so the durable backend is the
// teacher's own github.com/luxfi/database abstraction: an ordered KV store
// with prefixdb-scoped sub-databases and versiondb-staged atomic commits,
// which gives the same "ordered KV, single-writer, MVCC snapshot read"
// contract the spec calls "LMDB-backed" (documented in DESIGN.md).
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
)

var (
	ErrCorrupt        = errors.New("store: era database is corrupt")
	ErrUnknownVersion = errors.New("store: unrecognized layout version")
)

const (
	currentLayoutVersion = 1

	prefixBlocks             = "blocks"
	prefixFinalizationRecord = "finalization-records"
	prefixOutcomes           = "transaction-outcomes"
	prefixMeta               = "meta"

	metaKeyVersion = "version"
)

// Era is one era's tree-state directory: an ordered KV database scoped
// into blocks / finalization-records / transaction-outcomes
// sub-databases, mirroring the spec's treestate-<n>/ LMDB environment
// layout (§6, Persisted state layout).
type Era struct {
	Index uint32

	base   database.Database
	Blocks database.Database
	Finals database.Database
	Outcomes database.Database
	meta   database.Database
}

// OpenEra opens (or initializes) the tree-state database for era index n
// on top of a root database handle. It stamps the layout version on first
// use and validates it thereafter, per §4.I's "explicit version tag" rule.
func OpenEra(root database.Database, index uint32) (*Era, error) {
	base := prefixdb.New(eraPrefix(index), root)
	e := &Era{
		Index:    index,
		base:     base,
		Blocks:   prefixdb.New([]byte(prefixBlocks), base),
		Finals:   prefixdb.New([]byte(prefixFinalizationRecord), base),
		Outcomes: prefixdb.New([]byte(prefixOutcomes), base),
		meta:     prefixdb.New([]byte(prefixMeta), base),
	}
	if err := e.ensureVersion(); err != nil {
		return nil, err
	}
	return e, nil
}

func eraPrefix(index uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, index)
	return append([]byte("treestate-"), b...)
}

func (e *Era) ensureVersion() error {
	raw, err := e.meta.Get([]byte(metaKeyVersion))
	if errors.Is(err, database.ErrNotFound) {
		v := make([]byte, 4)
		binary.BigEndian.PutUint32(v, currentLayoutVersion)
		return e.meta.Put([]byte(metaKeyVersion), v)
	}
	if err != nil {
		return err
	}
	if len(raw) != 4 {
		return ErrCorrupt
	}
	if binary.BigEndian.Uint32(raw) != currentLayoutVersion {
		return ErrUnknownVersion
	}
	return nil
}

// Migrate performs the one-shot legacy-layout migration described in
// §4.I: if the version tag is missing but a legacy unversioned layout
// (blockstate.dat / treestate/) is present at legacyRoot, its contents
// are copied under the versioned era prefix and stamped.
func Migrate(root database.Database, legacyRoot database.Database) error {
	era0 := eraPrefix(0)
	meta := prefixdb.New([]byte(prefixMeta), prefixdb.New(era0, root))
	if tagged, err := meta.Has([]byte(metaKeyVersion)); err != nil {
		return err
	} else if tagged {
		return nil
	}

	it := legacyRoot.NewIterator()
	defer it.Release()

	batch := root.NewBatch()
	var any bool
	for it.Next() {
		any = true
		key := append(append([]byte{}, era0...), it.Key()...)
		if err := batch.Put(key, it.Value()); err != nil {
			return fmt.Errorf("store: migrating legacy key: %w", err)
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	if !any {
		return nil
	}
	if err := batch.Write(); err != nil {
		return err
	}
	_, err := OpenEra(root, 0)
	return err
}

// Staging wraps a versiondb transaction over an era's databases for the
// atomic finalization-advance commit required by §4.E/§4.G: every write
// node.Coordinator makes for one finalization advance is staged here and
// either committed or aborted as a unit.
type Staging struct {
	era *Era
	vdb *versiondb.Database

	Blocks   database.Database
	Finals   database.Database
	Outcomes database.Database
}

// BeginFinalizationAdvance opens a staged transaction against the era's
// databases.
func (e *Era) BeginFinalizationAdvance() *Staging {
	vdb := versiondb.New(e.base)
	return &Staging{
		era:      e,
		vdb:      vdb,
		Blocks:   prefixdb.New([]byte(prefixBlocks), vdb),
		Finals:   prefixdb.New([]byte(prefixFinalizationRecord), vdb),
		Outcomes: prefixdb.New([]byte(prefixOutcomes), vdb),
	}
}

// PutBlock stages one block's encoded wire bytes in the blocks
// sub-database, keyed by its hash.
func (s *Staging) PutBlock(h idhash.Hash, encoded []byte) error {
	return s.Blocks.Put(h[:], encoded)
}

// PutFinalizationRecord stages one finalization record's encoded bytes,
// keyed by its monotone index.
func (s *Staging) PutFinalizationRecord(index uint64, encoded []byte) error {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)
	return s.Finals.Put(key, encoded)
}

// Commit atomically applies every staged write.
func (s *Staging) Commit() error { return s.vdb.Commit() }

// Abort discards every staged write without touching the era database.
func (s *Staging) Abort() { s.vdb.Abort() }
