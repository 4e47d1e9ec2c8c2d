// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blockstate implements the versioned per-block state snapshot
// described in SPEC_FULL.md §4.B: accounts, instances, modules, bakers,
// reward accounts, seed state, and chain parameters, with bounded LRU
// caching and copy-on-write thaw/freeze semantics.
package blockstate

import "errors"

// The three failure modes named in SPEC_FULL.md §4.B.
var (
	ErrNotFound        = errors.New("blockstate: not found")
	ErrVersionMismatch = errors.New("blockstate: opened for wrong protocol version")
	ErrStorageError    = errors.New("blockstate: storage I/O error")
)
