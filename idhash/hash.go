// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package idhash derives the content-addressed identifiers used throughout
// the consensus core: block hashes, transaction hashes, module references,
// and credential registration ids. All of them are 32-byte SHA-256 digests
// of a canonical serialization, so a single type and a single hashing
// helper serve every caller.
package idhash

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// Hash is a content hash. It aliases ids.ID so that block/transaction ids
// interoperate directly with the rest of the luxfi ecosystem (node ids,
// validator ids, ...).
type Hash = ids.ID

// Zero is the hash of nothing; it never identifies a real block or
// transaction and is used as the sentinel "no parent"/"no last-finalized"
// value.
var Zero Hash

// Encoder produces the canonical byte representation of a value that will
// be hashed and/or transmitted on the wire. Block and transaction types
// implement this so that hashing and serialization can never disagree,
// which is what the round-trip invariant depends on.
type Encoder interface {
	CanonicalBytes() []byte
}

// Of hashes the canonical encoding of v with SHA-256 and returns it as a
// Hash. Equal logical values hash equally regardless of in-memory
// representation, since CanonicalBytes is the only input.
func Of(v Encoder) Hash {
	sum := sha256.Sum256(v.CanonicalBytes())
	return Hash(sum)
}

// OfBytes hashes raw bytes directly; used for module artifacts and other
// blobs that are already in canonical form.
func OfBytes(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// FromBytes parses a 32-byte slice into a Hash, failing if the length is
// wrong. Mirrors ids.ToID so callers reading from the wire or from the
// store get the same error behavior as the rest of the ecosystem.
func FromBytes(b []byte) (Hash, error) {
	return ids.ToID(b)
}
