// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"time"

	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/utils/wrappers"
	"github.com/luxfi/ids"
)

// TxKind discriminates the three transaction shapes in §3.
type TxKind byte

const (
	KindNormal TxKind = iota
	KindCredentialDeployment
	KindChainUpdate
)

// Transaction is implemented by all three admissible transaction shapes.
// Each knows how to encode itself canonically (for hashing and for the
// wire). The ordering key admission uses to decide "next admissible"
// (§3, "Non-finalized ordering indices") is not part of this interface;
// txtable reads it from the concrete transaction type.
type Transaction interface {
	Kind() TxKind
	Hash() idhash.Hash
	CanonicalBytes() []byte
	// Expiry is used by the pipeline's ExpiryTooLate check.
	Expiry() time.Time
}

// NormalTransaction moves value or invokes a contract from an account.
type NormalTransaction struct {
	Sender     ids.ShortID
	Nonce      uint64
	Energy     uint64
	ExpiryTime time.Time
	Payload    []byte
	Signatures [][]byte
}

func (t *NormalTransaction) Kind() TxKind        { return KindNormal }
func (t *NormalTransaction) Hash() idhash.Hash   { return idhash.Of(t) }
func (t *NormalTransaction) Expiry() time.Time   { return t.ExpiryTime }
func (t *NormalTransaction) CanonicalBytes() []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 128), MaxSize: 1 << 20}
	p.PackByte(byte(KindNormal))
	p.PackFixedBytes(t.Sender[:])
	p.PackLong(t.Nonce)
	p.PackLong(t.Energy)
	p.PackLong(uint64(t.ExpiryTime.Unix()))
	p.PackBytes(t.Payload)
	p.PackInt(uint32(len(t.Signatures)))
	for _, sig := range t.Signatures {
		p.PackBytes(sig)
	}
	return p.Bytes
}

// AccountSender identifies who admission indexes this transaction under.
func (t *NormalTransaction) AccountSender() ids.ShortID { return t.Sender }

// SequenceNumber returns the nonce used for ordering.
func (t *NormalTransaction) SequenceNumber() uint64 { return t.Nonce }

// CredentialDeployment creates a new account.
type CredentialDeployment struct {
	RegistrationID []byte
	ExpiryTime     time.Time
	Payload        []byte
	Signatures     [][]byte
}

func (t *CredentialDeployment) Kind() TxKind      { return KindCredentialDeployment }
func (t *CredentialDeployment) Hash() idhash.Hash { return idhash.Of(t) }
func (t *CredentialDeployment) Expiry() time.Time { return t.ExpiryTime }
func (t *CredentialDeployment) CanonicalBytes() []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 128), MaxSize: 1 << 20}
	p.PackByte(byte(KindCredentialDeployment))
	p.PackBytes(t.RegistrationID)
	p.PackLong(uint64(t.ExpiryTime.Unix()))
	p.PackBytes(t.Payload)
	p.PackInt(uint32(len(t.Signatures)))
	for _, sig := range t.Signatures {
		p.PackBytes(sig)
	}
	return p.Bytes
}

// ChainUpdate changes a chain parameter at a future effective time.
type ChainUpdate struct {
	UpdateType     string
	Sequence       uint64
	EffectiveTime  time.Time
	ExpiryTime     time.Time
	Payload        []byte
	Signatures     [][]byte
}

func (t *ChainUpdate) Kind() TxKind      { return KindChainUpdate }
func (t *ChainUpdate) Hash() idhash.Hash { return idhash.Of(t) }
func (t *ChainUpdate) Expiry() time.Time { return t.ExpiryTime }
func (t *ChainUpdate) CanonicalBytes() []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 128), MaxSize: 1 << 20}
	p.PackByte(byte(KindChainUpdate))
	p.PackStr(t.UpdateType)
	p.PackLong(t.Sequence)
	p.PackLong(uint64(t.EffectiveTime.Unix()))
	p.PackLong(uint64(t.ExpiryTime.Unix()))
	p.PackBytes(t.Payload)
	p.PackInt(uint32(len(t.Signatures)))
	for _, sig := range t.Signatures {
		p.PackBytes(sig)
	}
	return p.Bytes
}

// SequenceNumber returns the update-queue sequence number used for
// ordering, mirroring NormalTransaction.SequenceNumber for update types.
func (t *ChainUpdate) SequenceNumber() uint64 { return t.Sequence }
