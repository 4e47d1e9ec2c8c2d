// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"errors"
	"time"

	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/utils/wrappers"
	"github.com/luxfi/ids"
)

var ErrUnknownTxKind = errors.New("block: unknown transaction kind")

// Encode produces the full wire body for a block: its canonical content
// followed by the baker signature, which is never part of the hashed
// content (it is produced over the hash, not included in it). GenesisIndex
// is not written here -- it travels on the wire.Envelope, per §6.
func Encode(b *Block) []byte {
	body := b.CanonicalBytes()
	p := &wrappers.Packer{Bytes: make([]byte, 0, len(body)+16), MaxSize: 1 << 30}
	p.PackBytes(body)
	p.PackBytes(b.BakerSignature)
	return p.Bytes
}

// Decode is Encode's inverse. Round-tripping Decode(Encode(b)) followed by
// Encode again yields identical bytes, per §8 property 9.
func Decode(raw []byte) (*Block, error) {
	p := &wrappers.Packer{Bytes: raw, MaxSize: len(raw)}
	body := p.UnpackBytes()
	sig := p.UnpackBytes()
	if p.Errored() {
		return nil, p.Err
	}
	blk, err := decodeCanonical(body)
	if err != nil {
		return nil, err
	}
	blk.BakerSignature = sig
	return blk, nil
}

func decodeCanonical(body []byte) (*Block, error) {
	p := &wrappers.Packer{Bytes: body, MaxSize: len(body)}
	parent := p.UnpackFixedBytes(ids.IDLen)
	lastFinalized := p.UnpackFixedBytes(ids.IDLen)
	slot := p.UnpackLong()
	height := p.UnpackLong()
	bakerBytes := p.UnpackFixedBytes(ids.NodeIDLen)
	vrf := p.UnpackBytes()
	nonce := p.UnpackBytes()
	hasFin := p.UnpackBool()

	var fin *FinalizationData
	if hasFin {
		fin = &FinalizationData{}
		fin.Index = p.UnpackLong()
		fb := p.UnpackFixedBytes(ids.IDLen)
		fbHash, err := idhash.FromBytes(fb)
		if err != nil {
			return nil, err
		}
		fin.FinalizedBlock = fbHash
		fin.Delay = Slot(p.UnpackLong())
		fin.Proof = p.UnpackBytes()
	}

	txCount := p.UnpackInt()
	txs := make([]Transaction, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		raw := p.UnpackBytes()
		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	claimedState := p.UnpackFixedBytes(ids.IDLen)
	claimedOutcomes := p.UnpackFixedBytes(ids.IDLen)
	if p.Errored() {
		return nil, p.Err
	}

	parentHash, err := idhash.FromBytes(parent)
	if err != nil {
		return nil, err
	}
	lastFinHash, err := idhash.FromBytes(lastFinalized)
	if err != nil {
		return nil, err
	}
	baker, err := ids.ToNodeID(bakerBytes)
	if err != nil {
		return nil, err
	}
	stateHash, err := idhash.FromBytes(claimedState)
	if err != nil {
		return nil, err
	}
	outcomesHash, err := idhash.FromBytes(claimedOutcomes)
	if err != nil {
		return nil, err
	}

	return &Block{
		Parent:              parentHash,
		LastFinalized:       lastFinHash,
		SlotNumber:          Slot(slot),
		BlockHeight:         Height(height),
		Baker:               baker,
		VRFProof:            vrf,
		BlockNonce:          nonce,
		Finalization:        fin,
		Transactions:        txs,
		ClaimedStateHash:    stateHash,
		ClaimedOutcomesHash: outcomesHash,
	}, nil
}

// DecodeTransaction parses one transaction from its CanonicalBytes form,
// dispatching on the leading kind byte.
func DecodeTransaction(raw []byte) (Transaction, error) {
	if len(raw) == 0 {
		return nil, ErrUnknownTxKind
	}
	p := &wrappers.Packer{Bytes: raw, MaxSize: len(raw)}
	kind := TxKind(p.UnpackByte())
	switch kind {
	case KindNormal:
		senderBytes := p.UnpackFixedBytes(len(ids.ShortID{}))
		nonce := p.UnpackLong()
		energy := p.UnpackLong()
		expiry := p.UnpackLong()
		payload := p.UnpackBytes()
		sigs := unpackSigs(p)
		if p.Errored() {
			return nil, p.Err
		}
		sender, err := ids.ToShortID(senderBytes)
		if err != nil {
			return nil, err
		}
		return &NormalTransaction{
			Sender: sender, Nonce: nonce, Energy: energy,
			ExpiryTime: time.Unix(int64(expiry), 0).UTC(),
			Payload:    payload, Signatures: sigs,
		}, nil
	case KindCredentialDeployment:
		regID := p.UnpackBytes()
		expiry := p.UnpackLong()
		payload := p.UnpackBytes()
		sigs := unpackSigs(p)
		if p.Errored() {
			return nil, p.Err
		}
		return &CredentialDeployment{
			RegistrationID: regID,
			ExpiryTime:     time.Unix(int64(expiry), 0).UTC(),
			Payload:        payload, Signatures: sigs,
		}, nil
	case KindChainUpdate:
		updateType := p.UnpackStr()
		seq := p.UnpackLong()
		effective := p.UnpackLong()
		expiry := p.UnpackLong()
		payload := p.UnpackBytes()
		sigs := unpackSigs(p)
		if p.Errored() {
			return nil, p.Err
		}
		return &ChainUpdate{
			UpdateType: updateType, Sequence: seq,
			EffectiveTime: time.Unix(int64(effective), 0).UTC(),
			ExpiryTime:    time.Unix(int64(expiry), 0).UTC(),
			Payload:       payload, Signatures: sigs,
		}, nil
	default:
		return nil, ErrUnknownTxKind
	}
}

func unpackSigs(p *wrappers.Packer) [][]byte {
	n := p.UnpackInt()
	sigs := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		sigs = append(sigs, p.UnpackBytes())
	}
	return sigs
}
