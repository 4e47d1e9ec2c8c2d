// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/utils/wrappers"
	"github.com/luxfi/ids"
)

// EncodeRecord serializes a FinalizationRecord to its canonical wire form,
// shared by the catch-up export bundle and the persisted-state journal so
// the two never drift into separate formats for the same value.
func EncodeRecord(r FinalizationRecord) []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 64), MaxSize: 1 << 20}
	p.PackFixedBytes(r.FinalizedBlock[:])
	p.PackLong(r.Index)
	p.PackLong(r.Delay)
	p.PackBytes(r.SignerBitmap)
	p.PackBytes(r.AggregateProof)
	return p.Bytes
}

// DecodeRecord is EncodeRecord's inverse.
func DecodeRecord(raw []byte) (FinalizationRecord, error) {
	p := &wrappers.Packer{Bytes: raw, MaxSize: len(raw)}
	fbBytes := p.UnpackFixedBytes(ids.IDLen)
	index := p.UnpackLong()
	delay := p.UnpackLong()
	bitmap := p.UnpackBytes()
	proof := p.UnpackBytes()
	if p.Errored() {
		return FinalizationRecord{}, p.Err
	}
	h, err := idhash.FromBytes(fbBytes)
	if err != nil {
		return FinalizationRecord{}, err
	}
	return FinalizationRecord{
		FinalizedBlock: h,
		Index:          index,
		Delay:          delay,
		SignerBitmap:   bitmap,
		AggregateProof: proof,
	}, nil
}
