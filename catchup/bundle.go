// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catchup

import (
	"errors"
	"fmt"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/finalization"
	"github.com/luxfi/utils/wrappers"
)

// BundleVersion is the current export bundle format version, per §6
// "Export format — versioned block-bundle (currently v3)".
const BundleVersion uint16 = 3

// bundleMagic identifies bundle chunks so a truncated or foreign file is
// rejected up front rather than mis-parsed.
const bundleMagic uint32 = 0x434f5243 // "CORC"

var (
	ErrBadMagic       = errors.New("catchup: bad chunk magic")
	ErrUnsupportedVer = errors.New("catchup: unsupported bundle version")
)

// Chunk is one segment of an export bundle: a header (magic, version,
// chunk index) followed by blocks and finalization records in causal
// order, per §6.
type Chunk struct {
	Index        uint32
	Blocks       []*block.Block
	Finalizations []finalization.FinalizationRecord
}

// EncodeChunk serializes a chunk to its wire form.
func EncodeChunk(c Chunk) []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 512), MaxSize: 1 << 30}
	p.PackInt(bundleMagic)
	p.PackShort(BundleVersion)
	p.PackInt(c.Index)
	p.PackInt(uint32(len(c.Blocks)))
	for _, b := range c.Blocks {
		p.PackBytes(block.Encode(b))
	}
	p.PackInt(uint32(len(c.Finalizations)))
	for _, f := range c.Finalizations {
		p.PackBytes(finalization.EncodeRecord(f))
	}
	return p.Bytes
}

// DecodeChunk parses a chunk previously produced by EncodeChunk.
func DecodeChunk(raw []byte) (Chunk, error) {
	p := &wrappers.Packer{Bytes: raw}
	magic := p.UnpackInt()
	if magic != bundleMagic {
		return Chunk{}, ErrBadMagic
	}
	version := p.UnpackShort()
	if version != BundleVersion {
		return Chunk{}, fmt.Errorf("%w: got v%d, want v%d", ErrUnsupportedVer, version, BundleVersion)
	}
	c := Chunk{Index: p.UnpackInt()}

	numBlocks := p.UnpackInt()
	c.Blocks = make([]*block.Block, 0, numBlocks)
	for i := uint32(0); i < numBlocks; i++ {
		blk, err := block.Decode(p.UnpackBytes())
		if err != nil {
			return Chunk{}, fmt.Errorf("catchup: decoding block %d: %w", i, err)
		}
		c.Blocks = append(c.Blocks, blk)
	}

	numFinals := p.UnpackInt()
	c.Finalizations = make([]finalization.FinalizationRecord, 0, numFinals)
	for i := uint32(0); i < numFinals; i++ {
		recBytes := p.UnpackBytes()
		if p.Errored() {
			return Chunk{}, p.Err
		}
		rec, err := finalization.DecodeRecord(recBytes)
		if err != nil {
			return Chunk{}, fmt.Errorf("catchup: decoding finalization record %d: %w", i, err)
		}
		c.Finalizations = append(c.Finalizations, rec)
	}

	if p.Errored() {
		return Chunk{}, p.Err
	}
	return c, nil
}

// Index is the caller-maintained record of chunk indices already applied,
// letting an importer skip chunks whose blocks are already present per §6.
type Index struct {
	applied map[uint32]bool
}

// NewIndex returns an empty applied-chunk index.
func NewIndex() *Index { return &Index{applied: make(map[uint32]bool)} }

// HasApplied reports whether chunk index i has already been imported.
func (idx *Index) HasApplied(i uint32) bool { return idx.applied[i] }

// MarkApplied records that chunk index i has been imported.
func (idx *Index) MarkApplied(i uint32) { idx.applied[i] = true }

// ApplyFunc consumes one already-decoded chunk's blocks and finalization
// records; supplied by the caller (typically the pipeline/finalization
// processor pair) so this package stays free of tree/pipeline coupling.
type ApplyFunc func(c Chunk) error

// Import decodes and applies every chunk in order, skipping any whose
// index the supplied Index already marks as applied.
func Import(idx *Index, raw [][]byte, apply ApplyFunc) (imported, skipped int, err error) {
	for _, chunkBytes := range raw {
		c, err := DecodeChunk(chunkBytes)
		if err != nil {
			return imported, skipped, err
		}
		if idx.HasApplied(c.Index) {
			skipped++
			continue
		}
		if err := apply(c); err != nil {
			return imported, skipped, fmt.Errorf("catchup: applying chunk %d: %w", c.Index, err)
		}
		idx.MarkApplied(c.Index)
		imported++
	}
	return imported, skipped, nil
}
