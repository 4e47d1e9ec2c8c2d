// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"testing"

	"github.com/luxfi/concord/idhash"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	require := require.New(t)
	rec := FinalizationRecord{
		Index:          5,
		FinalizedBlock: idhash.OfBytes([]byte("block")),
		Delay:          2,
		SignerBitmap:   []byte{0x07},
		AggregateProof: []byte("aggregate-signature"),
	}

	got, err := DecodeRecord(EncodeRecord(rec))
	require.NoError(err)
	require.Equal(rec, got)
}
