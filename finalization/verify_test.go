// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/stretchr/testify/require"
)

func testCommittee(t *testing.T, n int) []*bls.PublicKey {
	t.Helper()
	out := make([]*bls.PublicKey, n)
	for i := range out {
		sk, err := bls.NewSecretKey()
		require.NoError(t, err)
		out[i] = bls.PublicFromSecretKey(sk)
	}
	return out
}

func TestVerifyAggregateSignatureRejectsBitmapPastCommitteeSize(t *testing.T) {
	require := require.New(t)
	committee := testCommittee(t, 2)

	rec := FinalizationRecord{SignerBitmap: []byte{0xFF}} // bit 0..7 set, committee has 2 members
	err := VerifyAggregateSignature(rec, committee, []byte("msg"))
	require.ErrorIs(err, ErrInvalidSignerBitmap)
}

func TestVerifyAggregateSignatureRejectsUnparseableProof(t *testing.T) {
	require := require.New(t)
	committee := testCommittee(t, 1)

	rec := FinalizationRecord{SignerBitmap: []byte{0x01}, AggregateProof: []byte("not-a-signature")}
	err := VerifyAggregateSignature(rec, committee, []byte("msg"))
	require.ErrorIs(err, ErrInvalidAggregateProof)
}
