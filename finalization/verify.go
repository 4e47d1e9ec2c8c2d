// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/math/set"
)

var (
	ErrInvalidSignerBitmap   = errors.New("finalization: signer bitmap references an unknown committee member")
	ErrInvalidAggregateProof = errors.New("finalization: aggregate proof does not parse as a BLS signature")
	ErrAggregatePublicKey    = errors.New("finalization: failed to aggregate committee public keys")
	ErrSignatureMismatch     = errors.New("finalization: aggregate signature does not verify against committee")
)

// VerifyAggregateSignature checks that record's AggregateProof is a valid
// BLS aggregate signature over msg, produced by the subset of committee
// members record.SignerBitmap marks. Grounded on
// vms/platformvm/warp/signature.go's BitSetSignature.Verify: parse the
// signer bitset, filter the committee down to the marked subset,
// aggregate their public keys, then verify the aggregate signature. The
// committee slice is caller-supplied (typically each Baker's
// AggregationKey decoded via bls.PublicKeyFromBytes) rather than looked
// up here, keeping this package free of blockstate coupling.
func VerifyAggregateSignature(record FinalizationRecord, committee []*bls.PublicKey, msg []byte) error {
	signerIndices := set.BitsFromBytes(record.SignerBitmap)
	if len(signerIndices.Bytes()) != len(record.SignerBitmap) || signerIndices.BitLen() > len(committee) {
		return ErrInvalidSignerBitmap
	}

	signers := make([]*bls.PublicKey, 0, signerIndices.Len())
	for i, pk := range committee {
		if !signerIndices.Contains(i) {
			continue
		}
		signers = append(signers, pk)
	}

	aggPubKey, err := bls.AggregatePublicKeys(signers)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAggregatePublicKey, err)
	}

	sig, err := bls.SignatureFromBytes(record.AggregateProof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAggregateProof, err)
	}

	if !bls.Verify(aggPubKey, sig, msg) {
		return ErrSignatureMismatch
	}
	return nil
}
