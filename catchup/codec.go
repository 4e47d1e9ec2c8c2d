// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catchup

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const statusCodecVersion = 0

// statusCodec is the canonical wire codec for the catch-up handshake
// message, following the teacher's own package-level codec.Manager
// pattern (vms/zkvm/codec.go: linearcodec.NewDefault, RegisterType,
// RegisterCodec at a fixed version). Status is a flat struct with no
// polymorphic dispatch, so it is a natural fit for the reflection-based
// codec, unlike Block/Transaction's type-tagged encode/decode.
var statusCodec codec.Manager

func init() {
	statusCodec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()
	if err := errors.Join(
		lc.RegisterType(&Status{}),
		statusCodec.RegisterCodec(statusCodecVersion, lc),
	); err != nil {
		panic(err)
	}
}

// EncodeStatus serializes a catch-up handshake message.
func EncodeStatus(s Status) ([]byte, error) {
	return statusCodec.Marshal(statusCodecVersion, &s)
}

// DecodeStatus parses a catch-up handshake message previously produced
// by EncodeStatus.
func DecodeStatus(raw []byte) (Status, error) {
	var s Status
	_, err := statusCodec.Unmarshal(raw, &s)
	return s, err
}
