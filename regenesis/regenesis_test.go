// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package regenesis

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T) *blockstate.Snapshot {
	t.Helper()
	s, err := blockstate.New(1, metric.NewRegistry(), 16, 16)
	require.NoError(t, err)
	return s
}

func TestRegenesisIsDeterministic(t *testing.T) {
	require := require.New(t)

	era := EraInfo{
		Index:          0,
		CurrentGenesis: idhash.OfBytes([]byte("era0-genesis")),
		Params:         Params{EpochLength: 100, SlotDuration: time.Second},
	}
	terminal := idhash.OfBytes([]byte("terminal-block"))
	slotTime := time.Unix(1000, 0).UTC()

	next1, gen1, err := Regenesis(context.Background(), era, terminal, slotTime, 42, newState(t), nil, nil)
	require.NoError(err)
	next2, gen2, err := Regenesis(context.Background(), era, terminal, slotTime, 42, newState(t), nil, nil)
	require.NoError(err)

	require.Equal(gen1.Hash(), gen2.Hash())
	require.Equal(next1.Hash(), next2.Hash())
	require.Equal(era.CurrentGenesis, gen1.FirstGenesis)
	require.Equal(uint32(1), gen1.GenesisIndex)
	require.Equal(uint64(43), gen1.StartAbsoluteHeight)
}
