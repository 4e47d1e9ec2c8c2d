// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTreeMetricsRegistersAndObserves(t *testing.T) {
	require := require.New(t)
	reg := NewRegistry()
	m, err := NewTreeMetrics(reg)
	require.NoError(err)
	m.ObserveBranches(3)
	m.ObserveFinalizedHeight(42)
	m.ObserveDeadPurged(2)
}

func TestNewTreeMetricsAllowsNilRegistry(t *testing.T) {
	require := require.New(t)
	m, err := NewTreeMetrics(nil)
	require.NoError(err)
	m.ObserveBranches(1) // must not panic against a live struct

	var nilM *TreeMetrics
	nilM.ObserveBranches(1) // nil receiver must be a safe no-op
}

func TestNewPendingMetrics(t *testing.T) {
	require := require.New(t)
	m, err := NewPendingMetrics(NewRegistry())
	require.NoError(err)
	m.Observe(5)
}

func TestNewStoreMetrics(t *testing.T) {
	require := require.New(t)
	m, err := NewStoreMetrics(NewRegistry())
	require.NoError(err)
	m.ObserveCommit()
	m.ObserveAbort()
}
