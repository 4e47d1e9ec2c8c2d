// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics provides the process-wide metric registry and the
// tree/pending/store gauges that don't belong to any single package's own
// private metrics file (compare txtable's own metrics.go, which owns its
// package-local counters the same way vms/txs/mempool/metrics.go does).
package metrics

import "github.com/luxfi/metric"

// Registry is the process-wide registerer every subsystem's own metrics
// constructor is handed at node.New time.
type Registry = metric.Registerer

// NewRegistry constructs a fresh, empty process-wide registry.
func NewRegistry() Registry { return metric.NewRegistry() }

// TreeMetrics tracks the block tree's shape: branch count and depth,
// finalization lag, dead-block reclamation.
type TreeMetrics struct {
	branchCount     metric.Gauge
	finalizedHeight metric.Gauge
	deadPurged      metric.Counter
}

// NewTreeMetrics registers the tree gauges/counters. A nil registry
// disables registration, matching txtable's own metrics constructor so
// callers can wire a real registry in production and pass nil in tests.
func NewTreeMetrics(reg Registry) (*TreeMetrics, error) {
	m := &TreeMetrics{
		branchCount: metric.NewGauge(metric.GaugeOpts{
			Name: "tree_branch_count",
			Help: "Number of branch height layers above the last finalized block",
		}),
		finalizedHeight: metric.NewGauge(metric.GaugeOpts{
			Name: "tree_finalized_height",
			Help: "Height of the last finalized block",
		}),
		deadPurged: metric.NewCounter(metric.CounterOpts{
			Name: "tree_dead_purged_total",
			Help: "Total number of dead blocks purged from the tree",
		}),
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(metric.AsCollector(m.branchCount)); err != nil {
		return nil, err
	}
	if err := reg.Register(metric.AsCollector(m.finalizedHeight)); err != nil {
		return nil, err
	}
	if err := reg.Register(metric.AsCollector(m.deadPurged)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TreeMetrics) ObserveBranches(n int) {
	if m == nil {
		return
	}
	m.branchCount.Set(float64(n))
}

func (m *TreeMetrics) ObserveFinalizedHeight(h uint64) {
	if m == nil {
		return
	}
	m.finalizedHeight.Set(float64(h))
}

func (m *TreeMetrics) ObserveDeadPurged(n int) {
	if m == nil {
		return
	}
	m.deadPurged.Add(float64(n))
}

// PendingMetrics tracks the not-yet-live block queue's size.
type PendingMetrics struct {
	queueLen metric.Gauge
}

// NewPendingMetrics registers the pending-table gauge.
func NewPendingMetrics(reg Registry) (*PendingMetrics, error) {
	m := &PendingMetrics{
		queueLen: metric.NewGauge(metric.GaugeOpts{
			Name: "pending_queue_length",
			Help: "Number of blocks queued awaiting an unknown parent",
		}),
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(metric.AsCollector(m.queueLen)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PendingMetrics) Observe(n int) {
	if m == nil {
		return
	}
	m.queueLen.Set(float64(n))
}

// StoreMetrics tracks era-database commit activity.
type StoreMetrics struct {
	commits metric.Counter
	aborts  metric.Counter
}

// NewStoreMetrics registers the era-store counters.
func NewStoreMetrics(reg Registry) (*StoreMetrics, error) {
	m := &StoreMetrics{
		commits: metric.NewCounter(metric.CounterOpts{
			Name: "store_finalization_commits_total",
			Help: "Total number of committed finalization-advance staging transactions",
		}),
		aborts: metric.NewCounter(metric.CounterOpts{
			Name: "store_finalization_aborts_total",
			Help: "Total number of aborted finalization-advance staging transactions",
		}),
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(metric.AsCollector(m.commits)); err != nil {
		return nil, err
	}
	if err := reg.Register(metric.AsCollector(m.aborts)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StoreMetrics) ObserveCommit() {
	if m == nil {
		return
	}
	m.commits.Inc()
}

func (m *StoreMetrics) ObserveAbort() {
	if m == nil {
		return
	}
	m.aborts.Inc()
}
