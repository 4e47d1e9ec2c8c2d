// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txtable

import "github.com/luxfi/metric"

// MetricsRegistry is the subset of metric.Registerer the table needs;
// kept as its own alias so callers can pass nil in tests without
// depending on the full luxfi/metric registry type.
type MetricsRegistry = metric.Registerer

type tableMetrics struct {
	numAdded metric.Counter
	numPurged metric.Counter
}

// newTableMetrics registers the transaction-table gauges/counters,
// grounded on the teacher's vms/txs/mempool/metrics.go.
func newTableMetrics(reg MetricsRegistry) (*tableMetrics, error) {
	m := &tableMetrics{
		numAdded: metric.NewCounter(metric.CounterOpts{
			Name: "txtable_added_total",
			Help: "Total number of transactions admitted to the table",
		}),
		numPurged: metric.NewCounter(metric.CounterOpts{
			Name: "txtable_purged_total",
			Help: "Total number of transactions removed by purge",
		}),
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(metric.AsCollector(m.numAdded)); err != nil {
		return nil, err
	}
	if err := reg.Register(metric.AsCollector(m.numPurged)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *tableMetrics) observeAdd() {
	if m == nil {
		return
	}
	m.numAdded.Inc()
}

func (m *tableMetrics) observePurge(n int) {
	if m == nil {
		return
	}
	m.numPurged.Add(float64(n))
}
