package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilterLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cachegate_filter_lookups_total",
		Help: "The total number of membership tests against in-memory filters",
	})
	FilterHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cachegate_filter_hits_total",
		Help: "The total number of membership tests that reported the key as seen",
	})
	FilterLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cachegate_filter_loads_total",
		Help: "The total number of filter states loaded from the filter store",
	})
	FilterAllocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cachegate_filter_allocations_total",
		Help: "The total number of fresh filter states allocated (no persisted state or expired)",
	})
	FilterFillRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cachegate_filter_fill_ratio",
		Help: "Fraction of set bits in the persisted filter state, above 0.5 the bin is undersized",
	}, []string{"bin"})
	FilterKeys = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cachegate_filter_keys",
		Help: "Number of distinct keys admitted into the persisted filter state",
	}, []string{"bin"})
)
