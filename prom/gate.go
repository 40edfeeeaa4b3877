package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WritesSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cachegate_writes_suppressed_total",
		Help: "The total number of cache writes suppressed because the key had not been seen before",
	}, []string{"bin"})
	WritesPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cachegate_writes_passed_total",
		Help: "The total number of cache writes forwarded to the underlying backend",
	}, []string{"bin"})
	Flushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cachegate_flushes_total",
		Help: "The total number of flushes that persisted new admissions",
	}, []string{"bin"})
	FlushesAbandoned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cachegate_flushes_abandoned_total",
		Help: "The total number of flushes abandoned after losing the advisory lock race",
	}, []string{"bin"})
)
