package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheHitsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parley_gate_cache_hits_total",
	Help: "Membership queries answered from a fresh snapshot",
}, []string{"cache"})

var cacheMissesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parley_gate_cache_misses_total",
	Help: "Membership queries that required a backend refresh",
}, []string{"cache"})

var cacheRefreshesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parley_gate_cache_refreshes_total",
	Help: "Backend refresh attempts by outcome",
}, []string{"cache", "outcome"})

var cacheStaleServesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parley_gate_cache_stale_serves_total",
	Help: "Queries served from an expired snapshot after a failed refresh",
}, []string{"cache"})

var blockChecksCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parley_gate_block_checks_total",
	Help: "IP block list checks by outcome",
}, []string{"outcome"})

var blockWritesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "parley_gate_block_writes_total",
	Help: "IP block list writes by outcome",
}, []string{"outcome"})
