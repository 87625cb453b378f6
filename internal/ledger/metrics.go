package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "backend",
	Name:      "fallbacks_total",
	Help:      "Reads served from the local store after the relational backend failed.",
}, []string{"op"})

var mirrorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "backend",
	Name:      "mirror_failures_total",
	Help:      "Writes kept locally after the relational backend rejected them.",
}, []string{"op"})
