package syncer

import (
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "sync",
		Name:      "pushes_total",
		Help:      "Remote document pushes by result.",
	}, []string{"result"})

	pullsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "sync",
		Name:      "pulls_total",
		Help:      "Remote document pulls by result.",
	}, []string{"result"})

	pendingPushes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledger",
		Subsystem: "sync",
		Name:      "pending_pushes",
		Help:      "1 while a debounced push is waiting to fire.",
	})
)

// result labels err by its sync kind.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	if k := syncerr.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}
