package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opScan   = "scan"

	resultHit      = "hit"
	resultMiss     = "miss"
	resultOK       = "ok"
	resultError    = "error"
	resultCorrupt  = "corrupt"
	resultDisabled = "disabled"
)

// cacheOps counts cache calls by operation and outcome.
var cacheOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "edupay_cache_operations_total",
		Help: "Dashboard cache operations by op and result.",
	},
	[]string{"op", "result"},
)

func init() {
	prometheus.MustRegister(cacheOps)
}

func observe(op, result string) { cacheOps.WithLabelValues(op, result).Inc() }
