package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DispatchResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_dispatch_results_total",
		Help: "Per-workflow dispatch outcomes.",
	}, []string{"status"})

	DispatchPriority = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_dispatch_priority_total",
		Help: "Priorities assigned to enqueued workflow executions.",
	}, []string{"priority"})

	DispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadflow_dispatch_duration_seconds",
		Help:    "Wall time of one webhook dispatch call.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	}, []string{"limit"})

	AuditPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leadflow_audit_pruned_total",
		Help: "Webhook execution audit rows removed by retention.",
	})
)

func init() {
	prometheus.MustRegister(DispatchResults, DispatchPriority, DispatchDuration, RateLimited, AuditPruned)
}
