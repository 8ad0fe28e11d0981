package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SearchBackendTotal counts searches per executing backend.
	SearchBackendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "userdex",
			Name:      "search_backend_total",
			Help:      "Searches executed, labeled by backend (primary or secondary)",
		},
		[]string{"backend"},
	)

	// SearchFallbackTotal counts secondary index failures that degraded to
	// the primary store.
	SearchFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "userdex",
			Name:      "search_fallback_total",
			Help:      "Secondary index failures that fell back to the primary store",
		},
	)

	// IndexSyncTotal counts best-effort index mirroring operations.
	IndexSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "userdex",
			Name:      "index_sync_total",
			Help:      "Index sync operations, labeled by op (index or remove) and status",
		},
		[]string{"op", "status"},
	)
)

// RegisterSearchMetrics registers the search and sync counters. Called once
// from main; kept out of init so tests can import this package freely.
func RegisterSearchMetrics() {
	prometheus.MustRegister(SearchBackendTotal)
	prometheus.MustRegister(SearchFallbackTotal)
	prometheus.MustRegister(IndexSyncTotal)
}
