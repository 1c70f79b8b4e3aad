package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheOperations counts backend operations by operation (get|set|add|delete|clear) and result.
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncache_operations_total",
			Help: "Total number of cache backend operations",
		},
		[]string{"operation", "result"},
	)

	// CacheEntries tracks entries by state (active|expired) as of the last stats call.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "axoncache_entries",
			Help: "Number of cache entries by state",
		},
		[]string{"state"},
	)

	// CacheInvalidations counts invalidations per region.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncache_invalidations_total",
			Help: "Total number of cache invalidations by region",
		},
		[]string{"region"},
	)

	// MaintenanceRuns counts background maintenance jobs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncache_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// MaintenanceRemoved counts rows removed by maintenance jobs.
	MaintenanceRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncache_maintenance_removed_total",
			Help: "Total number of records removed by maintenance jobs",
		},
		[]string{"job"},
	)

	// MaintenanceDuration measures maintenance job latency.
	MaintenanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axoncache_maintenance_duration_seconds",
			Help:    "Maintenance job duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axoncache_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RecordCacheOperation increments the operation counter.
func RecordCacheOperation(operation, result string) {
	CacheOperations.WithLabelValues(operation, result).Inc()
}

// SetCacheEntries publishes the latest entry counts.
func SetCacheEntries(active, expired int64) {
	CacheEntries.WithLabelValues("active").Set(float64(active))
	CacheEntries.WithLabelValues("expired").Set(float64(expired))
}

// RecordInvalidation increments the invalidation counter for region.
func RecordInvalidation(region string) {
	CacheInvalidations.WithLabelValues(region).Inc()
}

// RecordMaintenanceRun records the outcome of a maintenance job.
func RecordMaintenanceRun(job string, removed int64, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	MaintenanceRuns.WithLabelValues(job, result).Inc()
	if removed > 0 {
		MaintenanceRemoved.WithLabelValues(job).Add(float64(removed))
	}
	MaintenanceDuration.WithLabelValues(job).Observe(duration.Seconds())
}
