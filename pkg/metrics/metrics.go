package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Custom histogram buckets for API response times from milliseconds to 30+ seconds
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Database Client Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database client operations",
		},
		[]string{"operation", "status"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache flushes triggered by data changes",
		},
		[]string{"cache_name"},
	)

	// Storage Client Metrics (S3 compatible)
	StorageRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_client_operation_duration_seconds",
			Help:    "Storage client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	StorageRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_client_operation_total",
			Help: "Total number of storage client operations",
		},
		[]string{"operation", "status"},
	)

	// External provider calls (mail, payments, brokers)
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_client_operation_duration_seconds",
			Help:    "External provider call duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"provider", "operation", "status"},
	)

	// Business Metrics
	BookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_booking_attempts_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentorium_booking_duration_seconds",
			Help:    "End-to-end booking duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"outcome"},
	)

	BookingStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_booking_state_transitions_total",
			Help: "Booking state machine transitions by target state",
		},
		[]string{"state"},
	)

	PartitionFragments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_partition_fragments_total",
			Help: "Remainder fragments produced by slot partitioning",
		},
		[]string{"position", "result"}, // position: leading|trailing, result: kept|discarded
	)

	PartitionDiscardedMinutes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentorium_partition_discarded_minutes_total",
			Help: "Availability minutes dropped because the remainder was below the minimum fragment size",
		},
	)

	PartitionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mentorium_partition_failures_total",
			Help: "Partitions that failed after the original slot was claimed",
		},
	)

	SessionCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_session_cancellations_total",
			Help: "Session cancellation attempts",
		},
		[]string{"status"},
	)

	PriceQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_price_quotes_total",
			Help: "Price quotes served",
		},
		[]string{"modality"},
	)

	// Outbox Metrics
	OutboxJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_outbox_jobs_total",
			Help: "Outbox jobs processed by kind and result",
		},
		[]string{"kind", "result"}, // result: done|retry|dead
	)

	OutboxBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mentorium_outbox_batch_size",
			Help:    "Number of outbox jobs claimed per poll",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	RealtimeNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentorium_realtime_notifications_total",
			Help: "Availability change notifications received",
		},
		[]string{"source"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics periodically until stop is closed
func RecordInfrastructureMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				GoRoutines.Set(float64(runtime.NumGoroutine()))
				HeapAlloc.Set(float64(m.HeapAlloc))
			}
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// ObserveDB records a database operation outcome
func ObserveDB(operation string, start time.Time, err error) float64 {
	duration := MeasureDuration(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	DBOperationTotal.WithLabelValues(operation, status).Inc()
	return duration
}
