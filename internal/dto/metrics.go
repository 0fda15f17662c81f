package dto

import "time"

// MetricsSnapshot is the JSON summary served at /metrics/summary.
type MetricsSnapshot struct {
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	SchedulingOperations     uint64            `json:"scheduling_operations"`
	SchedulingRejected       uint64            `json:"scheduling_rejected"`
	ConflictsByDimension     map[string]uint64 `json:"conflicts_by_dimension"`
	BulkItems                map[string]uint64 `json:"bulk_items"`
	TxRetries                uint64            `json:"tx_retries"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	DBQueryCount             uint64            `json:"db_query_count"`
	AverageDBQueryDurationMs float64           `json:"average_db_query_duration_ms"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
