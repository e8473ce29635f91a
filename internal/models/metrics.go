package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot exposed by the ops endpoints.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	DBQueryCount             uint64    `json:"dbQueryCount"`
	AverageDBQueryDurationMs float64   `json:"averageDbQueryDurationMs"`
	ConflictsDetected        uint64    `json:"conflictsDetected"`
	SuggestionsServed        uint64    `json:"suggestionsServed"`
	RecurrenceCreated        uint64    `json:"recurrenceCreated"`
	RecurrenceSkipped        uint64    `json:"recurrenceSkipped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
