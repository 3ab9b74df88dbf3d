// Package metrics provides Prometheus metrics for player deduplication.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchDecisionsTotal tracks matcher classifications by match type
	MatchDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "decisions_total",
			Help:      "Total number of match decisions by match type",
		},
		[]string{"match_type"},
	)

	// MatchDuration tracks how long a single FindMatch takes
	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Duration of match decisions in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"match_type"},
	)

	// CandidatesScored tracks the size of prefiltered candidate sets
	CandidatesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "candidates_scored",
			Help:      "Number of prefiltered records scored per fuzzy check",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// StoreErrorsTotal tracks store failures surfaced by the engine
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of player store failures by operation",
		},
		[]string{"operation"},
	)

	// ImportRowsTotal tracks bulk import rows by action
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "importing",
			Name:      "rows_total",
			Help:      "Total number of bulk import rows by action",
		},
		[]string{"action"},
	)

	// MergesTotal tracks merge attempts by status
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merging",
			Name:      "merges_total",
			Help:      "Total number of player merges by status",
		},
		[]string{"status"},
	)
)
