// Package metrics provides Prometheus metrics for duplicate detection and resolution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/syed-c/standzon-sub002/pkg/models"
)

var (
	// AnalysisRunsTotal tracks duplicate analysis passes
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dedup",
			Name:      "analysis_runs_total",
			Help:      "Total number of duplicate analysis passes",
		},
		[]string{"tenant_id"},
	)

	// GroupsDetectedTotal tracks duplicate groups found by confidence
	GroupsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dedup",
			Name:      "groups_detected_total",
			Help:      "Total number of duplicate groups detected by confidence",
		},
		[]string{"tenant_id", "confidence"},
	)

	// BuildersRemovedTotal tracks builders removed as duplicates by strategy
	BuildersRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dedup",
			Name:      "builders_removed_total",
			Help:      "Total number of builders removed as duplicates",
		},
		[]string{"tenant_id", "strategy"},
	)

	// AnalysisDuration tracks how long an analysis pass takes
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dedup",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of duplicate analysis passes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)
)

// RecordAnalysis records one analysis pass and the groups it found
func RecordAnalysis(tenantID string, groups []models.DuplicateGroup, durationSeconds float64) {
	AnalysisRunsTotal.WithLabelValues(tenantID).Inc()
	AnalysisDuration.Observe(durationSeconds)
	for _, g := range groups {
		GroupsDetectedTotal.WithLabelValues(tenantID, string(g.Confidence)).Inc()
	}
}

// RecordRemoval records builders removed by a resolution
func RecordRemoval(tenantID string, strategy models.ResolutionStrategy, count int) {
	if count <= 0 {
		return
	}
	BuildersRemovedTotal.WithLabelValues(tenantID, string(strategy)).Add(float64(count))
}
