// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Roadmap sources.
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

var (
	RoadmapFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careerpath_roadmap_fetch_total",
			Help: "Roadmap fetches by source and fallback reason",
		},
		[]string{"source", "reason"},
	)

	RoadmapFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careerpath_roadmap_fetch_duration_seconds",
			Help:    "Duration of roadmap fetches in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	Recommendations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "careerpath_recommendations_total",
			Help: "Total number of recommendation runs",
		},
	)

	RoadmapsGenerating = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "careerpath_roadmaps_generating",
			Help: "Number of roadmaps currently being generated",
		},
	)
)
