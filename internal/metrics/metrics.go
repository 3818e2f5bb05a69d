package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Planner metrics
	// ============================================
	PlansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdk_plans_total",
			Help: "Total number of planning calls by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	PlannedTransactions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sdk_planned_transactions",
		Help:    "Number of transactions per successful plan",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	// ============================================
	// Pathfinder metrics
	// ============================================
	PathfinderRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sdk_pathfinder_request_duration_seconds",
		Help:    "Pathfinder compute_transfer request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	PathfinderRequestsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sdk_pathfinder_requests_failed_total",
		Help: "Total number of failed pathfinder requests",
	})

	// ============================================
	// Encoder metrics
	// ============================================
	FlowMatrixEdges = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sdk_flow_matrix_edges",
		Help:    "Number of edges per encoded flow matrix",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})
)
