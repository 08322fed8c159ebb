package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// solveTotal counts solves by regime and outcome
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crucible_solve_total",
		Help: "Total solves by regime and outcome",
	}, []string{"regime", "outcome"})

	// solveDuration tracks search latency
	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crucible_solve_duration_seconds",
		Help:    "Search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"regime"})

	// solveExpanded tracks states settled per search
	solveExpanded = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crucible_solve_expanded_states",
		Help:    "States settled per search",
		Buckets: prometheus.ExponentialBuckets(10, 4, 10),
	}, []string{"regime"})

	// solveCacheHits counts solves answered from a session's cache
	solveCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crucible_solve_cache_hits_total",
		Help: "Solves answered from the session cache",
	}, []string{"regime"})

	// sessionsCreated counts created sessions
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_sessions_created_total",
		Help: "Total sessions created",
	})
)
