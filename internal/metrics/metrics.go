// Package metrics declares the Prometheus instruments for the engine's
// scheduled passes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass metrics
var (
	// PassRunsTotal tracks completed pass runs by pass name and result.
	PassRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpulse_pass_runs_total",
			Help: "Completed pass runs by pass and result (ok/failed)",
		},
		[]string{"pass", "result"},
	)

	// PassDuration tracks pass duration in seconds.
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedpulse_pass_duration_seconds",
			Help:    "Pass duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"pass"},
	)

	// PassPostsProcessed tracks posts handled per pass run.
	PassPostsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpulse_pass_posts_processed_total",
			Help: "Posts processed by pass",
		},
		[]string{"pass"},
	)

	// PassPostsFailed tracks per-post failures that were isolated and skipped.
	PassPostsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpulse_pass_posts_failed_total",
			Help: "Posts skipped due to per-post errors, by pass",
		},
		[]string{"pass"},
	)
)

// Tier metrics
var (
	// TierTransitions tracks applied tier advances by from/to tier.
	TierTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpulse_tier_transitions_total",
			Help: "Applied tier transitions by from and to tier",
		},
		[]string{"from", "to"},
	)

	// SeedNotCompletedTotal tracks tier1 advances deferred on an unfinished
	// seed round.
	SeedNotCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedpulse_seed_not_completed_total",
			Help: "Tier1 advances deferred because seed distribution had not completed",
		},
	)

	// PostsExpired tracks posts marked expired by the decay pass.
	PostsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedpulse_posts_expired_total",
			Help: "Posts marked expired by the decay pass",
		},
	)

	// PostsFrozen tracks posts frozen by the enforcement policy.
	PostsFrozen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedpulse_posts_frozen_total",
			Help: "Posts frozen by the enforcement policy",
		},
	)
)

// Seed metrics
var (
	// SeedDistributions tracks seed records inserted.
	SeedDistributions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedpulse_seed_distributions_total",
			Help: "Seed distribution records inserted",
		},
	)

	// SeedLowCoverage tracks seed rounds that fell below the floor.
	SeedLowCoverage = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedpulse_seed_low_coverage_total",
			Help: "Seed rounds with a candidate set below the configured floor",
		},
	)
)

// Trending metrics
var (
	// TrendingQueueSize tracks the size of the last rebuilt queue.
	TrendingQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedpulse_trending_queue_size",
			Help: "Entries in the trending queue after the last rebuild",
		},
	)

	// TrendingChurn tracks queue entries/exits per rebuild.
	TrendingChurn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpulse_trending_churn_total",
			Help: "Trending queue churn by direction (entered/exited)",
		},
		[]string{"direction"},
	)
)

// Auditor metrics
var (
	// FraudFlagsTotal tracks fraud flags appended by type and severity.
	FraudFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedpulse_fraud_flags_total",
			Help: "Fraud flags appended by type and severity",
		},
		[]string{"type", "severity"},
	)
)

// Scheduler metrics
var (
	// IsLeader reports whether this instance currently drives the passes.
	IsLeader = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedpulse_is_leader",
			Help: "1 if this instance holds the scheduler leader lock",
		},
	)

	// LeaderElections tracks successful leader acquisitions.
	LeaderElections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedpulse_leader_elections_total",
			Help: "Successful scheduler leader elections",
		},
	)
)
