// Package metrics exposes Prometheus instrumentation for the crawl pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks fetch attempts per host and outcome
	// (completed, failed, retried, abuse).
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetches_total",
			Help: "Total number of target fetch attempts",
		},
		[]string{"host", "outcome"},
	)

	// FetchLatency tracks fetch latency per host
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_fetch_latency_seconds",
			Help:    "Target fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// BatchesTotal tracks completed batch loop iterations per job outcome
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_batches_total",
			Help: "Total number of batch iterations",
		},
		[]string{"outcome"},
	)

	// AbuseDetectionsTotal tracks anti-automation detections per type
	AbuseDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_abuse_detections_total",
			Help: "Total number of anti-automation detections",
		},
		[]string{"type"},
	)

	// InflightFetches tracks the number of concurrently executing fetches
	InflightFetches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_inflight_fetches",
			Help: "Number of fetches currently executing",
		},
	)

	// RunningJobs tracks the number of jobs with an active batch loop
	RunningJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_running_jobs",
			Help: "Number of jobs with an active batch loop",
		},
	)

	// StaleRequeuedTotal tracks processing rows returned to pending by the reaper
	StaleRequeuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_stale_requeued_total",
			Help: "Total number of stale processing targets requeued",
		},
	)
)
