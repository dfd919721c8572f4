package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	designer = "designer"

	// Cache metrics
	cacheLookupsTotal = "design_cache_lookups_total"

	// Job metrics
	JobStatusCount  = "design_job_status_count"
	jobsForcedTotal = "design_jobs_forced_failed_total"

	// Labels
	cacheOutcomeLabel = "outcome"
	jobStatusLabel    = "status"
)

var cacheLookupLabels = []string{
	cacheOutcomeLabel,
}

var jobStatusCountLabels = []string{
	jobStatusLabel,
}

/**
* Metrics definition
**/
var cacheLookupsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: designer,
		Name:      cacheLookupsTotal,
		Help:      "number of design cache lookups partitioned by hit/miss",
	},
	cacheLookupLabels,
)

var jobStatusCountMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: designer,
		Name:      JobStatusCount,
		Help:      "metrics to record the number of design jobs in each status",
	},
	jobStatusCountLabels,
)

var jobsForcedFailedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: designer,
		Name:      jobsForcedTotal,
		Help:      "number of jobs force-failed by the liveness timeout",
	},
)

func IncreaseCacheLookupsTotalMetric(outcome string) {
	labels := prometheus.Labels{
		cacheOutcomeLabel: outcome,
	}
	cacheLookupsTotalMetric.With(labels).Inc()
}

func UpdateJobStatusCountMetric(status string, count int) {
	labels := prometheus.Labels{
		jobStatusLabel: status,
	}
	jobStatusCountMetric.With(labels).Set(float64(count))
}

func IncreaseJobsForcedFailedTotalMetric() {
	jobsForcedFailedTotalMetric.Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(cacheLookupsTotalMetric)
	prometheus.MustRegister(jobStatusCountMetric)
	prometheus.MustRegister(jobsForcedFailedTotalMetric)
}
