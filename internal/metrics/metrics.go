// Package metrics exposes the Prometheus instrumentation for the moodboard
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service collectors. A single instance is created at
// bootstrap and shared by injection.
type Metrics struct {
	JobsSubmitted   prometheus.Counter
	JobsDeduped     prometheus.Counter
	JobsCompleted   *prometheus.CounterVec
	JobDuration     prometheus.Histogram
	StageDuration   *prometheus.HistogramVec
	ProviderSearch  *prometheus.CounterVec
	CandidatesFound prometheus.Histogram
	Classifications *prometheus.CounterVec
}

// New registers the collectors on reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodboard_jobs_submitted_total",
			Help: "Moodboard jobs accepted for processing.",
		}),
		JobsDeduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodboard_jobs_deduped_total",
			Help: "Submissions that matched an existing job by content fingerprint.",
		}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_jobs_completed_total",
			Help: "Finished jobs by terminal status.",
		}, []string{"status"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodboard_job_duration_seconds",
			Help:    "End-to-end job processing time.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moodboard_stage_duration_seconds",
			Help:    "Per-stage pipeline processing time.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"stage"}),
		ProviderSearch: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_provider_searches_total",
			Help: "Provider search calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CandidatesFound: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodboard_candidates_per_job",
			Help:    "Deduplicated candidate pool size per job.",
			Buckets: prometheus.LinearBuckets(0, 10, 6),
		}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moodboard_classifications_total",
			Help: "Classification results by dominant aesthetic.",
		}, []string{"aesthetic"}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
