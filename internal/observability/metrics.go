// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the process-wide set of Prometheus collectors for the
// pipeline, scheduler, and LLM gateway. Registration follows 
// pkg/ingestion/metrics.go idiom: a package-level struct of collectors,
// registered once via sync.Once, with a consistent name prefix (here
// "docwiki_" instead of  "cie_ing_").
type Metrics struct {
	RepositoriesByStatus   *prometheus.GaugeVec
	StageTransitions       *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
	StageFailures          *prometheus.CounterVec
	SectionsGenerated      prometheus.Counter
	SectionsFailed         prometheus.Counter
	GatewayRequests        *prometheus.CounterVec
	GatewayRetries         *prometheus.CounterVec
	GatewayTokens          *prometheus.CounterVec
	SchedulerSweepDuration *prometheus.HistogramVec
	SchedulerDispatched    prometheus.Counter
	SchedulerDemoted       prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide Metrics instance, registering its
// collectors with the default registry exactly once.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RepositoriesByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "docwiki_repositories_by_status",
			Help: "Number of repositories currently in each pipeline status.",
		}, []string{"status"}),
		StageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docwiki_stage_transitions_total",
			Help: "Count of pipeline stage transitions.",
		}, []string{"from", "to"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docwiki_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docwiki_stage_failures_total",
			Help: "Count of stage failures by reason code.",
		}, []string{"stage", "code"}),
		SectionsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docwiki_sections_generated_total",
			Help: "Count of catalog leaves successfully generated.",
		}),
		SectionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docwiki_sections_failed_total",
			Help: "Count of catalog leaves that failed generation.",
		}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docwiki_gateway_requests_total",
			Help: "Count of LLM gateway chat requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GatewayRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docwiki_gateway_retries_total",
			Help: "Count of LLM gateway retry attempts by provider.",
		}, []string{"provider"}),
		GatewayTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docwiki_gateway_tokens_total",
			Help: "Token usage reported by the LLM gateway.",
		}, []string{"provider", "kind"}),
		SchedulerSweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docwiki_scheduler_sweep_duration_seconds",
			Help:    "Duration of scheduler sweeps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		SchedulerDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docwiki_scheduler_dispatched_total",
			Help: "Count of repositories dispatched to an orchestrator task.",
		}),
		SchedulerDemoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docwiki_scheduler_demoted_total",
			Help: "Count of FAILED repositories demoted back to PENDING by the cleanup sweep.",
		}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.RepositoriesByStatus, m.StageTransitions, m.StageDuration, m.StageFailures,
			m.SectionsGenerated, m.SectionsFailed, m.GatewayRequests, m.GatewayRetries,
			m.GatewayTokens, m.SchedulerSweepDuration, m.SchedulerDispatched, m.SchedulerDemoted,
		}
		for _, c := range collectors {
			_ = reg.Register(c) // AlreadyRegisteredError is fine on repeated test setup.
		}
	}
	return m
}

// NewTestMetrics returns an unregistered Metrics instance for tests, so
// repeated test runs don't collide on the global default registry.
func NewTestMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}
