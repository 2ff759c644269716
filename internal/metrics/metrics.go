// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Document lifecycle
	DocumentsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_submitted_total",
			Help: "Total documents accepted for processing",
		},
	)

	DocumentsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_completed_total",
			Help: "Total documents that finished every pipeline stage",
		},
	)

	DocumentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_failed_total",
			Help: "Total documents terminated by a permanent stage failure",
		},
		[]string{"stage"},
	)

	// Stage execution
	StageTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_tasks_total",
			Help: "Stage executions by outcome",
		},
		[]string{"stage", "outcome"}, // completed, failed, pending, dropped
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stage_duration_seconds",
			Help:    "Wall time of one stage execution",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"},
	)

	LeaseTakeovers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lease_takeovers_total",
			Help: "Expired stage leases taken over by another worker",
		},
		[]string{"stage"},
	)

	// Stall monitor
	MonitorRequeues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_requeues_total",
			Help: "Tasks re-enqueued by the stall monitor",
		},
		[]string{"stage", "reason"}, // lease_expired, queued_stalled, budget_exhausted
	)

	MonitorAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_advances_total",
			Help: "Stage completions replayed by the stall monitor from existing output",
		},
		[]string{"stage"},
	)

	MonitorCacheRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_cache_repairs_total",
			Help: "Document stage caches realigned with their status records",
		},
	)

	MonitorSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitor_sweep_duration_seconds",
			Help:    "Duration of one stall monitor sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// OCR
	OCRPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_polls_total",
			Help: "Poll calls against the OCR service by result",
		},
		[]string{"result"}, // pending, completed, failed, error
	)

	OCRJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocr_jobs_in_flight",
			Help: "Submitted OCR jobs awaiting completion",
		},
	)

	// Extraction
	ExtractionMentionsPerChunk = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_mentions_per_chunk",
			Help:    "Entity mentions found per chunk",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	ExtractionLLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_llm_requests_total",
			Help: "LLM extraction calls by outcome",
		},
		[]string{"outcome"}, // ok, error, breaker_open
	)

	// Queue
	QueueMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_published_total",
			Help: "Task messages published per stage topic",
		},
		[]string{"stage"},
	)

	QueuePoisonMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_poison_messages_total",
			Help: "Messages routed to the poison topic after exhausting retries",
		},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Graph export
	GraphExportRelationships = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_export_relationships_total",
			Help: "Relationships drained to the graph store",
		},
	)

	GraphExportErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_export_errors_total",
			Help: "Failed graph export batches",
		},
	)

	// Application
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Build information (value is always 1)",
		},
		[]string{"version", "commit"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Seconds since process start",
		},
	)
)

var startTime = time.Now()

// SetAppInfo publishes build metadata and starts the uptime gauge.
func SetAppInfo(version, commit string) {
	AppInfo.WithLabelValues(version, commit).Set(1)
	AppUptime.Set(time.Since(startTime).Seconds())
}

// UpdateUptime refreshes the uptime gauge; call it periodically.
func UpdateUptime() {
	AppUptime.Set(time.Since(startTime).Seconds())
}

// RecordStageExecution records one stage run.
func RecordStageExecution(stage, outcome string, duration time.Duration) {
	StageTasks.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackInFlight adjusts the in-flight request gauge.
func TrackInFlight(inc bool) {
	if inc {
		HTTPRequestsInFlight.Inc()
	} else {
		HTTPRequestsInFlight.Dec()
	}
}

// RecordBreakerTransition records a circuit breaker state change and updates
// the state gauge.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var v float64
	switch to {
	case "open":
		v = 1
	case "half-open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
