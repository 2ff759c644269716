// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the pipeline using the Prometheus client library,
exposing metrics for monitoring throughput, stage health, and system behavior.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8420/metrics

# Available Metrics

Document Metrics:
  - documents_submitted_total: Documents accepted for processing (counter)
  - documents_completed_total: Documents that reached the completed stage (counter)
  - documents_failed_total: Documents that reached the failed stage (counter)
    Labels: stage (the stage whose failure terminated the document)

Stage Metrics:
  - stage_tasks_total: Stage executions by outcome (counter)
    Labels: stage, outcome (completed, failed, pending, dropped)
  - stage_duration_seconds: Wall time per stage execution (histogram)
    Labels: stage
  - lease_takeovers_total: Expired leases taken over by another worker (counter)
    Labels: stage

Monitor Metrics:
  - monitor_requeues_total: Tasks re-enqueued by the stall monitor (counter)
  - monitor_advances_total: Stage completions replayed from existing output (counter)
  - monitor_cache_repairs_total: Document stage caches realigned with records (counter)
    Labels: stage, reason (lease_expired, queued_stalled)
  - monitor_sweep_duration_seconds: Stall sweep duration (histogram)

OCR Metrics:
  - ocr_polls_total: Poll calls against the OCR service (counter)
    Labels: result (pending, completed, failed, error)
  - ocr_jobs_in_flight: Submitted OCR jobs awaiting completion (gauge)

Extraction Metrics:
  - extraction_mentions_per_chunk: Mentions found per chunk (histogram)
  - extraction_llm_requests_total: LLM extraction calls (counter)
    Labels: outcome (ok, error, breaker_open)

Queue Metrics:
  - queue_messages_published_total: Task messages published (counter)
    Labels: stage
  - queue_poison_messages_total: Messages routed to the poison topic (counter)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=open, 2=half-open
  - circuit_breaker_transitions_total: State transitions (counter)
    Labels: name, from, to

HTTP Metrics:
  - http_requests_total: Total HTTP requests (counter)
    Labels: method, endpoint, status
  - http_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - http_requests_in_flight: Active requests (gauge)

Graph Export Metrics:
  - graph_export_relationships_total: Relationships drained to the graph store (counter)
  - graph_export_errors_total: Failed export batches (counter)

Application Metrics:
  - app_info: Build information (gauge, always 1)
    Labels: version, commit
  - app_uptime_seconds: Seconds since process start (gauge)
*/
package metrics
