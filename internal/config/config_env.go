// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package config

import "strings"

// envMappings maps environment variable names (lowercased) to koanf config
// paths. Only listed variables are honored; everything else in the process
// environment is ignored so unrelated variables cannot clobber settings.
var envMappings = map[string]string{
	// Server
	"http_host":               "server.host",
	"http_port":               "server.port",
	"http_read_timeout":       "server.read_timeout",
	"http_write_timeout":      "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"environment":             "server.environment",

	// Storage
	"state_path":          "storage.path",
	"blob_dir":            "storage.blob_dir",
	"storage_gc_interval": "storage.gc_interval",

	// NATS
	"nats_enabled":           "nats.enabled",
	"nats_embedded":          "nats.embedded_server",
	"nats_url":               "nats.url",
	"nats_store_dir":         "nats.store_dir",
	"nats_max_memory":        "nats.max_memory",
	"nats_max_store":         "nats.max_store",
	"nats_stream_name":       "nats.stream_name",
	"nats_durable_name":      "nats.durable_name",
	"nats_queue_group":       "nats.queue_group",
	"nats_subscribers_count": "nats.subscribers_count",
	"nats_max_deliver":       "nats.max_deliver",
	"nats_ack_wait_timeout":  "nats.ack_wait_timeout",
	"nats_retention_days":    "nats.retention_days",

	// Pipeline
	"pipeline_lease_ttl":              "pipeline.lease_ttl",
	"pipeline_max_attempts":           "pipeline.max_attempts",
	"pipeline_retry_backoff":          "pipeline.retry_backoff",
	"pipeline_monitor_interval":       "pipeline.monitor_interval",
	"pipeline_queued_stall_threshold": "pipeline.queued_stall_threshold",

	// OCR
	"ocr_base_url":             "ocr.base_url",
	"ocr_api_key":              "ocr.api_key",
	"ocr_poll_interval":        "ocr.poll_interval",
	"ocr_job_timeout":          "ocr.job_timeout",
	"ocr_request_timeout":      "ocr.request_timeout",
	"ocr_breaker_max_failures": "ocr.breaker_max_failures",
	"ocr_breaker_timeout":      "ocr.breaker_timeout",

	// Extraction
	"extraction_provider":              "extraction.provider",
	"extraction_api_key":               "extraction.api_key",
	"openai_api_key":                   "extraction.api_key",
	"extraction_base_url":              "extraction.base_url",
	"extraction_model":                 "extraction.model",
	"extraction_requests_per_second":   "extraction.requests_per_second",
	"extraction_max_concurrent_chunks": "extraction.max_concurrent_chunks",
	"extraction_min_confidence":        "extraction.min_confidence",
	"extraction_request_timeout":       "extraction.request_timeout",
	"extraction_breaker_max_failures":  "extraction.breaker_max_failures",
	"extraction_breaker_timeout":       "extraction.breaker_timeout",
	"chunk_target_size":                "extraction.chunk_target_size",
	"chunk_max_size":                   "extraction.chunk_max_size",

	// Resolution
	"resolution_person_threshold":  "resolution.person_threshold",
	"resolution_org_threshold":     "resolution.org_threshold",
	"resolution_default_threshold": "resolution.default_threshold",

	// Neo4j
	"neo4j_enabled":  "neo4j.enabled",
	"neo4j_uri":      "neo4j.uri",
	"neo4j_username": "neo4j.username",
	"neo4j_password": "neo4j.password",
	"neo4j_database": "neo4j.database",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",
	"api_rate_limit_reqs":   "api.rate_limit_reqs",
	"api_rate_limit_window": "api.rate_limit_window",
	"api_cors_origins":      "api.cors_origins",
	"api_max_upload_size":   "api.max_upload_size",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf config path.
// Unknown variables map to "" and are discarded by the env provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
