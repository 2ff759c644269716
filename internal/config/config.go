// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package config

import (
	"time"
)

// Config is the root configuration for the pipeline server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Storage    StorageConfig    `koanf:"storage"`
	NATS       NATSConfig       `koanf:"nats"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	OCR        OCRConfig        `koanf:"ocr"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Resolution ResolutionConfig `koanf:"resolution"`
	Neo4j      Neo4jConfig      `koanf:"neo4j"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
}

// StorageConfig holds the embedded state store and blob store paths.
type StorageConfig struct {
	// Path is the BadgerDB directory for pipeline state. Empty selects an
	// in-memory store (tests only).
	Path string `koanf:"path"`

	// BlobDir is the filesystem directory holding document blobs and
	// extracted text.
	BlobDir string `koanf:"blob_dir" validate:"required"`

	// GCInterval is how often the Badger value log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// NATSConfig holds message queue settings. With Enabled false the server
// runs on an in-process queue; with EmbeddedServer true it starts its own
// JetStream-enabled NATS server.
type NATSConfig struct {
	Enabled          bool          `koanf:"enabled"`
	EmbeddedServer   bool          `koanf:"embedded_server"`
	URL              string        `koanf:"url"`
	StoreDir         string        `koanf:"store_dir"`
	MaxMemory        int64         `koanf:"max_memory"`
	MaxStore         int64         `koanf:"max_store"`
	StreamName       string        `koanf:"stream_name"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"min=1"`
	MaxDeliver       int           `koanf:"max_deliver" validate:"min=1"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	RetentionDays    int           `koanf:"retention_days" validate:"min=1"`
}

// PipelineConfig holds chain controller and stall monitor settings.
type PipelineConfig struct {
	// LeaseTTL is how long a worker owns a stage execution before the
	// stall monitor may reclaim it.
	LeaseTTL time.Duration `koanf:"lease_ttl" validate:"required"`

	// MaxAttempts is the per-stage attempt budget before the document is
	// marked failed.
	MaxAttempts int `koanf:"max_attempts" validate:"min=1"`

	// RetryBackoff is the base delay between stage retry attempts, doubled
	// per attempt.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MonitorInterval is how often the stall monitor sweeps stage statuses.
	MonitorInterval time.Duration `koanf:"monitor_interval" validate:"required"`

	// QueuedStallThreshold is how long a queued stage may sit without
	// progress before the monitor re-enqueues it.
	QueuedStallThreshold time.Duration `koanf:"queued_stall_threshold"`
}

// OCRConfig holds settings for the external OCR service.
type OCRConfig struct {
	// BaseURL of the OCR HTTP service. Empty selects the built-in
	// plain-text passthrough (no OCR call; blob is read as UTF-8 text).
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`

	// PollInterval is how often submitted jobs are polled for completion.
	PollInterval time.Duration `koanf:"poll_interval"`

	// JobTimeout bounds the total wall-clock time a single OCR job may
	// remain pending before it is treated as failed.
	JobTimeout     time.Duration `koanf:"job_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// Breaker settings for the circuit protecting the OCR service.
	BreakerMaxFailures int           `koanf:"breaker_max_failures" validate:"min=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// ExtractionConfig holds entity extraction settings.
type ExtractionConfig struct {
	// Provider selects the extractor: "openai" or "regex".
	Provider string `koanf:"provider" validate:"oneof=openai regex"`

	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`

	// RequestsPerSecond rate-limits calls to the LLM API.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// MaxConcurrentChunks bounds the extraction fan-out per document.
	MaxConcurrentChunks int `koanf:"max_concurrent_chunks" validate:"min=1"`

	// MinConfidence drops mentions below this threshold.
	MinConfidence float64 `koanf:"min_confidence" validate:"min=0,max=1"`

	RequestTimeout     time.Duration `koanf:"request_timeout"`
	BreakerMaxFailures int           `koanf:"breaker_max_failures" validate:"min=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`

	// Chunking parameters.
	ChunkTargetSize int `koanf:"chunk_target_size" validate:"min=1"`
	ChunkMaxSize    int `koanf:"chunk_max_size" validate:"min=1"`
}

// ResolutionConfig holds entity resolution thresholds.
type ResolutionConfig struct {
	// PersonThreshold is the minimum similarity for merging PERSON
	// mentions into one canonical entity.
	PersonThreshold float64 `koanf:"person_threshold" validate:"min=0,max=1"`

	// OrgThreshold is the minimum similarity for merging ORG mentions.
	OrgThreshold float64 `koanf:"org_threshold" validate:"min=0,max=1"`

	// DefaultThreshold applies to the remaining entity types, which only
	// merge on an exact normalized match by default.
	DefaultThreshold float64 `koanf:"default_threshold" validate:"min=0,max=1"`
}

// Neo4jConfig holds optional graph export settings.
type Neo4jConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// APIConfig holds HTTP API behavior settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int           `koanf:"max_page_size" validate:"min=1"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`

	// MaxUploadSize bounds document submission bodies, in bytes.
	MaxUploadSize int64 `koanf:"max_upload_size" validate:"min=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			Environment:     "development",
		},
		Storage: StorageConfig{
			Path:       "/data/docket/state",
			BlobDir:    "/data/docket/blobs",
			GCInterval: 10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:          false, // in-process queue by default
			EmbeddedServer:   true,
			URL:              "nats://127.0.0.1:4222",
			StoreDir:         "/data/docket/nats",
			MaxMemory:        256 << 20,
			MaxStore:         8 << 30,
			StreamName:       "PIPELINE",
			DurableName:      "stage-worker",
			QueueGroup:       "workers",
			SubscribersCount: 4,
			MaxDeliver:       5,
			AckWaitTimeout:   5 * time.Minute,
			RetentionDays:    7,
		},
		Pipeline: PipelineConfig{
			LeaseTTL:             5 * time.Minute,
			MaxAttempts:          3,
			RetryBackoff:         5 * time.Second,
			MonitorInterval:      30 * time.Second,
			QueuedStallThreshold: 10 * time.Minute,
		},
		OCR: OCRConfig{
			BaseURL:            "",
			APIKey:             "",
			PollInterval:       10 * time.Second,
			JobTimeout:         30 * time.Minute,
			RequestTimeout:     30 * time.Second,
			BreakerMaxFailures: 5,
			BreakerTimeout:     time.Minute,
		},
		Extraction: ExtractionConfig{
			Provider:            "regex",
			APIKey:              "",
			BaseURL:             "",
			Model:               "gpt-4o-mini",
			RequestsPerSecond:   2,
			MaxConcurrentChunks: 4,
			MinConfidence:       0.5,
			RequestTimeout:      60 * time.Second,
			BreakerMaxFailures:  5,
			BreakerTimeout:      time.Minute,
			ChunkTargetSize:     2000,
			ChunkMaxSize:        4000,
		},
		Resolution: ResolutionConfig{
			PersonThreshold:  0.90,
			OrgThreshold:     0.85,
			DefaultThreshold: 1.0,
		},
		Neo4j: Neo4jConfig{
			Enabled:  false,
			URI:      "bolt://127.0.0.1:7687",
			Username: "neo4j",
			Password: "",
			Database: "neo4j",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			MaxUploadSize:   64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
