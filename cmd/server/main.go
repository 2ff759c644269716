// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package main is the entry point for the Docket pipeline server.
//
// Docket ingests legal documents and drives each one through a staged
// pipeline: OCR, chunking, entity extraction, entity resolution, and
// relationship staging. The resulting entities and relationships can be
// drained into a Neo4j-compatible graph store.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config file, and
//     environment variables (Koanf v2)
//  2. State store: BadgerDB for documents, stage statuses, leases, and
//     stage outputs
//  3. Blob store: filesystem storage for uploaded originals and extracted
//     text
//  4. Queue: in-process Watermill channels, or NATS JetStream when
//     NATS_ENABLED=true (embedded server or external cluster)
//  5. Chain controller and stage workers
//  6. OCR poller and stall monitor
//  7. Graph exporter (when NEO4J_ENABLED=true)
//  8. HTTP server: submission and retrieval API plus /metrics
//
// Everything after configuration runs under a suture supervision tree;
// a crashed component is restarted with backoff without taking down the
// process.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (CONFIG_PATH or
// /etc/docket/config.yaml), built-in defaults.
//
// Single-binary development mode needs no configuration at all:
//
//	STATE_PATH=/tmp/docket/state BLOB_DIR=/tmp/docket/blobs ./docket
//
// Production with an external NATS cluster and LLM extraction:
//
//	export NATS_ENABLED=true
//	export NATS_EMBEDDED=false
//	export NATS_URL=nats://nats:4222
//	export EXTRACTION_PROVIDER=openai
//	export OPENAI_API_KEY=sk-...
//	export OCR_BASE_URL=http://ocr-service:8100
//	./docket
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// listener drains in-flight requests, the queue router finishes running
// handlers, and state store leases simply expire and are re-acquired on
// the next start.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/nats-io/nats.go"

	"github.com/joeott/legal-doc-processor-sub010/internal/api"
	"github.com/joeott/legal-doc-processor-sub010/internal/blobstore"
	"github.com/joeott/legal-doc-processor-sub010/internal/chunker"
	"github.com/joeott/legal-doc-processor-sub010/internal/config"
	"github.com/joeott/legal-doc-processor-sub010/internal/extract"
	"github.com/joeott/legal-doc-processor-sub010/internal/graph"
	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/monitor"
	"github.com/joeott/legal-doc-processor-sub010/internal/ocr"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/queue"
	"github.com/joeott/legal-doc-processor-sub010/internal/resolve"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
	"github.com/joeott/legal-doc-processor-sub010/internal/supervisor"
	"github.com/joeott/legal-doc-processor-sub010/internal/worker"
)

// Version is set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.SetAppInfo(Version, Commit)
	logging.Info().
		Str("version", Version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Docket pipeline server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable state and blobs.
	var store *statestore.Store
	if cfg.Storage.Path == "" {
		store, err = statestore.OpenInMemory()
	} else {
		store, err = statestore.Open(cfg.Storage.Path)
	}
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	blobs, err := blobstore.Open(cfg.Storage.BlobDir)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	// Queue backend.
	wmLogger := queue.NewLoggerAdapter(logging.Logger())
	q, shutdownNATS, err := buildQueue(ctx, cfg, wmLogger)
	if err != nil {
		return fmt.Errorf("build queue: %w", err)
	}
	defer q.Close()
	if shutdownNATS != nil {
		defer shutdownNATS()
	}

	// Chain controller and stage workers.
	ctrl := pipeline.NewController(store, q, pipeline.Config{
		LeaseTTL:    cfg.Pipeline.LeaseTTL,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	workers := worker.New(
		store, blobs, ctrl,
		buildOCRClient(cfg.OCR),
		buildExtractor(cfg.Extraction),
		chunker.New(
			chunker.WithTargetSize(cfg.Extraction.ChunkTargetSize),
			chunker.WithMaxSize(cfg.Extraction.ChunkMaxSize),
		),
		resolve.New(resolve.Config{
			PersonThreshold:  cfg.Resolution.PersonThreshold,
			OrgThreshold:     cfg.Resolution.OrgThreshold,
			DefaultThreshold: cfg.Resolution.DefaultThreshold,
		}),
		worker.Config{
			MaxConcurrentChunks: cfg.Extraction.MaxConcurrentChunks,
			OCRPollInterval:     cfg.OCR.PollInterval,
			OCRJobTimeout:       cfg.OCR.JobTimeout,
		},
	)

	router, err := queue.NewRouter(nil, q.Publisher, wmLogger)
	if err != nil {
		return fmt.Errorf("create queue router: %w", err)
	}
	workers.Register(router, q.Subscriber)

	stall := monitor.New(store, blobs, ctrl, monitor.Config{
		Interval:             cfg.Pipeline.MonitorInterval,
		QueuedStallThreshold: cfg.Pipeline.QueuedStallThreshold,
		MaxAttempts:          cfg.Pipeline.MaxAttempts,
	})
	// Recover work stranded by the previous process before accepting new.
	if err := stall.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Msg("Startup stall sweep failed")
	}

	// Supervision tree.
	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	tree.AddPipelineService(supervisor.NewRouterService(router))
	tree.AddPipelineService(worker.NewOCRPoller(workers))
	tree.AddPipelineService(stall)
	tree.AddPipelineService(&supervisor.UptimeService{})
	if cfg.Storage.Path != "" {
		tree.AddPipelineService(&supervisor.StoreGCService{
			Store:    store,
			Interval: cfg.Storage.GCInterval,
		})
	}

	if cfg.Neo4j.Enabled {
		exporter, err := graph.NewExporter(store, graph.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return fmt.Errorf("create graph exporter: %w", err)
		}
		defer exporter.Close(context.Background())
		tree.AddExportService(exporter)
	}

	handler := api.NewHandler(ctrl, store, blobs, cfg.API)
	server := api.NewServer(api.NewRouter(handler, cfg.API), cfg.Server)
	tree.AddAPIService(server)

	logging.Info().Str("addr", server.Addr()).Msg("Supervision tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}

// buildQueue selects the queue backend: NATS JetStream (embedded or
// external) when enabled, otherwise in-process Watermill channels. The
// returned cleanup stops the embedded server, if one was started.
func buildQueue(ctx context.Context, cfg *config.Config, logger watermill.LoggerAdapter) (*queue.Queue, func(), error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("Using in-process queue")
		return queue.NewGoChannel(logger), nil, nil
	}

	natsCfg := queue.DefaultNATSConfig(cfg.NATS.URL)
	natsCfg.StreamName = cfg.NATS.StreamName
	natsCfg.DurableName = cfg.NATS.DurableName
	natsCfg.QueueGroup = cfg.NATS.QueueGroup
	natsCfg.SubscribersCount = cfg.NATS.SubscribersCount
	natsCfg.MaxDeliver = cfg.NATS.MaxDeliver
	natsCfg.AckWaitTimeout = cfg.NATS.AckWaitTimeout
	natsCfg.RetentionAge = time.Duration(cfg.NATS.RetentionDays) * 24 * time.Hour

	var cleanup func()
	if cfg.NATS.EmbeddedServer {
		embCfg := queue.DefaultEmbeddedServerConfig(cfg.NATS.StoreDir)
		embCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
		embCfg.JetStreamMaxStore = cfg.NATS.MaxStore
		srv, err := queue.StartEmbeddedServer(embCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		natsCfg.URL = srv.ClientURL()
		cleanup = srv.Shutdown
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	nc, err := nats.Connect(natsCfg.URL)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	if err := queue.EnsureStream(ctx, nc, natsCfg); err != nil {
		nc.Close()
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, fmt.Errorf("ensure JetStream stream: %w", err)
	}
	nc.Close()

	q, err := queue.NewNATS(natsCfg, logger)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, fmt.Errorf("create NATS queue: %w", err)
	}
	return q, cleanup, nil
}

// buildOCRClient selects the OCR backend: the HTTP service when a base URL
// is configured, otherwise the UTF-8 passthrough for born-digital text.
func buildOCRClient(cfg config.OCRConfig) ocr.Client {
	if cfg.BaseURL == "" {
		logging.Info().Msg("No OCR service configured, using passthrough client")
		return ocr.NewPassthroughClient()
	}
	return ocr.NewHTTPClient(ocr.HTTPConfig{
		BaseURL:            cfg.BaseURL,
		APIKey:             cfg.APIKey,
		RequestTimeout:     cfg.RequestTimeout,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerTimeout:     cfg.BreakerTimeout,
	})
}

// buildExtractor selects the extraction backend per configuration.
func buildExtractor(cfg config.ExtractionConfig) extract.Extractor {
	if cfg.Provider == "openai" {
		return extract.NewOpenAIExtractor(extract.OpenAIConfig{
			APIKey:             cfg.APIKey,
			BaseURL:            cfg.BaseURL,
			Model:              cfg.Model,
			RequestsPerSecond:  cfg.RequestsPerSecond,
			MinConfidence:      cfg.MinConfidence,
			RequestTimeout:     cfg.RequestTimeout,
			BreakerMaxFailures: cfg.BreakerMaxFailures,
			BreakerTimeout:     cfg.BreakerTimeout,
		})
	}
	logging.Info().Msg("Using regex extractor")
	return extract.NewRegexExtractor(cfg.MinConfidence)
}
