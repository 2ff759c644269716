// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/joeott/legal-doc-processor-sub010/internal/blobstore"
	"github.com/joeott/legal-doc-processor-sub010/internal/chunker"
	"github.com/joeott/legal-doc-processor-sub010/internal/extract"
	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/ocr"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/queue"
	"github.com/joeott/legal-doc-processor-sub010/internal/resolve"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// errOCRPending signals that the OCR job was submitted but has not finished;
// the poller service owns the lease from here.
var errOCRPending = errors.New("worker: ocr job pending")

// Config holds worker tuning.
type Config struct {
	// MaxConcurrentChunks bounds the extraction fan-out per document.
	MaxConcurrentChunks int

	// OCRPollInterval and OCRJobTimeout drive the poller service.
	OCRPollInterval time.Duration
	OCRJobTimeout   time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentChunks: 4,
		OCRPollInterval:     10 * time.Second,
		OCRJobTimeout:       30 * time.Minute,
	}
}

// Workers wires stage handlers onto a queue router.
type Workers struct {
	store     *statestore.Store
	blobs     *blobstore.Store
	ctrl      *pipeline.Controller
	ocrClient ocr.Client
	extractor extract.Extractor
	splitter  *chunker.Splitter
	resolver  *resolve.Resolver
	cfg       Config
}

// New creates the stage workers.
func New(
	store *statestore.Store,
	blobs *blobstore.Store,
	ctrl *pipeline.Controller,
	ocrClient ocr.Client,
	extractor extract.Extractor,
	splitter *chunker.Splitter,
	resolver *resolve.Resolver,
	cfg Config,
) *Workers {
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = DefaultConfig().MaxConcurrentChunks
	}
	if cfg.OCRPollInterval <= 0 {
		cfg.OCRPollInterval = DefaultConfig().OCRPollInterval
	}
	if cfg.OCRJobTimeout <= 0 {
		cfg.OCRJobTimeout = DefaultConfig().OCRJobTimeout
	}
	return &Workers{
		store:     store,
		blobs:     blobs,
		ctrl:      ctrl,
		ocrClient: ocrClient,
		extractor: extractor,
		splitter:  splitter,
		resolver:  resolver,
		cfg:       cfg,
	}
}

// stageFunc does the work of one stage under an acquired lease.
type stageFunc func(ctx context.Context, task *models.TaskMessage, token string) error

// Register attaches one consumer handler per work stage to the router,
// consuming from the given subscriber.
func (w *Workers) Register(router *queue.Router, sub message.Subscriber) {
	stages := map[models.Stage]stageFunc{
		models.StageOCR:                 w.runOCR,
		models.StageChunking:            w.runChunking,
		models.StageEntityExtraction:    w.runExtraction,
		models.StageEntityResolution:    w.runResolution,
		models.StageRelationshipStaging: w.runStaging,
	}
	for stage, fn := range stages {
		router.AddConsumerHandler(
			"worker-"+stage.String(),
			stage.Topic(),
			sub,
			w.handler(stage, fn),
		)
	}
}

// handler wraps a stage function in the lease/advance/fail frame.
func (w *Workers) handler(stage models.Stage, fn stageFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		task, err := queue.DecodeTask(msg)
		if err != nil {
			// Malformed message: ack and drop, the monitor re-enqueues from
			// state if real work was lost.
			logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable task")
			return nil
		}
		if task.Stage != stage {
			logging.Error().
				Str("expected", stage.String()).
				Str("got", task.Stage.String()).
				Msg("Task routed to wrong stage handler, dropping")
			return nil
		}

		ctx := logging.ContextWithCorrelationID(msg.Context(), logging.GenerateCorrelationID())
		log := logging.Ctx(ctx).With().
			Str("document_id", task.DocumentID.String()).
			Str("stage", stage.String()).
			Int("attempt", task.Attempt).
			Logger()

		token, err := w.ctrl.StartStage(ctx, task.DocumentID, stage)
		switch {
		case errors.Is(err, pipeline.ErrAlreadyInFlight), errors.Is(err, pipeline.ErrNotQueued):
			log.Debug().Err(err).Msg("Stage not startable, dropping task")
			metrics.StageTasks.WithLabelValues(stage.String(), "dropped").Inc()
			return nil
		case err != nil:
			// Infrastructure trouble: nack for redelivery.
			return err
		}

		start := time.Now()
		err = fn(ctx, task, token)
		switch {
		case err == nil:
			if _, aerr := w.ctrl.Advance(ctx, task.DocumentID, stage, token); aerr != nil && !errors.Is(aerr, pipeline.ErrStaleLease) {
				return aerr
			}
			metrics.RecordStageExecution(stage.String(), "completed", time.Since(start))
			log.Info().Msg("Stage completed")
			return nil
		case errors.Is(err, errOCRPending):
			metrics.RecordStageExecution(stage.String(), "pending", time.Since(start))
			log.Info().Msg("OCR job submitted, poller takes over")
			return nil
		default:
			if ferr := w.ctrl.Fail(ctx, task.DocumentID, stage, token, err); ferr != nil && !errors.Is(ferr, pipeline.ErrStaleLease) {
				return ferr
			}
			metrics.RecordStageExecution(stage.String(), "failed", time.Since(start))
			return nil
		}
	}
}

// runChunking splits the extracted text into chunks.
func (w *Workers) runChunking(ctx context.Context, task *models.TaskMessage, token string) error {
	text, err := w.blobs.GetText(task.DocumentID)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return pipeline.Permanent(fmt.Errorf("chunking: extracted text missing for %s", task.DocumentID))
		}
		return fmt.Errorf("chunking: load text: %w", err)
	}

	chunks := w.splitter.Split(task.DocumentID, text)
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		return pipeline.Permanent(fmt.Errorf("chunking: invalid chunk set: %w", err))
	}
	if err := w.store.PutChunks(ctx, task.DocumentID, chunks); err != nil {
		return fmt.Errorf("chunking: persist chunks: %w", err)
	}
	return nil
}

// runResolution clusters mentions into canonical entities.
func (w *Workers) runResolution(ctx context.Context, task *models.TaskMessage, token string) error {
	mentions, err := w.store.GetMentions(ctx, task.DocumentID)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		return fmt.Errorf("resolution: load mentions: %w", err)
	}

	entities := w.resolver.Resolve(task.DocumentID, mentions)
	if err := w.store.PutEntities(ctx, task.DocumentID, entities); err != nil {
		return fmt.Errorf("resolution: persist entities: %w", err)
	}
	return nil
}
