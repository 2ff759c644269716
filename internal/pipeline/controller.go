// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// TaskPublisher publishes stage task messages. Satisfied by *queue.Queue.
type TaskPublisher interface {
	PublishTask(ctx context.Context, task *models.TaskMessage) error
}

// Config holds chain controller tuning.
type Config struct {
	// LeaseTTL is the ownership window granted by StartStage.
	LeaseTTL time.Duration

	// MaxAttempts is the per-stage attempt budget. A transient failure on
	// the last attempt becomes permanent.
	MaxAttempts int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		LeaseTTL:    5 * time.Minute,
		MaxAttempts: 3,
	}
}

// Controller is the chain controller. All stage transitions for all
// documents go through exactly one of its methods; nothing else writes
// status records in the steady state.
type Controller struct {
	store *statestore.Store
	pub   TaskPublisher
	cfg   Config
}

// NewController creates a chain controller over the given store and queue.
func NewController(store *statestore.Store, pub TaskPublisher, cfg Config) *Controller {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultConfig().LeaseTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Controller{store: store, pub: pub, cfg: cfg}
}

// Submit registers a new document and queues it for OCR. The document and
// its first status record are durably written before the task is published;
// if the publish is lost the stall monitor re-enqueues from state.
func (c *Controller) Submit(ctx context.Context, blobRef, projectID string, metadata map[string]string) (*models.Document, error) {
	doc := models.NewDocument(blobRef, projectID, metadata)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	doc.Stage = models.StageOCR
	doc.Status = models.StatusQueued
	if err := c.store.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("submit: persist document: %w", err)
	}

	intake := &models.StageStatusRecord{
		DocumentID: doc.ID,
		Stage:      models.StageIntake,
		Status:     models.StatusCompleted,
	}
	if err := c.store.PutStatus(ctx, intake); err != nil {
		return nil, fmt.Errorf("submit: persist intake status: %w", err)
	}
	first := &models.StageStatusRecord{
		DocumentID: doc.ID,
		Stage:      models.StageOCR,
		Status:     models.StatusQueued,
	}
	if err := c.store.PutStatus(ctx, first); err != nil {
		return nil, fmt.Errorf("submit: persist ocr status: %w", err)
	}

	if err := c.enqueue(ctx, doc, models.StageOCR, 1); err != nil {
		// State is durable; the monitor will re-enqueue. Surface anyway so
		// callers see queue trouble.
		return doc, fmt.Errorf("submit: enqueue ocr task: %w", err)
	}

	metrics.DocumentsSubmitted.Inc()
	logging.Ctx(ctx).Info().
		Str("document_id", doc.ID.String()).
		Str("blob_ref", doc.BlobRef).
		Str("detected_type", string(doc.DetectedType)).
		Msg("Document submitted")
	return doc, nil
}

// StartStage acquires the stage lease for a worker about to execute. Returns
// the lease token to present to Advance or Fail. ErrAlreadyInFlight means a
// live lease exists elsewhere; ErrNotQueued means the stage is not runnable
// (completed, failed, or never queued).
func (c *Controller) StartStage(ctx context.Context, docID uuid.UUID, stage models.Stage) (string, error) {
	token, err := c.store.AcquireLease(ctx, docID, stage, c.cfg.LeaseTTL)
	switch {
	case errors.Is(err, statestore.ErrLeaseHeld):
		return "", ErrAlreadyInFlight
	case errors.Is(err, statestore.ErrCASMismatch):
		return "", ErrNotQueued
	case err != nil:
		return "", fmt.Errorf("start %s: %w", stage, err)
	}

	c.cacheDocumentState(ctx, docID, stage, models.StatusProcessing, "")
	return token, nil
}

// RenewLease extends a worker's ownership window mid-stage.
func (c *Controller) RenewLease(ctx context.Context, docID uuid.UUID, stage models.Stage, token string) error {
	return c.store.RenewLease(ctx, docID, stage, token, c.cfg.LeaseTTL)
}

// Advance completes a stage under its lease and queues the successor.
// Exactly one task message is published per successful none-to-queued
// transition regardless of how many times the same advance is replayed.
// ErrStaleLease means ownership moved on; the caller must treat it as a
// no-op and not retry.
func (c *Controller) Advance(ctx context.Context, docID uuid.UUID, from models.Stage, token string) (models.Stage, error) {
	next, ok := from.Next()
	if !ok {
		// Workers pass their own compiled-in stage constant, so a stage
		// with no successor here is a programming error, not document
		// state. Surface it without touching the document: there is no
		// verified lease on this path to make a failure write safe.
		return "", fmt.Errorf("advance from %s: %w", from, ErrInvalidTransition)
	}

	queued, err := c.store.AdvanceStage(ctx, docID, from, next, token)
	if err != nil {
		if errors.Is(err, statestore.ErrStaleLease) {
			logging.Ctx(ctx).Debug().
				Str("document_id", docID.String()).
				Str("stage", from.String()).
				Msg("Stale lease on advance, dropping")
			return "", ErrStaleLease
		}
		return "", fmt.Errorf("advance %s -> %s: %w", from, next, err)
	}

	if next == models.StageCompleted {
		c.cacheDocumentState(ctx, docID, models.StageCompleted, models.StatusCompleted, "")
		metrics.DocumentsCompleted.Inc()
		logging.Ctx(ctx).Info().
			Str("document_id", docID.String()).
			Msg("Document completed")
		return next, nil
	}

	c.cacheDocumentState(ctx, docID, next, models.StatusQueued, "")

	if queued {
		doc, derr := c.store.GetDocument(ctx, docID)
		if derr != nil {
			return next, fmt.Errorf("advance: load document for enqueue: %w", derr)
		}
		if err := c.enqueue(ctx, doc, next, 1); err != nil {
			return next, fmt.Errorf("advance: enqueue %s task: %w", next, err)
		}
	}

	logging.Ctx(ctx).Info().
		Str("document_id", docID.String()).
		Str("from", from.String()).
		Str("to", next.String()).
		Bool("enqueued", queued).
		Msg("Stage advanced")
	return next, nil
}

// Fail records a stage failure under its lease. Transient failures within
// the attempt budget release the lease back to queued and requeue the task;
// permanent failures (or budget exhaustion) fail the stage and the document.
// ErrStaleLease is a no-op, same as Advance.
func (c *Controller) Fail(ctx context.Context, docID uuid.UUID, stage models.Stage, token string, cause error) error {
	var (
		permanent bool
		attempts  int
	)
	_, err := c.store.CASUpdate(ctx, docID, stage,
		func(rec *models.StageStatusRecord) error {
			if rec.Status != models.StatusProcessing || !rec.OwnedBy(token, time.Now().UTC()) {
				return statestore.ErrStaleLease
			}
			attempts = rec.Attempts
			permanent = IsPermanent(cause) || rec.Attempts >= c.cfg.MaxAttempts
			return nil
		},
		func(rec *models.StageStatusRecord) {
			rec.LeaseToken = ""
			rec.LeaseExpiresAt = time.Time{}
			rec.ErrorDetail = cause.Error()
			if permanent {
				rec.Status = models.StatusFailed
			} else {
				rec.Status = models.StatusQueued
			}
		},
	)
	if err != nil {
		if errors.Is(err, statestore.ErrStaleLease) {
			return ErrStaleLease
		}
		return fmt.Errorf("fail %s: %w", stage, err)
	}

	if permanent {
		c.failDocument(ctx, docID, stage, cause.Error())
		metrics.DocumentsFailed.WithLabelValues(stage.String()).Inc()
		logging.Ctx(ctx).Error().
			Err(cause).
			Str("document_id", docID.String()).
			Str("stage", stage.String()).
			Int("attempts", attempts).
			Msg("Stage failed permanently")
		return nil
	}

	c.cacheDocumentState(ctx, docID, stage, models.StatusQueued, cause.Error())
	doc, derr := c.store.GetDocument(ctx, docID)
	if derr != nil {
		return fmt.Errorf("fail: load document for requeue: %w", derr)
	}
	if err := c.enqueue(ctx, doc, stage, attempts+1); err != nil {
		return fmt.Errorf("fail: requeue %s task: %w", stage, err)
	}

	logging.Ctx(ctx).Warn().
		Err(cause).
		Str("document_id", docID.String()).
		Str("stage", stage.String()).
		Int("attempt", attempts).
		Msg("Stage failed, requeued")
	return nil
}

// Cancel fails every non-terminal stage of a document so in-flight workers
// find their leases invalidated when they try to advance. Canceling a
// terminal document returns ErrTerminal.
func (c *Controller) Cancel(ctx context.Context, docID uuid.UUID) error {
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Stage.Terminal() {
		return ErrTerminal
	}

	const reason = "canceled by operator"
	for _, stage := range models.WorkStages {
		_, err := c.store.CASUpdate(ctx, docID, stage,
			func(rec *models.StageStatusRecord) error {
				switch rec.Status {
				case models.StatusQueued, models.StatusProcessing:
					return nil
				default:
					return statestore.ErrCASMismatch
				}
			},
			func(rec *models.StageStatusRecord) {
				rec.Status = models.StatusFailed
				rec.LeaseToken = ""
				rec.LeaseExpiresAt = time.Time{}
				rec.ErrorDetail = reason
			},
		)
		if err != nil && !errors.Is(err, statestore.ErrCASMismatch) {
			return fmt.Errorf("cancel %s: %w", stage, err)
		}
	}

	c.failDocument(ctx, docID, doc.Stage, reason)
	logging.Ctx(ctx).Info().
		Str("document_id", docID.String()).
		Msg("Document canceled")
	return nil
}

// Reprocess resets a document to run again from the given work stage.
// Statuses from that stage onward are cleared; existing outputs stay in
// place and are overwritten idempotently as stages re-run.
func (c *Controller) Reprocess(ctx context.Context, docID uuid.UUID, from models.Stage) error {
	if !from.IsWorkStage() {
		return fmt.Errorf("reprocess from %s: %w", from, ErrInvalidTransition)
	}
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	reset := false
	for _, stage := range models.WorkStages {
		if stage == from {
			reset = true
		}
		if !reset {
			continue
		}
		status := models.StatusNone
		if stage == from {
			status = models.StatusQueued
		}
		rec := &models.StageStatusRecord{
			DocumentID: docID,
			Stage:      stage,
			Status:     status,
		}
		if err := c.store.PutStatus(ctx, rec); err != nil {
			return fmt.Errorf("reprocess: reset %s: %w", stage, err)
		}
		// Stale outputs from the prior pass would let the stall monitor
		// mistake an unstarted stage for a finished one.
		if err := c.store.DeleteStageOutputs(ctx, docID, stage); err != nil {
			return fmt.Errorf("reprocess: clear %s outputs: %w", stage, err)
		}
	}

	if _, err := c.store.UpdateDocument(ctx, docID, func(d *models.Document) {
		d.Stage = from
		d.Status = models.StatusQueued
		d.ErrorDetail = ""
		d.FailedStage = ""
	}); err != nil {
		return fmt.Errorf("reprocess: update document: %w", err)
	}

	if err := c.enqueue(ctx, doc, from, 1); err != nil {
		return fmt.Errorf("reprocess: enqueue %s task: %w", from, err)
	}

	logging.Ctx(ctx).Info().
		Str("document_id", docID.String()).
		Str("from", from.String()).
		Msg("Document reprocessing")
	return nil
}

// DocumentStatus is the full visible state of one document.
type DocumentStatus struct {
	Document *models.Document                           `json:"document"`
	Stages   map[models.Stage]*models.StageStatusRecord `json:"stages"`
}

// Status returns the document record plus all its stage statuses.
func (c *Controller) Status(ctx context.Context, docID uuid.UUID) (*DocumentStatus, error) {
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	stages, err := c.store.StatusesForDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	return &DocumentStatus{Document: doc, Stages: stages}, nil
}

// Enqueue publishes a stage task for a document whose status record is
// already queued. The stall monitor uses this to repair lost messages.
func (c *Controller) Enqueue(ctx context.Context, doc *models.Document, stage models.Stage, attempt int) error {
	return c.enqueue(ctx, doc, stage, attempt)
}

// enqueue builds and publishes the typed task message for a stage.
func (c *Controller) enqueue(ctx context.Context, doc *models.Document, stage models.Stage, attempt int) error {
	task := models.NewTaskMessage(doc.ID, stage, attempt)
	switch stage {
	case models.StageOCR:
		task.OCR = &models.OCRTaskInput{BlobRef: doc.BlobRef}
	case models.StageChunking:
		task.Chunking = &models.ChunkingTaskInput{}
	case models.StageEntityExtraction:
		chunks, err := c.store.GetChunks(ctx, doc.ID)
		if err != nil && !errors.Is(err, statestore.ErrNotFound) {
			return fmt.Errorf("load chunks: %w", err)
		}
		task.Extraction = &models.ExtractionTaskInput{ChunkCount: len(chunks)}
	case models.StageEntityResolution:
		task.Resolution = &models.ResolutionTaskInput{}
	case models.StageRelationshipStaging:
		task.Staging = &models.StagingTaskInput{}
	default:
		return fmt.Errorf("enqueue %s: %w", stage, ErrInvalidTransition)
	}
	return c.pub.PublishTask(ctx, task)
}

// cacheDocumentState refreshes the document's derived stage/status cache.
// Best effort: the status records stay authoritative and the stall monitor
// repairs divergence, so a failed cache write is only logged.
func (c *Controller) cacheDocumentState(ctx context.Context, docID uuid.UUID, stage models.Stage, status models.StageStatus, errDetail string) {
	_, err := c.store.UpdateDocument(ctx, docID, func(d *models.Document) {
		d.Stage = stage
		d.Status = status
		d.ErrorDetail = errDetail
	})
	if err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("document_id", docID.String()).
			Msg("Failed to refresh document stage cache")
	}
}

// failDocument marks the document terminally failed, recording the stage
// that caused it.
func (c *Controller) failDocument(ctx context.Context, docID uuid.UUID, failedStage models.Stage, detail string) {
	_, err := c.store.UpdateDocument(ctx, docID, func(d *models.Document) {
		d.Stage = models.StageFailed
		d.Status = models.StatusFailed
		d.FailedStage = failedStage
		d.ErrorDetail = detail
	})
	if err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("document_id", docID.String()).
			Msg("Failed to mark document failed")
	}
}
