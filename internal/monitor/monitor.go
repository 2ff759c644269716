// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joeott/legal-doc-processor-sub010/internal/blobstore"
	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// Config holds stall detection thresholds.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration

	// QueuedStallThreshold is how long a record may sit queued before the
	// monitor assumes its task message was lost and publishes a new one.
	// Must comfortably exceed worst-case queue latency plus the router's
	// retry backoff window.
	QueuedStallThreshold time.Duration

	// MaxAttempts bounds how often a crash-looping stage is requeued. A
	// worker failing cleanly reports through the controller, which applies
	// its own budget; this catches workers that die without reporting.
	// Should match the controller's setting.
	MaxAttempts int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:             30 * time.Second,
		QueuedStallThreshold: 5 * time.Minute,
		MaxAttempts:          3,
	}
}

// Monitor is the stall repair service. It runs under the supervision tree.
type Monitor struct {
	store *statestore.Store
	blobs *blobstore.Store
	ctrl  *pipeline.Controller
	cfg   Config
}

// New creates a monitor.
func New(store *statestore.Store, blobs *blobstore.Store, ctrl *pipeline.Controller, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.QueuedStallThreshold <= 0 {
		cfg.QueuedStallThreshold = DefaultConfig().QueuedStallThreshold
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Monitor{store: store, blobs: blobs, ctrl: ctrl, cfg: cfg}
}

// String names the service in supervisor logs.
func (m *Monitor) String() string { return "stall-monitor" }

// Serve sweeps on the configured interval until the context is canceled.
func (m *Monitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Stall sweep failed")
			}
		}
	}
}

// Sweep scans every stage status record once and repairs what stalled.
// Exported for tests and for a sweep-on-startup call, which recovers work
// lost while the process was down.
func (m *Monitor) Sweep(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.MonitorSweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	var stalled []*models.StageStatusRecord
	err := m.store.ScanStatuses(ctx, func(rec *models.StageStatusRecord) error {
		if !rec.Stage.IsWorkStage() {
			return nil
		}
		switch rec.Status {
		case models.StatusProcessing:
			if rec.LeaseExpired(now) {
				r := *rec
				stalled = append(stalled, &r)
			}
		case models.StatusQueued:
			if now.Sub(rec.UpdatedAt) > m.cfg.QueuedStallThreshold {
				r := *rec
				stalled = append(stalled, &r)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan statuses: %w", err)
	}

	for _, rec := range stalled {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.repair(ctx, rec, now)
	}

	return m.repairDocumentCaches(ctx)
}

// repair fixes one stalled record. A crashed worker that already persisted
// its output gets the advance replayed; otherwise the record is reset to
// queued and its task republished. The CAS re-checks the stall condition
// inside the transaction, so a worker that finished in the meantime wins and
// the repair becomes a no-op.
func (m *Monitor) repair(ctx context.Context, stale *models.StageStatusRecord, now time.Time) {
	log := logging.Ctx(ctx).With().
		Str("document_id", stale.DocumentID.String()).
		Str("stage", stale.Stage.String()).
		Logger()

	reason := "queued_stalled"
	if stale.Status == models.StatusProcessing {
		reason = "lease_expired"

		done, err := m.outputComplete(ctx, stale.DocumentID, stale.Stage)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check stage output, requeueing instead")
		} else if done {
			m.replayAdvance(ctx, stale, log)
			return
		}
	}

	var (
		attempts  int
		exhausted bool
	)
	_, err := m.store.CASUpdate(ctx, stale.DocumentID, stale.Stage,
		func(rec *models.StageStatusRecord) error {
			switch rec.Status {
			case models.StatusProcessing:
				if !rec.LeaseExpired(now) {
					return statestore.ErrCASMismatch
				}
			case models.StatusQueued:
				if now.Sub(rec.UpdatedAt) <= m.cfg.QueuedStallThreshold {
					return statestore.ErrCASMismatch
				}
			default:
				return statestore.ErrCASMismatch
			}
			attempts = rec.Attempts
			// A worker that dies without reporting never trips the
			// controller's budget; bound the crash loop here. Lost queued
			// messages are not the document's fault and stay unbounded.
			exhausted = rec.Status == models.StatusProcessing && rec.Attempts >= m.cfg.MaxAttempts
			return nil
		},
		func(rec *models.StageStatusRecord) {
			rec.LeaseToken = ""
			rec.LeaseExpiresAt = time.Time{}
			if exhausted {
				rec.Status = models.StatusFailed
				rec.ErrorDetail = fmt.Sprintf("lease expired after %d attempts", attempts)
			} else {
				rec.Status = models.StatusQueued
			}
		},
	)
	if err != nil {
		if !errors.Is(err, statestore.ErrCASMismatch) {
			log.Error().Err(err).Msg("Failed to reset stalled stage")
		}
		return
	}

	if exhausted {
		if _, err := m.store.UpdateDocument(ctx, stale.DocumentID, func(d *models.Document) {
			d.Stage = models.StageFailed
			d.Status = models.StatusFailed
			d.FailedStage = stale.Stage
			d.ErrorDetail = fmt.Sprintf("lease expired after %d attempts", attempts)
		}); err != nil {
			log.Error().Err(err).Msg("Failed to mark document failed")
		}
		metrics.DocumentsFailed.WithLabelValues(stale.Stage.String()).Inc()
		metrics.MonitorRequeues.WithLabelValues(stale.Stage.String(), "budget_exhausted").Inc()
		log.Error().Int("attempts", attempts).Msg("Stage exhausted its attempt budget, document failed")
		return
	}

	doc, err := m.store.GetDocument(ctx, stale.DocumentID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load document for stall repair")
		return
	}
	if err := m.ctrl.Enqueue(ctx, doc, stale.Stage, attempts+1); err != nil {
		// Record is already queued; the next sweep retries the publish.
		log.Error().Err(err).Msg("Failed to re-enqueue stalled stage")
		return
	}

	metrics.MonitorRequeues.WithLabelValues(stale.Stage.String(), reason).Inc()
	log.Warn().Str("reason", reason).Int("attempts", attempts).Msg("Re-enqueued stalled stage")
}

// repairDocumentCaches realigns each document's cached stage/status with the
// projection of its stage records. The cache is written best-effort by the
// controller; a crash between a record update and the cache write leaves the
// document reporting a stale stage until this pass fixes it.
func (m *Monitor) repairDocumentCaches(ctx context.Context) error {
	var stale []uuid.UUID
	err := m.store.ListDocuments(ctx, func(doc *models.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stages, err := m.store.StatusesForDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		stage, status, _, ok := models.DeriveDocumentState(stages)
		if !ok {
			return nil
		}
		if doc.Stage != stage || doc.Status != status {
			stale = append(stale, doc.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}

	for _, id := range stale {
		// Re-derive just before the write so a document that moved since
		// the scan gets the current projection, not the stale one.
		stages, err := m.store.StatusesForDocument(ctx, id)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("document_id", id.String()).
				Msg("Failed to load statuses for cache repair")
			continue
		}
		stage, status, failedStage, ok := models.DeriveDocumentState(stages)
		if !ok {
			continue
		}
		repaired := false
		if _, err := m.store.UpdateDocument(ctx, id, func(d *models.Document) {
			repaired = false
			if d.Stage == stage && d.Status == status {
				return
			}
			repaired = true
			d.Stage = stage
			d.Status = status
			if failedStage != "" {
				d.FailedStage = failedStage
			}
		}); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("document_id", id.String()).
				Msg("Failed to repair document stage cache")
			continue
		}
		if !repaired {
			continue
		}
		metrics.MonitorCacheRepairs.Inc()
		logging.Ctx(ctx).Warn().
			Str("document_id", id.String()).
			Str("stage", stage.String()).
			Str("status", string(status)).
			Msg("Repaired document stage cache")
	}
	return nil
}

// replayAdvance takes over an expired lease and completes the stage
// transition a crashed worker left unfinished. The output is already durable,
// so the stage is not re-run.
func (m *Monitor) replayAdvance(ctx context.Context, stale *models.StageStatusRecord, log zerolog.Logger) {
	token, err := m.ctrl.StartStage(ctx, stale.DocumentID, stale.Stage)
	if err != nil {
		// A live worker got there first, or the record is no longer
		// processing. Either way someone else owns this now.
		log.Debug().Err(err).Msg("Skipping advance replay, lease not acquirable")
		return
	}

	next, err := m.ctrl.Advance(ctx, stale.DocumentID, stale.Stage, token)
	if err != nil {
		if !errors.Is(err, pipeline.ErrStaleLease) {
			log.Error().Err(err).Msg("Failed to replay stage advance")
		}
		return
	}

	if stale.Stage == models.StageOCR {
		// The worker crashed between writing the text and clearing its
		// job handle; without this the poller would carry it forever.
		if err := m.store.DeleteOCRJob(ctx, stale.DocumentID); err != nil && !errors.Is(err, statestore.ErrNotFound) {
			log.Error().Err(err).Msg("Failed to delete orphaned OCR job handle")
		}
	}

	metrics.MonitorAdvances.WithLabelValues(stale.Stage.String()).Inc()
	log.Warn().Str("next", next.String()).Msg("Replayed stage advance from existing output")
}

// outputComplete reports whether a stage's durable output is fully written,
// meaning the only thing the crashed worker left undone was the advance.
func (m *Monitor) outputComplete(ctx context.Context, docID uuid.UUID, stage models.Stage) (bool, error) {
	switch stage {
	case models.StageOCR:
		return m.blobs.HasText(docID)
	case models.StageChunking:
		return m.store.HasChunks(ctx, docID)
	case models.StageEntityExtraction:
		chunks, err := m.store.GetChunks(ctx, docID)
		if err != nil {
			if errors.Is(err, statestore.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		written, err := m.store.CountMentionChunks(ctx, docID)
		if err != nil {
			return false, err
		}
		return written == len(chunks), nil
	case models.StageEntityResolution:
		return m.store.HasEntities(ctx, docID)
	case models.StageRelationshipStaging:
		return m.store.HasRelationships(ctx, docID)
	default:
		return false, nil
	}
}
