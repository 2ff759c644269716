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

	"github.com/joeott/legal-doc-processor-sub010/internal/blobstore"
	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/ocr"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// contentTypeFor maps a detected document type to the upload content type.
func contentTypeFor(t models.DocumentType) string {
	switch t {
	case models.DocTypePDF:
		return "application/pdf"
	case models.DocTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case models.DocTypeImage:
		return "application/octet-stream"
	default:
		return "text/plain"
	}
}

// runOCR submits the blob to the OCR service and persists the job handle.
// If the job completes synchronously (passthrough client, cached result) the
// text is stored and the stage advances via the normal handler path;
// otherwise errOCRPending leaves the lease with the poller.
func (w *Workers) runOCR(ctx context.Context, task *models.TaskMessage, token string) error {
	docID := task.DocumentID

	// A prior attempt may have submitted already; resume its job instead of
	// paying for OCR twice.
	job, err := w.store.GetOCRJob(ctx, docID)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		return fmt.Errorf("ocr: load job handle: %w", err)
	}

	if job == nil {
		doc, err := w.store.GetDocument(ctx, docID)
		if err != nil {
			return fmt.Errorf("ocr: load document: %w", err)
		}
		blob, err := w.blobs.GetBytes(task.OCR.BlobRef)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return pipeline.Permanent(fmt.Errorf("ocr: source blob %q missing", task.OCR.BlobRef))
			}
			return fmt.Errorf("ocr: read blob: %w", err)
		}

		jobID, err := w.ocrClient.Submit(ctx, docID, contentTypeFor(doc.DetectedType), blob)
		if err != nil {
			return fmt.Errorf("ocr: submit: %w", err)
		}
		now := time.Now().UTC()
		job = &models.OCRJob{
			DocumentID:  docID,
			JobID:       jobID,
			LeaseToken:  token,
			SubmittedAt: now,
		}
		if err := w.store.PutOCRJob(ctx, job); err != nil {
			return fmt.Errorf("ocr: persist job handle: %w", err)
		}
	} else {
		// Re-leased after a crash or takeover: the handle now belongs to
		// this lease.
		job.LeaseToken = token
		if err := w.store.PutOCRJob(ctx, job); err != nil {
			return fmt.Errorf("ocr: refresh job handle: %w", err)
		}
	}

	done, err := w.pollOCRJob(ctx, job)
	if err != nil {
		return err
	}
	if !done {
		return errOCRPending
	}
	return nil
}

// pollOCRJob polls once. Returns true when the text landed in the blob
// store and the job handle was cleaned up.
func (w *Workers) pollOCRJob(ctx context.Context, job *models.OCRJob) (bool, error) {
	status, err := w.ocrClient.Poll(ctx, job.JobID)
	if err != nil {
		metrics.OCRPolls.WithLabelValues("error").Inc()
		if errors.Is(err, ocr.ErrJobNotFound) {
			// Evicted by the service; clear the handle so the next attempt
			// resubmits.
			if derr := w.store.DeleteOCRJob(ctx, job.DocumentID); derr != nil {
				return false, fmt.Errorf("ocr: clear stale job handle: %w", derr)
			}
			return false, fmt.Errorf("ocr: job %s evicted by service", job.JobID)
		}
		return false, fmt.Errorf("ocr: poll: %w", err)
	}

	job.LastPolledAt = time.Now().UTC()
	job.PollCount++

	switch status.State {
	case ocr.JobCompleted:
		metrics.OCRPolls.WithLabelValues("completed").Inc()
		if err := w.blobs.PutText(job.DocumentID, status.Text); err != nil {
			return false, fmt.Errorf("ocr: store text: %w", err)
		}
		if err := w.store.DeleteOCRJob(ctx, job.DocumentID); err != nil {
			return false, fmt.Errorf("ocr: delete job handle: %w", err)
		}
		return true, nil
	case ocr.JobFailed:
		metrics.OCRPolls.WithLabelValues("failed").Inc()
		if err := w.store.DeleteOCRJob(ctx, job.DocumentID); err != nil {
			return false, fmt.Errorf("ocr: delete job handle: %w", err)
		}
		return false, pipeline.Permanent(fmt.Errorf("ocr: job failed: %s", status.Detail))
	default:
		metrics.OCRPolls.WithLabelValues("pending").Inc()
		if err := w.store.PutOCRJob(ctx, job); err != nil {
			return false, fmt.Errorf("ocr: update job handle: %w", err)
		}
		return false, nil
	}
}

// OCRPoller drives submitted OCR jobs to completion. It runs under the
// supervision tree and sweeps persisted job handles, so polling survives
// process restarts.
type OCRPoller struct {
	workers *Workers
}

// NewOCRPoller creates the poller service.
func NewOCRPoller(workers *Workers) *OCRPoller {
	return &OCRPoller{workers: workers}
}

// String names the service in supervisor logs.
func (p *OCRPoller) String() string { return "ocr-poller" }

// Serve sweeps job handles until the context is canceled.
func (p *OCRPoller) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.workers.cfg.OCRPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("OCR poll sweep failed")
			}
		}
	}
}

// sweep polls every outstanding job once.
func (p *OCRPoller) sweep(ctx context.Context) error {
	var jobs []*models.OCRJob
	if err := p.workers.store.ScanOCRJobs(ctx, func(job *models.OCRJob) error {
		jobs = append(jobs, job)
		return nil
	}); err != nil {
		return fmt.Errorf("scan ocr jobs: %w", err)
	}
	metrics.OCRJobsInFlight.Set(float64(len(jobs)))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.pollOne(ctx, job)
	}
	return nil
}

// pollOne advances a single job: renew the stage lease, poll, and on a
// terminal result route through the chain controller.
func (p *OCRPoller) pollOne(ctx context.Context, job *models.OCRJob) {
	w := p.workers
	log := logging.Ctx(ctx).With().
		Str("document_id", job.DocumentID.String()).
		Str("job_id", job.JobID).
		Logger()

	// Keep the stall monitor off work that is genuinely alive. A stale
	// token here means ownership moved; drop the handle work to the new
	// owner's runOCR resume path.
	if err := w.ctrl.RenewLease(ctx, job.DocumentID, models.StageOCR, job.LeaseToken); err != nil {
		log.Debug().Err(err).Msg("OCR job lease no longer owned, skipping poll")
		return
	}

	if time.Since(job.SubmittedAt) > w.cfg.OCRJobTimeout {
		if err := w.store.DeleteOCRJob(ctx, job.DocumentID); err != nil {
			log.Error().Err(err).Msg("Failed to delete timed-out OCR job handle")
			return
		}
		cause := pipeline.Permanent(fmt.Errorf("ocr: job %s exceeded %s timeout", job.JobID, w.cfg.OCRJobTimeout))
		if err := w.ctrl.Fail(ctx, job.DocumentID, models.StageOCR, job.LeaseToken, cause); err != nil && !errors.Is(err, pipeline.ErrStaleLease) {
			log.Error().Err(err).Msg("Failed to fail timed-out OCR stage")
		}
		return
	}

	done, err := w.pollOCRJob(ctx, job)
	switch {
	case err != nil:
		if perr := w.ctrl.Fail(ctx, job.DocumentID, models.StageOCR, job.LeaseToken, err); perr != nil && !errors.Is(perr, pipeline.ErrStaleLease) {
			log.Error().Err(perr).Msg("Failed to record OCR failure")
		}
	case done:
		if _, aerr := w.ctrl.Advance(ctx, job.DocumentID, models.StageOCR, job.LeaseToken); aerr != nil && !errors.Is(aerr, pipeline.ErrStaleLease) {
			log.Error().Err(aerr).Msg("Failed to advance after OCR completion")
		} else {
			log.Info().Int("polls", job.PollCount).Msg("OCR completed")
		}
	}
}
