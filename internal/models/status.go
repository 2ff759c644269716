// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus is the status of one (document, stage) pair.
type StageStatus string

// Stage statuses.
const (
	StatusNone       StageStatus = "none"
	StatusQueued     StageStatus = "queued"
	StatusProcessing StageStatus = "processing"
	StatusCompleted  StageStatus = "completed"
	StatusFailed     StageStatus = "failed"
)

// Valid reports whether s is a known status.
func (s StageStatus) Valid() bool {
	switch s {
	case StatusNone, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// StageStatusRecord is the single source of truth for "where is this
// document". Keyed by (document UUID, stage name) in the state store.
//
// The lease fields travel with the record so that status and ownership change
// together in one single-key conditional update; there is no separate lease
// row to get out of sync.
type StageStatusRecord struct {
	DocumentID uuid.UUID   `json:"document_id"`
	Stage      Stage       `json:"stage"`
	Status     StageStatus `json:"status"`
	Attempts   int         `json:"attempts"`

	// LeaseToken is the opaque ownership token of the worker currently
	// processing this stage. Empty unless Status is processing.
	LeaseToken string `json:"lease_token,omitempty"`

	// LeaseExpiresAt bounds how long a worker may hold the stage. Expiry is
	// the recovery hook for crashed workers.
	LeaseExpiresAt time.Time `json:"lease_expires_at,omitempty"`

	ErrorDetail string    `json:"error_detail,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LeaseExpired reports whether the record's lease has expired at the given time.
// Records without a lease are treated as expired.
func (r *StageStatusRecord) LeaseExpired(now time.Time) bool {
	return r.LeaseToken == "" || now.After(r.LeaseExpiresAt)
}

// OwnedBy reports whether the record is currently leased by token and the
// lease is still live.
func (r *StageStatusRecord) OwnedBy(token string, now time.Time) bool {
	return r.LeaseToken != "" && r.LeaseToken == token && !now.After(r.LeaseExpiresAt)
}

// OCRJob tracks an in-flight asynchronous OCR job so the polling sub-task can
// re-enter after the submitting worker has returned.
type OCRJob struct {
	DocumentID   uuid.UUID `json:"document_id"`
	JobID        string    `json:"job_id"`
	LeaseToken   string    `json:"lease_token"`
	SubmittedAt  time.Time `json:"submitted_at"`
	LastPolledAt time.Time `json:"last_polled_at,omitempty"`
	PollCount    int       `json:"poll_count"`
}

// DeriveDocumentState projects the per-stage records onto a single
// (stage, status) pair, the value the Document record caches. The records are
// authoritative; the cache is repaired from this projection when they
// diverge. Returns ok=false when the records are mid-transition (a gap in
// the chain) and no stable projection exists.
func DeriveDocumentState(stages map[Stage]*StageStatusRecord) (stage Stage, status StageStatus, failedStage Stage, ok bool) {
	for _, s := range WorkStages {
		rec := stages[s]
		if rec == nil || rec.Status == StatusNone {
			return "", "", "", false
		}
		switch rec.Status {
		case StatusFailed:
			return StageFailed, StatusFailed, s, true
		case StatusQueued, StatusProcessing:
			return s, rec.Status, "", true
		}
	}
	return StageCompleted, StatusCompleted, "", true
}
