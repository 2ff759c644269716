// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// GetStatus returns the StageStatusRecord for (docID, stage). A record that
// was never written comes back with StatusNone rather than an error, so
// callers can treat "never started" and "explicitly none" the same way.
func (s *Store) GetStatus(ctx context.Context, docID uuid.UUID, stage models.Stage) (*models.StageStatusRecord, error) {
	rec := &models.StageStatusRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, statusKey(docID, stage), rec)
	})
	if err == ErrNotFound {
		return &models.StageStatusRecord{
			DocumentID: docID,
			Stage:      stage,
			Status:     models.StatusNone,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PutStatus writes a status record unconditionally. Used at intake and by
// operator reprocessing; everything in the steady state goes through CASUpdate.
func (s *Store) PutStatus(ctx context.Context, rec *models.StageStatusRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, statusKey(rec.DocumentID, rec.Stage), rec)
	})
}

// CASUpdate atomically replaces the record for (docID, stage) if check
// passes against the current value. check receives a StatusNone record when
// the key does not exist yet. mutate edits the record in place; UpdatedAt is
// stamped by the store.
//
// This is the single serialization primitive of the whole pipeline. Badger
// detects write conflicts at commit, so two workers racing on the same record
// cannot both win: the loser retries, re-reads, and its check fails.
func (s *Store) CASUpdate(
	ctx context.Context,
	docID uuid.UUID,
	stage models.Stage,
	check func(*models.StageStatusRecord) error,
	mutate func(*models.StageStatusRecord),
) (*models.StageStatusRecord, error) {
	var out *models.StageStatusRecord
	err := s.update(func(txn *badger.Txn) error {
		rec := &models.StageStatusRecord{}
		err := getJSON(txn, statusKey(docID, stage), rec)
		if err == ErrNotFound {
			rec = &models.StageStatusRecord{
				DocumentID: docID,
				Stage:      stage,
				Status:     models.StatusNone,
			}
		} else if err != nil {
			return err
		}

		if err := check(rec); err != nil {
			return err
		}

		mutate(rec)
		rec.DocumentID = docID
		rec.Stage = stage
		rec.UpdatedAt = time.Now().UTC()
		out = rec
		return setJSON(txn, statusKey(docID, stage), rec)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AcquireLease transitions (docID, stage) from queued to processing and
// stamps a fresh lease. A record already processing under an unexpired lease
// returns ErrLeaseHeld; an expired lease is taken over (crashed-worker
// recovery). Returns the opaque lease token the worker must present to
// Advance.
func (s *Store) AcquireLease(ctx context.Context, docID uuid.UUID, stage models.Stage, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	now := time.Now().UTC()

	var takeover bool
	_, err := s.CASUpdate(ctx, docID, stage,
		func(rec *models.StageStatusRecord) error {
			takeover = false
			switch rec.Status {
			case models.StatusQueued:
				return nil
			case models.StatusProcessing:
				if rec.LeaseExpired(now) {
					takeover = true
					return nil
				}
				return ErrLeaseHeld
			default:
				return ErrCASMismatch
			}
		},
		func(rec *models.StageStatusRecord) {
			rec.Status = models.StatusProcessing
			rec.Attempts++
			rec.LeaseToken = token
			rec.LeaseExpiresAt = now.Add(ttl)
		},
	)
	if err != nil {
		return "", err
	}
	if takeover {
		metrics.LeaseTakeovers.WithLabelValues(stage.String()).Inc()
	}
	return token, nil
}

// RenewLease extends an owned lease. Long-running stages (OCR polling) renew
// periodically so the stall monitor does not reclaim work that is still alive.
func (s *Store) RenewLease(ctx context.Context, docID uuid.UUID, stage models.Stage, token string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.CASUpdate(ctx, docID, stage,
		func(rec *models.StageStatusRecord) error {
			if rec.Status != models.StatusProcessing || !rec.OwnedBy(token, now) {
				return ErrStaleLease
			}
			return nil
		},
		func(rec *models.StageStatusRecord) {
			rec.LeaseExpiresAt = now.Add(ttl)
		},
	)
	return err
}

// ReleaseLease clears an owned lease without changing status. Used when a
// worker backs out of a stage it cannot progress (transient failure before
// any output was written) so the retry path can requeue immediately.
func (s *Store) ReleaseLease(ctx context.Context, docID uuid.UUID, stage models.Stage, token string) error {
	now := time.Now().UTC()
	_, err := s.CASUpdate(ctx, docID, stage,
		func(rec *models.StageStatusRecord) error {
			if !rec.OwnedBy(token, now) {
				return ErrStaleLease
			}
			return nil
		},
		func(rec *models.StageStatusRecord) {
			rec.Status = models.StatusQueued
			rec.LeaseToken = ""
			rec.LeaseExpiresAt = time.Time{}
		},
	)
	return err
}

// AdvanceStage completes the from-stage and queues the to-stage in one
// transaction. The from record must be processing under the presented lease
// token, otherwise ErrStaleLease: a takeover happened and the caller's result
// is discarded. The returned bool reports whether this call transitioned the
// to-stage out of StatusNone; only that caller may enqueue the follow-up
// task, which keeps enqueues exactly-once across replays.
//
// A non-work to-stage (completed) only finishes the from record.
func (s *Store) AdvanceStage(ctx context.Context, docID uuid.UUID, from, to models.Stage, token string) (bool, error) {
	now := time.Now().UTC()
	queued := false

	err := s.update(func(txn *badger.Txn) error {
		queued = false

		fromRec := &models.StageStatusRecord{}
		if err := getJSON(txn, statusKey(docID, from), fromRec); err != nil {
			if err == ErrNotFound {
				return ErrStaleLease
			}
			return err
		}
		if fromRec.Status != models.StatusProcessing || !fromRec.OwnedBy(token, now) {
			return ErrStaleLease
		}

		fromRec.Status = models.StatusCompleted
		fromRec.LeaseToken = ""
		fromRec.LeaseExpiresAt = time.Time{}
		fromRec.ErrorDetail = ""
		fromRec.UpdatedAt = now
		if err := setJSON(txn, statusKey(docID, from), fromRec); err != nil {
			return err
		}

		if !to.IsWorkStage() {
			return nil
		}

		toRec := &models.StageStatusRecord{}
		err := getJSON(txn, statusKey(docID, to), toRec)
		if err == ErrNotFound {
			toRec = &models.StageStatusRecord{
				DocumentID: docID,
				Stage:      to,
				Status:     models.StatusNone,
			}
		} else if err != nil {
			return err
		}
		if toRec.Status != models.StatusNone {
			// Replay of an advance that already happened; nothing to enqueue.
			return nil
		}

		toRec.Status = models.StatusQueued
		toRec.UpdatedAt = now
		queued = true
		return setJSON(txn, statusKey(docID, to), toRec)
	})
	if err != nil {
		return false, err
	}
	return queued, nil
}

// ScanStatuses iterates every status record in the store. The stall monitor
// uses this for its periodic sweep. Iteration order is by key, i.e. grouped
// per document.
func (s *Store) ScanStatuses(ctx context.Context, fn func(*models.StageStatusRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(statusKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := &models.StageStatusRecord{}
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, rec)
			}); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// StatusesForDocument returns all status records for one document, keyed by stage.
func (s *Store) StatusesForDocument(ctx context.Context, docID uuid.UUID) (map[models.Stage]*models.StageStatusRecord, error) {
	out := make(map[models.Stage]*models.StageStatusRecord)
	prefix := statusKeyPrefix + docID.String() + ":"
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			stage := models.Stage(strings.TrimPrefix(key, prefix))
			rec := &models.StageStatusRecord{}
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, rec)
			}); err != nil {
				return err
			}
			out[stage] = rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
