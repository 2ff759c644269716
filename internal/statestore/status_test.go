// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestGetStatus_MissingRecordIsNone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.GetStatus(ctx, uuid.New(), models.StageOCR)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec.Status != models.StatusNone {
		t.Errorf("Status = %s, want none", rec.Status)
	}
}

func TestCASUpdate_PreconditionEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	// Seed a queued record.
	err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: docID,
		Stage:      models.StageChunking,
		Status:     models.StatusQueued,
	})
	if err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	// CAS expecting processing must fail against a queued record.
	_, err = s.CASUpdate(ctx, docID, models.StageChunking,
		func(rec *models.StageStatusRecord) error {
			if rec.Status != models.StatusProcessing {
				return ErrCASMismatch
			}
			return nil
		},
		func(rec *models.StageStatusRecord) { rec.Status = models.StatusCompleted },
	)
	if !errors.Is(err, ErrCASMismatch) {
		t.Errorf("expected ErrCASMismatch, got %v", err)
	}

	// Record must be unchanged.
	rec, err := s.GetStatus(ctx, docID, models.StageChunking)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec.Status != models.StatusQueued {
		t.Errorf("Status = %s, want queued (failed CAS must not mutate)", rec.Status)
	}
}

func TestAcquireLease_QueuedRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: docID,
		Stage:      models.StageOCR,
		Status:     models.StatusQueued,
	}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	token, err := s.AcquireLease(ctx, docID, models.StageOCR, time.Minute)
	if err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}
	if token == "" {
		t.Fatal("expected a lease token")
	}

	rec, err := s.GetStatus(ctx, docID, models.StageOCR)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec.Status != models.StatusProcessing {
		t.Errorf("Status = %s, want processing", rec.Status)
	}
	if rec.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", rec.Attempts)
	}
	if !rec.OwnedBy(token, time.Now()) {
		t.Error("record should be owned by the returned token")
	}
}

func TestAcquireLease_HeldLeaseRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: docID,
		Stage:      models.StageOCR,
		Status:     models.StatusQueued,
	}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	if _, err := s.AcquireLease(ctx, docID, models.StageOCR, time.Minute); err != nil {
		t.Fatalf("first AcquireLease: %v", err)
	}
	_, err := s.AcquireLease(ctx, docID, models.StageOCR, time.Minute)
	if !errors.Is(err, ErrLeaseHeld) {
		t.Errorf("expected ErrLeaseHeld, got %v", err)
	}
}

func TestAcquireLease_ExpiredLeaseTakenOver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: docID,
		Stage:      models.StageOCR,
		Status:     models.StatusQueued,
	}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	// Acquire with a tiny TTL, wait for expiry, acquire again.
	first, err := s.AcquireLease(ctx, docID, models.StageOCR, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("first AcquireLease: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	second, err := s.AcquireLease(ctx, docID, models.StageOCR, time.Minute)
	if err != nil {
		t.Fatalf("takeover AcquireLease: %v", err)
	}
	if second == first {
		t.Error("takeover must mint a fresh token")
	}

	rec, err := s.GetStatus(ctx, docID, models.StageOCR)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2 after takeover", rec.Attempts)
	}
}

func TestAcquireLease_ConcurrentSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: docID,
		Stage:      models.StageChunking,
		Status:     models.StatusQueued,
	}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := s.AcquireLease(ctx, docID, models.StageChunking, time.Minute); err == nil {
				wins <- token
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one lease winner, got %d", count)
	}
}

func TestRenewAndReleaseLease(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: docID,
		Stage:      models.StageOCR,
		Status:     models.StatusQueued,
	}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	token, err := s.AcquireLease(ctx, docID, models.StageOCR, time.Minute)
	if err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}

	if err := s.RenewLease(ctx, docID, models.StageOCR, token, 2*time.Minute); err != nil {
		t.Errorf("RenewLease with owned token: %v", err)
	}
	if err := s.RenewLease(ctx, docID, models.StageOCR, "not-the-token", time.Minute); !errors.Is(err, ErrStaleLease) {
		t.Errorf("RenewLease with foreign token: expected ErrStaleLease, got %v", err)
	}

	if err := s.ReleaseLease(ctx, docID, models.StageOCR, token); err != nil {
		t.Errorf("ReleaseLease: %v", err)
	}
	rec, err := s.GetStatus(ctx, docID, models.StageOCR)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if rec.Status != models.StatusQueued {
		t.Errorf("Status after release = %s, want queued", rec.Status)
	}
	if rec.LeaseToken != "" {
		t.Error("lease token should be cleared after release")
	}
}

func TestStatusesForDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	for _, st := range []models.Stage{models.StageOCR, models.StageChunking} {
		if err := s.PutStatus(ctx, &models.StageStatusRecord{
			DocumentID: docID,
			Stage:      st,
			Status:     models.StatusCompleted,
		}); err != nil {
			t.Fatalf("PutStatus(%s): %v", st, err)
		}
	}
	// A record for another document must not leak in.
	if err := s.PutStatus(ctx, &models.StageStatusRecord{
		DocumentID: uuid.New(),
		Stage:      models.StageOCR,
		Status:     models.StatusQueued,
	}); err != nil {
		t.Fatalf("PutStatus(other doc): %v", err)
	}

	got, err := s.StatusesForDocument(ctx, docID)
	if err != nil {
		t.Fatalf("StatusesForDocument: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[models.StageOCR].Status != models.StatusCompleted {
		t.Errorf("ocr status = %s, want completed", got[models.StageOCR].Status)
	}
}
