// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

func TestChunks_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if _, err := s.GetChunks(ctx, docID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing chunks, got %v", err)
	}
	if ok, err := s.HasChunks(ctx, docID); err != nil || ok {
		t.Errorf("HasChunks = (%v, %v), want (false, nil)", ok, err)
	}

	chunks := []models.Chunk{
		{ID: uuid.New(), DocumentID: docID, Index: 0, StartOffset: 0, EndOffset: 5, Text: "Hello"},
		{ID: uuid.New(), DocumentID: docID, Index: 1, StartOffset: 5, EndOffset: 11, Text: " world"},
	}
	if err := s.PutChunks(ctx, docID, chunks); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}

	got, err := s.GetChunks(ctx, docID)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(got) != 2 || got[0].Text != "Hello" || got[1].Index != 1 {
		t.Errorf("unexpected chunks roundtrip: %+v", got)
	}
	if ok, _ := s.HasChunks(ctx, docID); !ok {
		t.Error("HasChunks should be true after PutChunks")
	}
}

func TestMentions_FanOutFanIn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()
	chunkA, chunkB := uuid.New(), uuid.New()

	// Write chunk 1 before chunk 0: GetMentions must still return chunk order.
	if err := s.PutMentions(ctx, docID, 1, []models.EntityMention{
		{ID: uuid.New(), DocumentID: docID, ChunkID: chunkB, ChunkIndex: 1, Value: "Acme LLC", Type: models.EntityOrg, Confidence: 0.9},
	}); err != nil {
		t.Fatalf("PutMentions(1): %v", err)
	}
	if err := s.PutMentions(ctx, docID, 0, []models.EntityMention{
		{ID: uuid.New(), DocumentID: docID, ChunkID: chunkA, ChunkIndex: 0, Value: "Jane Doe", Type: models.EntityPerson, Confidence: 0.95},
		{ID: uuid.New(), DocumentID: docID, ChunkID: chunkA, ChunkIndex: 0, Value: "Acme L.L.C.", Type: models.EntityOrg, Confidence: 0.85},
	}); err != nil {
		t.Fatalf("PutMentions(0): %v", err)
	}

	count, err := s.CountMentionChunks(ctx, docID)
	if err != nil {
		t.Fatalf("CountMentionChunks: %v", err)
	}
	if count != 2 {
		t.Errorf("CountMentionChunks = %d, want 2", count)
	}

	mentions, err := s.GetMentions(ctx, docID)
	if err != nil {
		t.Fatalf("GetMentions: %v", err)
	}
	if len(mentions) != 3 {
		t.Fatalf("expected 3 mentions, got %d", len(mentions))
	}
	if mentions[0].ChunkIndex != 0 || mentions[2].ChunkIndex != 1 {
		t.Errorf("mentions not in chunk order: %+v", mentions)
	}

	// Replaying a chunk's extraction overwrites, not appends.
	if err := s.PutMentions(ctx, docID, 0, []models.EntityMention{
		{ID: uuid.New(), DocumentID: docID, ChunkID: chunkA, ChunkIndex: 0, Value: "Jane Doe", Type: models.EntityPerson, Confidence: 0.95},
	}); err != nil {
		t.Fatalf("replay PutMentions(0): %v", err)
	}
	mentions, err = s.GetMentions(ctx, docID)
	if err != nil {
		t.Fatalf("GetMentions after replay: %v", err)
	}
	if len(mentions) != 2 {
		t.Errorf("expected 2 mentions after idempotent replay, got %d", len(mentions))
	}
}

func TestRelationships_ExportFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	rels := []models.RelationshipStagingRecord{
		{ID: uuid.New(), DocumentID: docID, From: models.ChunkRef(uuid.New()), To: models.DocumentRef(docID), Type: models.RelBelongsTo, Confidence: 1},
	}
	if err := s.PutRelationships(ctx, docID, rels); err != nil {
		t.Fatalf("PutRelationships: %v", err)
	}
	if err := s.MarkRelationshipsExported(ctx, docID); err != nil {
		t.Fatalf("MarkRelationshipsExported: %v", err)
	}

	got, err := s.GetRelationships(ctx, docID)
	if err != nil {
		t.Fatalf("GetRelationships: %v", err)
	}
	if !got[0].Exported {
		t.Error("expected record to be marked exported")
	}
}

func TestOCRJobs_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	job := &models.OCRJob{DocumentID: docID, JobID: "job-123", LeaseToken: "tok"}
	if err := s.PutOCRJob(ctx, job); err != nil {
		t.Fatalf("PutOCRJob: %v", err)
	}

	got, err := s.GetOCRJob(ctx, docID)
	if err != nil {
		t.Fatalf("GetOCRJob: %v", err)
	}
	if got.JobID != "job-123" {
		t.Errorf("JobID = %s, want job-123", got.JobID)
	}

	seen := 0
	if err := s.ScanOCRJobs(ctx, func(j *models.OCRJob) error {
		seen++
		return nil
	}); err != nil {
		t.Fatalf("ScanOCRJobs: %v", err)
	}
	if seen != 1 {
		t.Errorf("ScanOCRJobs visited %d jobs, want 1", seen)
	}

	if err := s.DeleteOCRJob(ctx, docID); err != nil {
		t.Fatalf("DeleteOCRJob: %v", err)
	}
	if _, err := s.GetOCRJob(ctx, docID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteStageOutputs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docID := uuid.New()

	if err := s.PutChunks(ctx, docID, []models.Chunk{
		{ID: uuid.New(), DocumentID: docID, Index: 0, EndOffset: 5, Text: "Hello"},
	}); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.PutMentions(ctx, docID, i, nil); err != nil {
			t.Fatalf("PutMentions(%d): %v", i, err)
		}
	}
	if err := s.PutEntities(ctx, docID, []models.CanonicalEntity{}); err != nil {
		t.Fatalf("PutEntities: %v", err)
	}

	if err := s.DeleteStageOutputs(ctx, docID, models.StageEntityExtraction); err != nil {
		t.Fatalf("DeleteStageOutputs(extraction): %v", err)
	}
	if n, _ := s.CountMentionChunks(ctx, docID); n != 0 {
		t.Errorf("mention chunks after delete = %d, want 0", n)
	}
	// Other stages' outputs must survive.
	if ok, _ := s.HasChunks(ctx, docID); !ok {
		t.Error("chunks deleted by extraction output cleanup")
	}
	if ok, _ := s.HasEntities(ctx, docID); !ok {
		t.Error("entities deleted by extraction output cleanup")
	}

	if err := s.DeleteStageOutputs(ctx, docID, models.StageChunking); err != nil {
		t.Fatalf("DeleteStageOutputs(chunking): %v", err)
	}
	if ok, _ := s.HasChunks(ctx, docID); ok {
		t.Error("chunks still present after chunking output cleanup")
	}

	// Deleting outputs that were never written is a no-op.
	if err := s.DeleteStageOutputs(ctx, uuid.New(), models.StageEntityResolution); err != nil {
		t.Errorf("DeleteStageOutputs on missing outputs: %v", err)
	}
}
