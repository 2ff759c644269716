// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/blobstore"
	"github.com/joeott/legal-doc-processor-sub010/internal/chunker"
	"github.com/joeott/legal-doc-processor-sub010/internal/extract"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/ocr"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/queue"
	"github.com/joeott/legal-doc-processor-sub010/internal/resolve"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// harness wires a full single-binary pipeline over the in-process queue.
type harness struct {
	store *statestore.Store
	blobs *blobstore.Store
	ctrl  *pipeline.Controller
	q     *queue.Queue
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, ocr.NewPassthroughClient(), chunker.New())
}

// newHarnessWith swaps in a different OCR client or splitter for tests that
// need to steer what the stages see.
func newHarnessWith(t *testing.T, client ocr.Client, split *chunker.Splitter) *harness {
	t.Helper()

	store, err := statestore.OpenInMemory()
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}

	q := queue.NewGoChannel(watermill.NopLogger{})
	t.Cleanup(func() { q.Close() })

	ctrl := pipeline.NewController(store, q, pipeline.Config{
		LeaseTTL:    time.Minute,
		MaxAttempts: 3,
	})

	workers := New(
		store, blobs, ctrl,
		client,
		extract.NewRegexExtractor(0.5),
		split,
		resolve.New(resolve.DefaultConfig()),
		DefaultConfig(),
	)

	router, err := queue.NewRouter(nil, q.Publisher, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	workers.Register(router, q.Subscriber)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := router.Run(ctx); err != nil && ctx.Err() == nil {
			t.Errorf("router run: %v", err)
		}
	}()
	<-router.Running()
	t.Cleanup(func() { router.Close() })

	return &harness{store: store, blobs: blobs, ctrl: ctrl, q: q}
}

// waitForTerminal polls until the document reaches completed or failed.
func (h *harness) waitForTerminal(t *testing.T, docID uuid.UUID) *models.Document {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := h.store.GetDocument(ctx, docID)
		if err != nil {
			t.Fatalf("get document: %v", err)
		}
		if doc.Stage.Terminal() {
			return doc
		}
		time.Sleep(20 * time.Millisecond)
	}
	doc, _ := h.store.GetDocument(ctx, docID)
	t.Fatalf("document did not reach a terminal stage in time, last: %+v", doc)
	return nil
}

const sampleFiling = `Mr. John Smith filed suit against Widget Corp.
on January 15, 2024, seeking $250,000.00 in damages under 42 U.S.C. § 1983.

Counsel for Widget Corp. moved to dismiss, citing 550 U.S. 544.
Mr. John Smith opposed the motion on February 2, 2024.`

func TestPipelineEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ref := "uploads/filing.txt"
	if err := h.blobs.PutBytes(ref, []byte(sampleFiling)); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	doc, err := h.ctrl.Submit(ctx, ref, "case-7741", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := h.waitForTerminal(t, doc.ID)
	if final.Stage != models.StageCompleted {
		t.Fatalf("document finished at %s (status %s, error %q), want completed",
			final.Stage, final.Status, final.ErrorDetail)
	}

	// Every work stage must show a completed status record.
	statuses, err := h.ctrl.Status(ctx, doc.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, stage := range models.WorkStages {
		rec, ok := statuses.Stages[stage]
		if !ok || rec.Status != models.StatusCompleted {
			t.Errorf("stage %s: status = %v, want completed", stage, rec)
		}
	}

	text, err := h.blobs.GetText(doc.ID)
	if err != nil {
		t.Fatalf("get extracted text: %v", err)
	}
	chunks, err := h.store.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		t.Errorf("persisted chunk set invalid: %v", err)
	}

	mentions, err := h.store.GetMentions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get mentions: %v", err)
	}
	if len(mentions) == 0 {
		t.Fatal("expected regex extractor to find mentions in the sample filing")
	}

	entities, err := h.store.GetEntities(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get entities: %v", err)
	}
	byName := map[string]models.CanonicalEntity{}
	for _, e := range entities {
		byName[e.Name] = e
	}
	smith, ok := byName["John Smith"]
	if !ok {
		t.Fatalf("no canonical entity named John Smith, got %v", byName)
	}
	if smith.MentionCount() < 2 {
		t.Errorf("John Smith mentions = %d, want the two honorific mentions merged", smith.MentionCount())
	}

	rels, err := h.store.GetRelationships(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get relationships: %v", err)
	}
	var haveProject, haveNext, haveCooccur bool
	for _, r := range rels {
		switch {
		case r.Type == models.RelBelongsTo && r.To.Kind == models.NodeProject:
			haveProject = r.To.ID == "case-7741"
		case r.Type == models.RelNextChunk:
			haveNext = true
		case r.Type == models.RelMentionedWith:
			haveCooccur = true
		}
	}
	if !haveProject {
		t.Error("missing document BELONGS_TO project edge")
	}
	if len(chunks) > 1 && !haveNext {
		t.Error("missing NEXT_CHUNK edges")
	}
	if !haveCooccur {
		t.Error("missing MENTIONED_WITH co-occurrence edges")
	}
}

func TestPipelineMissingBlobFailsDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc, err := h.ctrl.Submit(ctx, "uploads/never-written.txt", "", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := h.waitForTerminal(t, doc.ID)
	if final.Stage != models.StageFailed {
		t.Fatalf("document finished at %s, want failed", final.Stage)
	}
	if final.FailedStage != models.StageOCR {
		t.Errorf("FailedStage = %s, want ocr", final.FailedStage)
	}
	if final.ErrorDetail == "" {
		t.Error("expected an error detail on the failed document")
	}
}

func TestPipelineNonTextBlobFailsPermanently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ref := "uploads/binary.bin"
	if err := h.blobs.PutBytes(ref, []byte{0xff, 0xfe, 0x00, 0x80}); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	doc, err := h.ctrl.Submit(ctx, ref, "", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := h.waitForTerminal(t, doc.ID)
	if final.Stage != models.StageFailed {
		t.Fatalf("document finished at %s, want failed", final.Stage)
	}

	// The passthrough client rejects non-UTF-8 input permanently; a single
	// attempt must be enough.
	rec, err := h.store.GetStatus(ctx, doc.ID, models.StageOCR)
	if err != nil {
		t.Fatalf("get ocr status: %v", err)
	}
	if rec.Attempts != 1 {
		t.Errorf("ocr attempts = %d, want 1 for a permanent failure", rec.Attempts)
	}
}

// failingOCRClient accepts every submission and reports the job failed on the
// first poll, standing in for a service that rejects a document after taking it.
type failingOCRClient struct{}

func (failingOCRClient) Submit(_ context.Context, docID uuid.UUID, _ string, _ []byte) (string, error) {
	return "job-" + docID.String(), nil
}

func (failingOCRClient) Poll(context.Context, string) (*ocr.JobStatus, error) {
	return &ocr.JobStatus{State: ocr.JobFailed, Detail: "unreadable scan"}, nil
}

func TestPipelineOCRJobFailureFailsDocument(t *testing.T) {
	h := newHarnessWith(t, failingOCRClient{}, chunker.New())
	ctx := context.Background()

	ref := "uploads/scan.pdf"
	if err := h.blobs.PutBytes(ref, []byte("scanned page body")); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	doc, err := h.ctrl.Submit(ctx, ref, "", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final := h.waitForTerminal(t, doc.ID)
	if final.Stage != models.StageFailed {
		t.Fatalf("document finished at %s, want failed", final.Stage)
	}
	if final.FailedStage != models.StageOCR {
		t.Errorf("FailedStage = %s, want ocr", final.FailedStage)
	}

	// A failed job is a verdict on the document, not a transient fault;
	// one attempt must settle it.
	rec, err := h.store.GetStatus(ctx, doc.ID, models.StageOCR)
	if err != nil {
		t.Fatalf("get ocr status: %v", err)
	}
	if rec.Status != models.StatusFailed {
		t.Errorf("ocr status = %s, want failed", rec.Status)
	}
	if rec.Attempts != 1 {
		t.Errorf("ocr attempts = %d, want 1", rec.Attempts)
	}

	next, err := h.store.GetStatus(ctx, doc.ID, models.StageChunking)
	if err != nil {
		t.Fatalf("get chunking status: %v", err)
	}
	if next.Status != models.StatusNone {
		t.Errorf("chunking status = %s, want none after OCR failure", next.Status)
	}
}

func TestPipelineStructuralEdgeCounts(t *testing.T) {
	// A small chunk size forces the sample filing across several chunks so
	// the structural edges have non-trivial counts.
	split := chunker.New(chunker.WithTargetSize(80), chunker.WithMaxSize(120))
	h := newHarnessWith(t, ocr.NewPassthroughClient(), split)
	ctx := context.Background()

	ref := "uploads/long-filing.txt"
	if err := h.blobs.PutBytes(ref, []byte(sampleFiling)); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	doc, err := h.ctrl.Submit(ctx, ref, "case-12", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if final := h.waitForTerminal(t, doc.ID); final.Stage != models.StageCompleted {
		t.Fatalf("document finished at %s, want completed", final.Stage)
	}

	chunks, err := h.store.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("chunk count = %d, want at least 2 for this splitter config", len(chunks))
	}

	rels, err := h.store.GetRelationships(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get relationships: %v", err)
	}
	var nextEdges, chunkBelongs, projectEdges int
	for _, r := range rels {
		switch {
		case r.Type == models.RelNextChunk:
			nextEdges++
		case r.Type == models.RelBelongsTo && r.From.Kind == models.NodeChunk:
			chunkBelongs++
		case r.Type == models.RelBelongsTo && r.To.Kind == models.NodeProject:
			projectEdges++
		}
	}
	if nextEdges != len(chunks)-1 {
		t.Errorf("NEXT_CHUNK edges = %d, want %d for %d chunks", nextEdges, len(chunks)-1, len(chunks))
	}
	if chunkBelongs != len(chunks) {
		t.Errorf("chunk BELONGS_TO edges = %d, want %d", chunkBelongs, len(chunks))
	}
	if projectEdges != 1 {
		t.Errorf("project BELONGS_TO edges = %d, want 1", projectEdges)
	}
}

func TestReprocessAfterCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ref := "uploads/short.txt"
	if err := h.blobs.PutBytes(ref, []byte("Dr. Jane Doe represents Acme LLC.")); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	doc, err := h.ctrl.Submit(ctx, ref, "", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if final := h.waitForTerminal(t, doc.ID); final.Stage != models.StageCompleted {
		t.Fatalf("first run finished at %s, want completed", final.Stage)
	}

	if err := h.ctrl.Reprocess(ctx, doc.ID, models.StageEntityResolution); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if final := h.waitForTerminal(t, doc.ID); final.Stage != models.StageCompleted {
		t.Fatalf("reprocess run finished at %s, want completed", final.Stage)
	}

	entities, err := h.store.GetEntities(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get entities after reprocess: %v", err)
	}
	if len(entities) == 0 {
		t.Error("expected entities after reprocessing resolution")
	}
}

func TestCooccurrenceEdgesDeterministic(t *testing.T) {
	docID := uuid.New()
	mk := func(chunk int) models.EntityMention {
		return models.EntityMention{ID: uuid.New(), ChunkIndex: chunk}
	}
	m1, m2, m3 := mk(0), mk(0), mk(1)
	mentions := []models.EntityMention{m1, m2, m3}

	e1 := models.CanonicalEntity{ID: uuid.New(), Confidence: 0.9, MentionIDs: []uuid.UUID{m1.ID, m3.ID}}
	e2 := models.CanonicalEntity{ID: uuid.New(), Confidence: 0.7, MentionIDs: []uuid.UUID{m2.ID}}

	now := time.Now().UTC()
	a := cooccurrenceEdges(docID, []models.CanonicalEntity{e1, e2}, mentions, now)
	b := cooccurrenceEdges(docID, []models.CanonicalEntity{e2, e1}, mentions, now)

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("edge counts = %d, %d, want 1 each", len(a), len(b))
	}
	if a[0].ID != b[0].ID {
		t.Errorf("edge IDs differ across input orderings: %s vs %s", a[0].ID, b[0].ID)
	}
	if a[0].From != b[0].From || a[0].To != b[0].To {
		t.Error("edge direction differs across input orderings")
	}
	if a[0].Confidence != 0.7 {
		t.Errorf("edge confidence = %f, want the lower entity confidence 0.7", a[0].Confidence)
	}
}

func TestRelationshipIDStableAcrossRuns(t *testing.T) {
	docID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	from := models.DocumentRef(docID)
	to := models.ProjectRef("case-1")

	id1 := relationshipID(docID, models.RelBelongsTo, from, to)
	id2 := relationshipID(docID, models.RelBelongsTo, from, to)
	if id1 != id2 {
		t.Fatalf("relationship ID not deterministic: %s vs %s", id1, id2)
	}
	other := relationshipID(docID, models.RelBelongsTo, from, models.ProjectRef("case-2"))
	if id1 == other {
		t.Error("distinct endpoints produced the same relationship ID")
	}
}
