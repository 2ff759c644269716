// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package chunker

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

func TestSplitEmptyText(t *testing.T) {
	s := New()
	if got := s.Split(uuid.New(), ""); got != nil {
		t.Errorf("Split(empty) = %v, want nil", got)
	}
}

func TestSplitSmallTextSingleChunk(t *testing.T) {
	s := New()
	docID := uuid.New()
	text := "IN THE UNITED STATES DISTRICT COURT\n\nPlaintiff alleges as follows."

	chunks := s.Split(docID, text)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q, want full text", chunks[0].Text)
	}
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		t.Errorf("ValidateChunkSet() error = %v", err)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := New(WithTargetSize(50), WithMaxSize(90))
	docID := uuid.New()

	paragraphs := []string{
		"First paragraph of the agreement between the parties hereto.",
		"Second paragraph describing the consideration exchanged.",
		"Third paragraph with governing law and venue provisions.",
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := s.Split(docID, text)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want at least 2", len(chunks))
	}
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		t.Fatalf("ValidateChunkSet() error = %v", err)
	}
	// All but the last chunk should end on a paragraph break.
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, "\n\n") {
			t.Errorf("chunk %d does not end at a paragraph break: %q", i, c.Text)
		}
	}
}

func TestSplitFallsBackToSentences(t *testing.T) {
	s := New(WithTargetSize(40), WithMaxSize(80))
	docID := uuid.New()
	// One long paragraph, no double newlines.
	text := "The court finds for the plaintiff. Damages are awarded in full. " +
		"Costs are taxed against the defendant. Judgment is entered accordingly."

	chunks := s.Split(docID, text)
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want at least 2", len(chunks))
	}
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		t.Fatalf("ValidateChunkSet() error = %v", err)
	}
}

func TestSplitHardCutWithoutWhitespace(t *testing.T) {
	s := New(WithTargetSize(10), WithMaxSize(16))
	docID := uuid.New()
	text := strings.Repeat("x", 100)

	chunks := s.Split(docID, text)
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		t.Fatalf("ValidateChunkSet() error = %v", err)
	}
	for i, c := range chunks {
		if len(c.Text) > 16 {
			t.Errorf("chunk %d length %d exceeds max 16", i, len(c.Text))
		}
	}
}

func TestSplitNeverSplitsRunes(t *testing.T) {
	s := New(WithTargetSize(8), WithMaxSize(10))
	docID := uuid.New()
	text := strings.Repeat("é", 50) // two bytes per rune, no whitespace

	chunks := s.Split(docID, text)
	if err := models.ValidateChunkSet(chunks, text); err != nil {
		t.Fatalf("ValidateChunkSet() error = %v", err)
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c.Text, "é") || len(c.Text)%2 != 0 {
			t.Errorf("chunk %d split a multi-byte rune: %q", i, c.Text)
		}
	}
}

func TestSplitDeterministicOffsets(t *testing.T) {
	s := New(WithTargetSize(30), WithMaxSize(60))
	docID := uuid.New()
	text := "Alpha beta gamma. Delta epsilon zeta. Eta theta iota kappa lambda. " +
		"Mu nu xi omicron pi rho sigma tau."

	a := s.Split(docID, text)
	b := s.Split(docID, text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].StartOffset != b[i].StartOffset || a[i].EndOffset != b[i].EndOffset {
			t.Errorf("chunk %d offsets differ between runs", i)
		}
	}
}
