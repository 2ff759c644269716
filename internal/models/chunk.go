// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Chunk is one contiguous slice of a document's cleaned text. Chunks are
// created by the chunking stage and immutable thereafter.
//
// Invariant: within a document, chunk offsets are 0-based, contiguous,
// non-overlapping, and their union reconstructs the cleaned document text.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Index      int       `json:"index"`
	// StartOffset and EndOffset are byte offsets into the cleaned document
	// text; EndOffset is exclusive.
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

// ValidateChunkSet checks the chunk-set invariant against the source text:
// indexes contiguous from 0, offsets sorted and non-overlapping, and the
// concatenation of chunk texts reconstructs the source exactly.
//
// The chunks slice must be ordered by Index; the chunking stage persists them
// that way and the state store returns them that way.
func ValidateChunkSet(chunks []Chunk, text string) error {
	offset := 0
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("chunk %d: index %d out of order", i, c.Index)
		}
		if c.StartOffset != offset {
			return fmt.Errorf("chunk %d: start offset %d, want %d (gap or overlap)", i, c.StartOffset, offset)
		}
		if c.EndOffset <= c.StartOffset {
			return fmt.Errorf("chunk %d: empty or inverted offsets [%d,%d)", i, c.StartOffset, c.EndOffset)
		}
		if c.EndOffset > len(text) {
			return fmt.Errorf("chunk %d: end offset %d beyond text length %d", i, c.EndOffset, len(text))
		}
		if text[c.StartOffset:c.EndOffset] != c.Text {
			return fmt.Errorf("chunk %d: text does not match source at [%d,%d)", i, c.StartOffset, c.EndOffset)
		}
		offset = c.EndOffset
	}
	if offset != len(text) {
		return fmt.Errorf("chunks cover %d of %d bytes", offset, len(text))
	}
	return nil
}
