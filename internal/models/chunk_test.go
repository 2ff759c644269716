// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import (
	"testing"

	"github.com/google/uuid"
)

func chunksFor(text string, bounds ...[2]int) []Chunk {
	docID := uuid.New()
	chunks := make([]Chunk, 0, len(bounds))
	for i, b := range bounds {
		chunks = append(chunks, Chunk{
			ID:          uuid.New(),
			DocumentID:  docID,
			Index:       i,
			StartOffset: b[0],
			EndOffset:   b[1],
			Text:        text[b[0]:b[1]],
		})
	}
	return chunks
}

func TestValidateChunkSet(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n\nThird."

	tests := []struct {
		name    string
		chunks  []Chunk
		wantErr bool
	}{
		{
			name:   "single chunk covering text",
			chunks: chunksFor(text, [2]int{0, len(text)}),
		},
		{
			name:   "contiguous split",
			chunks: chunksFor(text, [2]int{0, 18}, [2]int{18, 37}, [2]int{37, len(text)}),
		},
		{
			name:    "gap between chunks",
			chunks:  chunksFor(text, [2]int{0, 18}, [2]int{20, len(text)}),
			wantErr: true,
		},
		{
			name: "overlap between chunks",
			chunks: []Chunk{
				{Index: 0, StartOffset: 0, EndOffset: 20, Text: text[:20]},
				{Index: 1, StartOffset: 18, EndOffset: len(text), Text: text[18:]},
			},
			wantErr: true,
		},
		{
			name:    "incomplete coverage",
			chunks:  chunksFor(text, [2]int{0, 18}),
			wantErr: true,
		},
		{
			name: "text mismatch",
			chunks: []Chunk{{
				Index: 0, StartOffset: 0, EndOffset: len(text), Text: "something else",
			}},
			wantErr: true,
		},
		{
			name: "out of order index",
			chunks: []Chunk{
				{Index: 1, StartOffset: 0, EndOffset: 18, Text: text[:18]},
				{Index: 0, StartOffset: 18, EndOffset: len(text), Text: text[18:]},
			},
			wantErr: true,
		},
		{
			name:   "empty text empty chunks",
			chunks: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := text
			if tt.name == "empty text empty chunks" {
				src = ""
			}
			err := ValidateChunkSet(tt.chunks, src)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChunkSet() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
