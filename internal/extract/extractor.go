// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package extract

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// Extractor extracts entity mentions from one chunk.
type Extractor interface {
	Extract(ctx context.Context, chunk models.Chunk) ([]models.EntityMention, error)
}

// rawMention is an extractor's pre-validation output.
type rawMention struct {
	Value      string  `json:"value"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// finalize validates raw mentions against the chunk and converts survivors.
// Spans that do not slice to the claimed value are kept but re-anchored via
// search when possible, dropped otherwise; unknown types and low-confidence
// mentions are dropped.
func finalize(chunk models.Chunk, raws []rawMention, minConfidence float64) []models.EntityMention {
	var out []models.EntityMention
	for _, r := range raws {
		t := models.EntityType(r.Type)
		if !t.Valid() || r.Value == "" {
			continue
		}
		if r.Confidence < minConfidence {
			continue
		}
		start, end := r.Start, r.End
		if !spanMatches(chunk.Text, start, end, r.Value) {
			start, end = findSpan(chunk.Text, r.Value)
			if start < 0 {
				continue
			}
		}
		conf := r.Confidence
		if conf > 1 {
			conf = 1
		}
		out = append(out, models.EntityMention{
			ID:         uuid.New(),
			DocumentID: chunk.DocumentID,
			ChunkID:    chunk.ID,
			ChunkIndex: chunk.Index,
			Value:      chunk.Text[start:end],
			Type:       t,
			Confidence: conf,
			Start:      start,
			End:        end,
		})
	}
	return out
}

func spanMatches(text string, start, end int, value string) bool {
	return start >= 0 && end > start && end <= len(text) && text[start:end] == value
}

func findSpan(text, value string) (int, int) {
	idx := strings.Index(text, value)
	if idx < 0 {
		return -1, -1
	}
	return idx, idx + len(value)
}
