// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package worker

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// runExtraction fans out over the document's chunks, bounded by
// MaxConcurrentChunks. Mentions land under per-chunk keys, so a replay after
// a partial crash just overwrites the chunks it reaches again.
func (w *Workers) runExtraction(ctx context.Context, task *models.TaskMessage, token string) error {
	docID := task.DocumentID

	chunks, err := w.store.GetChunks(ctx, docID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			return pipeline.Permanent(fmt.Errorf("extraction: no chunks for document %s", docID))
		}
		return fmt.Errorf("extraction: load chunks: %w", err)
	}
	if task.Extraction != nil && task.Extraction.ChunkCount > 0 && task.Extraction.ChunkCount != len(chunks) {
		return pipeline.Permanent(fmt.Errorf("extraction: task expects %d chunks, store has %d",
			task.Extraction.ChunkCount, len(chunks)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.MaxConcurrentChunks)

	total := make([]int, len(chunks))
	for i, chunk := range chunks {
		g.Go(func() error {
			mentions, err := w.extractor.Extract(gctx, chunk)
			if err != nil {
				return fmt.Errorf("extraction: chunk %d: %w", chunk.Index, err)
			}
			if err := w.store.PutMentions(gctx, docID, chunk.Index, mentions); err != nil {
				return fmt.Errorf("extraction: store mentions for chunk %d: %w", chunk.Index, err)
			}
			total[i] = len(mentions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	n := 0
	for _, c := range total {
		n += c
	}
	logging.Ctx(ctx).Info().
		Str("document_id", docID.String()).
		Int("chunks", len(chunks)).
		Int("mentions", n).
		Msg("Entity extraction completed")
	return nil
}
