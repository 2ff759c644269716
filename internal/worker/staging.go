// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// relationshipNamespace seeds deterministic edge IDs so a replayed staging
// run produces the same records instead of duplicates.
var relationshipNamespace = uuid.MustParse("c4b7f2d9-1e6a-4c58-9b3d-7f0a52e8c1b4")

func relationshipID(docID uuid.UUID, typ models.RelationshipType, from, to models.NodeRef) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%s:%s|%s:%s", docID, typ, from.Kind, from.ID, to.Kind, to.ID)
	return uuid.NewSHA1(relationshipNamespace, []byte(name))
}

// runStaging materializes the document's graph edges: structural BELONGS_TO
// and NEXT_CHUNK edges, plus MENTIONED_WITH co-occurrence edges between
// canonical entities sharing a chunk.
func (w *Workers) runStaging(ctx context.Context, task *models.TaskMessage, token string) error {
	docID := task.DocumentID

	doc, err := w.store.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("staging: load document: %w", err)
	}
	chunks, err := w.store.GetChunks(ctx, docID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			return pipeline.Permanent(fmt.Errorf("staging: no chunks for document %s", docID))
		}
		return fmt.Errorf("staging: load chunks: %w", err)
	}
	entities, err := w.store.GetEntities(ctx, docID)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		return fmt.Errorf("staging: load entities: %w", err)
	}
	mentions, err := w.store.GetMentions(ctx, docID)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		return fmt.Errorf("staging: load mentions: %w", err)
	}

	now := time.Now().UTC()
	add := func(rels []models.RelationshipStagingRecord, typ models.RelationshipType, from, to models.NodeRef, confidence float64) []models.RelationshipStagingRecord {
		return append(rels, models.RelationshipStagingRecord{
			ID:         relationshipID(docID, typ, from, to),
			DocumentID: docID,
			From:       from,
			To:         to,
			Type:       typ,
			Confidence: confidence,
			CreatedAt:  now,
		})
	}

	var rels []models.RelationshipStagingRecord
	docRef := models.DocumentRef(docID)

	if doc.ProjectID != "" {
		rels = add(rels, models.RelBelongsTo, docRef, models.ProjectRef(doc.ProjectID), 1.0)
	}
	for i, chunk := range chunks {
		rels = add(rels, models.RelBelongsTo, models.ChunkRef(chunk.ID), docRef, 1.0)
		if i+1 < len(chunks) {
			rels = add(rels, models.RelNextChunk, models.ChunkRef(chunk.ID), models.ChunkRef(chunks[i+1].ID), 1.0)
		}
	}
	for _, ent := range entities {
		rels = add(rels, models.RelBelongsTo, models.EntityRef(ent.ID), docRef, ent.Confidence)
	}

	rels = append(rels, cooccurrenceEdges(docID, entities, mentions, now)...)

	if err := w.store.PutRelationships(ctx, docID, rels); err != nil {
		return fmt.Errorf("staging: store relationships: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("document_id", docID.String()).
		Int("relationships", len(rels)).
		Msg("Relationship staging completed")
	return nil
}

// cooccurrenceEdges emits one MENTIONED_WITH edge per unordered entity pair
// that shares at least one chunk. The edge confidence is the lower of the two
// entity confidences; direction is fixed by entity ID order so replays are
// byte-identical.
func cooccurrenceEdges(docID uuid.UUID, entities []models.CanonicalEntity, mentions []models.EntityMention, now time.Time) []models.RelationshipStagingRecord {
	if len(entities) < 2 {
		return nil
	}

	chunkOf := make(map[uuid.UUID]int, len(mentions))
	for _, m := range mentions {
		chunkOf[m.ID] = m.ChunkIndex
	}

	// entity IDs per chunk index
	byChunk := make(map[int][]models.CanonicalEntity)
	for _, ent := range entities {
		seen := make(map[int]bool)
		for _, mid := range ent.MentionIDs {
			idx, ok := chunkOf[mid]
			if !ok || seen[idx] {
				continue
			}
			seen[idx] = true
			byChunk[idx] = append(byChunk[idx], ent)
		}
	}

	type pairKey struct{ a, b uuid.UUID }
	pairs := make(map[pairKey]float64)
	for _, ents := range byChunk {
		sort.Slice(ents, func(i, j int) bool { return ents[i].ID.String() < ents[j].ID.String() })
		for i := 0; i < len(ents); i++ {
			for j := i + 1; j < len(ents); j++ {
				conf := min(ents[i].Confidence, ents[j].Confidence)
				key := pairKey{ents[i].ID, ents[j].ID}
				if prev, ok := pairs[key]; !ok || conf > prev {
					pairs[key] = conf
				}
			}
		}
	}

	rels := make([]models.RelationshipStagingRecord, 0, len(pairs))
	for key, conf := range pairs {
		from, to := models.EntityRef(key.a), models.EntityRef(key.b)
		rels = append(rels, models.RelationshipStagingRecord{
			ID:         relationshipID(docID, models.RelMentionedWith, from, to),
			DocumentID: docID,
			From:       from,
			To:         to,
			Type:       models.RelMentionedWith,
			Confidence: conf,
			CreatedAt:  now,
		})
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].From.ID+rels[i].To.ID < rels[j].From.ID+rels[j].To.ID })
	return rels
}
