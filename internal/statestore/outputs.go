// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// Stage outputs. Each write is idempotent: a replayed worker overwrites the
// same key with the same content instead of appending duplicates.

// PutChunks persists the full chunk set of a document in one write.
// Chunks must be ordered by Index.
func (s *Store) PutChunks(ctx context.Context, docID uuid.UUID, chunks []models.Chunk) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, chunksKey(docID), chunks)
	})
}

// GetChunks returns a document's chunks ordered by Index.
func (s *Store) GetChunks(ctx context.Context, docID uuid.UUID) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, chunksKey(docID), &chunks)
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// HasChunks reports whether the chunking stage already produced output.
func (s *Store) HasChunks(ctx context.Context, docID uuid.UUID) (bool, error) {
	return s.hasKey(chunksKey(docID))
}

// PutMentions persists the mentions extracted from one chunk. The per-chunk
// key keeps the extraction fan-out writes independent: concurrent chunk
// workers never touch the same key.
func (s *Store) PutMentions(ctx context.Context, docID uuid.UUID, chunkIndex int, mentions []models.EntityMention) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, mentionsKey(docID, chunkIndex), mentions)
	})
}

// GetMentions returns all mentions for a document across chunks, in chunk
// order (the zero-padded key encodes it).
func (s *Store) GetMentions(ctx context.Context, docID uuid.UUID) ([]models.EntityMention, error) {
	var out []models.EntityMention
	prefix := []byte(mentionsKeyPrefix + docID.String() + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var mentions []models.EntityMention
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &mentions)
			}); err != nil {
				return err
			}
			out = append(out, mentions...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountMentionChunks returns how many chunks have extraction output written.
// The extraction worker compares this with the chunk count to decide whether
// the document-level fan-in is complete.
func (s *Store) CountMentionChunks(ctx context.Context, docID uuid.UUID) (int, error) {
	count := 0
	prefix := []byte(mentionsKeyPrefix + docID.String() + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// PutEntities persists a document's canonical entities (one resolution run's
// full output).
func (s *Store) PutEntities(ctx context.Context, docID uuid.UUID, entities []models.CanonicalEntity) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, entitiesKey(docID), entities)
	})
}

// GetEntities returns a document's canonical entities.
func (s *Store) GetEntities(ctx context.Context, docID uuid.UUID) ([]models.CanonicalEntity, error) {
	var entities []models.CanonicalEntity
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, entitiesKey(docID), &entities)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// HasEntities reports whether the resolution stage already produced output.
func (s *Store) HasEntities(ctx context.Context, docID uuid.UUID) (bool, error) {
	return s.hasKey(entitiesKey(docID))
}

// PutRelationships persists a document's staged relationship records.
func (s *Store) PutRelationships(ctx context.Context, docID uuid.UUID, rels []models.RelationshipStagingRecord) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, relsKey(docID), rels)
	})
}

// GetRelationships returns a document's staged relationship records.
func (s *Store) GetRelationships(ctx context.Context, docID uuid.UUID) ([]models.RelationshipStagingRecord, error) {
	var rels []models.RelationshipStagingRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, relsKey(docID), &rels)
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// HasRelationships reports whether the staging stage already produced output.
func (s *Store) HasRelationships(ctx context.Context, docID uuid.UUID) (bool, error) {
	return s.hasKey(relsKey(docID))
}

// MarkRelationshipsExported flags a document's staged records as drained to
// the graph store.
func (s *Store) MarkRelationshipsExported(ctx context.Context, docID uuid.UUID) error {
	return s.update(func(txn *badger.Txn) error {
		var rels []models.RelationshipStagingRecord
		if err := getJSON(txn, relsKey(docID), &rels); err != nil {
			return err
		}
		for i := range rels {
			rels[i].Exported = true
		}
		return setJSON(txn, relsKey(docID), rels)
	})
}

// PutOCRJob records an in-flight OCR job handle for the polling sub-task.
func (s *Store) PutOCRJob(ctx context.Context, job *models.OCRJob) error {
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, ocrJobKey(job.DocumentID), job)
	})
}

// GetOCRJob returns the OCR job handle for a document.
func (s *Store) GetOCRJob(ctx context.Context, docID uuid.UUID) (*models.OCRJob, error) {
	job := &models.OCRJob{}
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, ocrJobKey(docID), job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteOCRJob removes a finished OCR job handle.
func (s *Store) DeleteOCRJob(ctx context.Context, docID uuid.UUID) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete(ocrJobKey(docID))
	})
}

// ScanOCRJobs iterates pending OCR job handles for the polling sub-task.
func (s *Store) ScanOCRJobs(ctx context.Context, fn func(*models.OCRJob) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ocrJobKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			job := &models.OCRJob{}
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, job)
			}); err != nil {
				return err
			}
			if err := fn(job); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteStageOutputs removes the persisted output of one work stage, so a
// reprocessed document cannot present a prior pass's output as current.
func (s *Store) DeleteStageOutputs(ctx context.Context, docID uuid.UUID, stage models.Stage) error {
	switch stage {
	case models.StageChunking:
		return s.update(func(txn *badger.Txn) error {
			return txn.Delete(chunksKey(docID))
		})
	case models.StageEntityExtraction:
		prefix := []byte(mentionsKeyPrefix + docID.String() + ":")
		var keys [][]byte
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			return nil
		})
		if err != nil {
			return err
		}
		return s.update(func(txn *badger.Txn) error {
			for _, key := range keys {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
	case models.StageEntityResolution:
		return s.update(func(txn *badger.Txn) error {
			return txn.Delete(entitiesKey(docID))
		})
	case models.StageRelationshipStaging:
		return s.update(func(txn *badger.Txn) error {
			return txn.Delete(relsKey(docID))
		})
	default:
		// OCR output lives in the blob store and is rewritten wholesale.
		return nil
	}
}

// hasKey reports key existence without reading the value.
func (s *Store) hasKey(key []byte) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			found = true
			return nil
		}
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	return found, err
}
