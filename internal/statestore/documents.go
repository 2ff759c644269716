// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// PutDocument writes a document record.
func (s *Store) PutDocument(ctx context.Context, doc *models.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	return s.update(func(txn *badger.Txn) error {
		return setJSON(txn, docKey(doc.ID), doc)
	})
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, docKey(id), doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument applies mutate to a document inside one transaction.
// The document's Stage/Status fields are a derived cache of the status
// records; only the pipeline and the stall monitor should call this.
func (s *Store) UpdateDocument(ctx context.Context, id uuid.UUID, mutate func(*models.Document)) (*models.Document, error) {
	var out *models.Document
	err := s.update(func(txn *badger.Txn) error {
		doc := &models.Document{}
		if err := getJSON(txn, docKey(id), doc); err != nil {
			return err
		}
		mutate(doc)
		doc.UpdatedAt = time.Now().UTC()
		out = doc
		return setJSON(txn, docKey(id), doc)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListDocuments iterates all documents. Used by the operational API.
func (s *Store) ListDocuments(ctx context.Context, fn func(*models.Document) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc := &models.Document{}
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, doc)
			}); err != nil {
				return err
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	})
}
