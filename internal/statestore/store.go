// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package statestore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// Sentinel errors returned by the store.
var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("statestore: not found")

	// ErrCASMismatch indicates a conditional update's precondition failed.
	ErrCASMismatch = errors.New("statestore: compare-and-swap precondition failed")

	// ErrLeaseHeld indicates an unexpired lease is held by another worker.
	ErrLeaseHeld = errors.New("statestore: lease held")

	// ErrStaleLease indicates the presented lease token no longer owns the record.
	ErrStaleLease = errors.New("statestore: stale lease")
)

// Key prefixes for BadgerDB storage.
const (
	docKeyPrefix      = "doc:"
	statusKeyPrefix   = "status:"
	chunksKeyPrefix   = "chunks:"
	mentionsKeyPrefix = "mentions:"
	entitiesKeyPrefix = "entities:"
	relsKeyPrefix     = "rels:"
	ocrJobKeyPrefix   = "ocrjob:"
)

// casRetries bounds retry attempts on Badger transaction conflicts. Conflicts
// mean another worker raced us on the same key; the retried transaction
// re-reads and re-checks its precondition.
const casRetries = 5

// Store is the Badger-backed state store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logger is too chatty; pipeline logs cover it
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral in-memory store. Used in tests and by the
// embedded single-binary mode when no data directory is configured.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying Badger handle for maintenance tasks (GC).
func (s *Store) DB() *badger.DB { return s.db }

func docKey(id uuid.UUID) []byte {
	return []byte(docKeyPrefix + id.String())
}

func statusKey(id uuid.UUID, stage models.Stage) []byte {
	return []byte(statusKeyPrefix + id.String() + ":" + string(stage))
}

func chunksKey(id uuid.UUID) []byte {
	return []byte(chunksKeyPrefix + id.String())
}

func mentionsKey(id uuid.UUID, chunkIndex int) []byte {
	return []byte(fmt.Sprintf("%s%s:%06d", mentionsKeyPrefix, id.String(), chunkIndex))
}

func entitiesKey(id uuid.UUID) []byte {
	return []byte(entitiesKeyPrefix + id.String())
}

func relsKey(id uuid.UUID) []byte {
	return []byte(relsKeyPrefix + id.String())
}

func ocrJobKey(id uuid.UUID) []byte {
	return []byte(ocrJobKeyPrefix + id.String())
}

// getJSON reads and unmarshals a single key inside a view transaction.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return unmarshal(val, out)
	})
}

// setJSON marshals and writes a single key inside an update transaction.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// update runs fn in a Badger update transaction, retrying on commit conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < casRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
