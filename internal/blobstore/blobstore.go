// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound means no blob exists under the given ref.
var ErrNotFound = errors.New("blobstore: not found")

// Store is a filesystem blob store rooted at a single directory. Refs are
// slash-separated relative paths; path escapes are rejected.
type Store struct {
	root string
}

// Open creates the root directory if needed and returns a Store.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// resolve maps a ref to an absolute path, rejecting traversal.
func (s *Store) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("blobstore: empty ref")
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("blobstore: ref %q escapes the store root", ref)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes a blob under ref, replacing any existing content. The write
// goes to a temp file first and renames into place so readers never see a
// partial blob.
func (s *Store) Put(ref string, r io.Reader) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize blob: %w", err)
	}
	return nil
}

// PutBytes writes a blob from a byte slice.
func (s *Store) PutBytes(ref string, data []byte) error {
	return s.Put(ref, bytes.NewReader(data))
}

// Get opens a blob for reading.
func (s *Store) Get(ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// GetBytes reads a whole blob.
func (s *Store) GetBytes(ref string) ([]byte, error) {
	rc, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Has reports whether a blob exists under ref.
func (s *Store) Has(ref string) (bool, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *Store) Delete(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// TextRef is the well-known ref for a document's extracted text.
func TextRef(docID uuid.UUID) string {
	return "text/" + docID.String() + ".txt"
}

// PutText stores the extracted text for a document.
func (s *Store) PutText(docID uuid.UUID, text string) error {
	return s.Put(TextRef(docID), strings.NewReader(text))
}

// GetText reads a document's extracted text.
func (s *Store) GetText(docID uuid.UUID) (string, error) {
	data, err := s.GetBytes(TextRef(docID))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HasText reports whether extracted text exists for a document.
func (s *Store) HasText(docID uuid.UUID) (bool, error) {
	return s.Has(TextRef(docID))
}
