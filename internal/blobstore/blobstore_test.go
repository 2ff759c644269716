// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package blobstore

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestPutGetRoundtrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := s.PutBytes("intake/complaint.pdf", []byte("pdf bytes")); err != nil {
		t.Fatalf("PutBytes() error = %v", err)
	}

	got, err := s.GetBytes("intake/complaint.pdf")
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if string(got) != "pdf bytes" {
		t.Errorf("GetBytes() = %q, want %q", got, "pdf bytes")
	}

	ok, err := s.Has("intake/complaint.pdf")
	if err != nil || !ok {
		t.Errorf("Has() = %v, %v, want true, nil", ok, err)
	}
}

func TestGetMissing(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.GetBytes("nope.bin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBytes(missing) error = %v, want ErrNotFound", err)
	}
	ok, err := s.Has("nope.bin")
	if err != nil || ok {
		t.Errorf("Has(missing) = %v, %v, want false, nil", ok, err)
	}
}

func TestRefEscapeRejected(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, ref := range []string{"../outside.txt", "/etc/passwd", "a/../../b", ""} {
		if err := s.PutBytes(ref, []byte("x")); err == nil {
			t.Errorf("PutBytes(%q) accepted escaping ref", ref)
		}
	}
}

func TestPutOverwrites(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.PutBytes("a.txt", []byte("v1")); err != nil {
		t.Fatalf("PutBytes() error = %v", err)
	}
	if err := s.PutBytes("a.txt", []byte("v2")); err != nil {
		t.Fatalf("PutBytes() overwrite error = %v", err)
	}
	got, _ := s.GetBytes("a.txt")
	if string(got) != "v2" {
		t.Errorf("GetBytes() = %q, want v2", got)
	}
}

func TestTextHelpers(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	docID := uuid.New()

	ok, err := s.HasText(docID)
	if err != nil || ok {
		t.Errorf("HasText() before put = %v, %v", ok, err)
	}

	if err := s.PutText(docID, "extracted text"); err != nil {
		t.Fatalf("PutText() error = %v", err)
	}
	got, err := s.GetText(docID)
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if got != "extracted text" {
		t.Errorf("GetText() = %q", got)
	}
	ok, _ = s.HasText(docID)
	if !ok {
		t.Error("HasText() after put = false")
	}
}

func TestDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.PutBytes("a.txt", []byte("x")); err != nil {
		t.Fatalf("PutBytes() error = %v", err)
	}
	if err := s.Delete("a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete("a.txt"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}
