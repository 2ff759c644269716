// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// Default sizes, in bytes of UTF-8 text.
const (
	DefaultTargetSize = 2000
	DefaultMaxSize    = 4000
)

// Splitter chunks text at paragraph boundaries near a target size.
type Splitter struct {
	targetSize int
	maxSize    int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithTargetSize sets the preferred chunk size.
func WithTargetSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.targetSize = size
		}
	}
}

// WithMaxSize sets the hard upper bound on chunk size.
func WithMaxSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// New creates a Splitter.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		targetSize: DefaultTargetSize,
		maxSize:    DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSize < s.targetSize {
		s.maxSize = s.targetSize
	}
	return s
}

// Split chunks text for a document. Cut points prefer, in order: a paragraph
// break past the target size, a sentence end, any whitespace, and finally a
// hard cut at the max size (with a rune-boundary adjustment so multi-byte
// characters are never split). Empty text yields no chunks.
func (s *Splitter) Split(docID uuid.UUID, text string) []models.Chunk {
	if text == "" {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for start < len(text) {
		end := s.cutPoint(text, start)
		chunks = append(chunks, models.Chunk{
			ID:          uuid.New(),
			DocumentID:  docID,
			Index:       len(chunks),
			StartOffset: start,
			EndOffset:   end,
			Text:        text[start:end],
		})
		start = end
	}
	return chunks
}

// cutPoint returns the exclusive end offset of the chunk beginning at start.
func (s *Splitter) cutPoint(text string, start int) int {
	remaining := len(text) - start
	if remaining <= s.maxSize {
		return len(text)
	}

	window := text[start : start+s.maxSize]

	// Paragraph break at or past the target size.
	if idx := strings.Index(window[s.targetSize:], "\n\n"); idx >= 0 {
		return start + s.targetSize + idx + len("\n\n")
	}
	// Last paragraph break before the target.
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return start + idx + len("\n\n")
	}
	// Last sentence end in the window.
	if idx := lastSentenceEnd(window); idx > 0 {
		return start + idx
	}
	// Any whitespace.
	if idx := strings.LastIndexAny(window, " \t\n"); idx > 0 {
		return start + idx + 1
	}
	// Hard cut, backed up to a rune boundary.
	end := start + s.maxSize
	for end > start && !utf8RuneStart(text[end]) {
		end--
	}
	if end == start {
		end = start + s.maxSize
	}
	return end
}

// lastSentenceEnd returns the offset just past the last ". ", "? " or "! "
// in window, or 0.
func lastSentenceEnd(window string) int {
	best := 0
	for _, sep := range []string{". ", "? ", "! ", ".\n", "?\n", "!\n"} {
		if idx := strings.LastIndex(window, sep); idx >= 0 && idx+len(sep) > best {
			best = idx + len(sep)
		}
	}
	return best
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
