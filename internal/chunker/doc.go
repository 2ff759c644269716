// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package chunker splits cleaned document text into contiguous chunks.
//
// Unlike overlap-based chunkers tuned for embedding recall, this splitter
// keeps chunks disjoint and offset-exact: the concatenation of all chunk
// texts is byte-for-byte the input. Entity mention offsets recorded against
// a chunk can therefore be mapped back into the document with plain addition.
package chunker
