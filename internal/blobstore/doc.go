// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package blobstore stores document source blobs and extracted text on the
// local filesystem.
//
// Large immutable payloads stay out of the state store: status records in
// Badger point at blob refs, and the stall monitor checks text presence here
// when deciding whether an OCR stage actually finished its work.
package blobstore
