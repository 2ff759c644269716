// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package statestore is the durable key/value store underneath the pipeline:
// documents, per-document-per-stage status records, TTL leases, and the
// persisted output of every stage (chunks, mentions, canonical entities,
// relationship staging records, OCR job handles).
//
// Backed by BadgerDB. All mutations are single-key conditional updates inside
// Badger transactions; there are no multi-document transactions, which is
// what allows horizontal scaling of workers without a central lock manager.
// Status and lease travel in one record, so ownership and state change
// atomically together.
//
// Key layout:
//
//	doc:<document-uuid>                  Document
//	status:<document-uuid>:<stage>       StageStatusRecord
//	chunks:<document-uuid>               []Chunk
//	mentions:<document-uuid>:<index>     []EntityMention (per chunk)
//	entities:<document-uuid>             []CanonicalEntity
//	rels:<document-uuid>                 []RelationshipStagingRecord
//	ocrjob:<document-uuid>               OCRJob
package statestore
