// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package models defines the core data model of the pipeline: documents,
// chunks, entity mentions, canonical entities, relationship staging records,
// per-stage status records, and the stage state machine.
//
// All types here are plain data. Persistence lives in internal/statestore and
// behavior lives in internal/pipeline; this package only encodes the shapes
// and the invariants that can be checked without I/O.
package models
