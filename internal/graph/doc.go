// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package graph drains staged relationship records into a Neo4j-compatible
// graph database over the Bolt protocol.
//
// Export sits outside the pipeline chain: documents complete without it, and
// the exporter sweeps completed documents for records not yet marked
// exported. Every write is a MERGE keyed on the deterministic record ID, so
// a crash between the Bolt commit and the exported-flag write just replays
// onto existing nodes and edges.
package graph
