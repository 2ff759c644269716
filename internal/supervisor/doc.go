// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package supervisor builds the suture supervision tree for the pipeline
// process.
//
// The tree has three layers for failure isolation:
//   - pipeline: the queue router, the OCR poller, and the stall monitor
//   - export: the graph exporter (optional)
//   - api: the HTTP server
//
// A crash in the export layer restarts only the exporter; workers keep
// draining stages and the API keeps serving.
package supervisor
