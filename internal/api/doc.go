// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package api provides the HTTP surface of the pipeline: document
// submission and retrieval, operator controls, health, and metrics.
package api
