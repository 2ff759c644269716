// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package middleware provides HTTP middleware shared by the API router:
// request ID propagation tied into the logging package, and Prometheus
// request instrumentation.
package middleware
