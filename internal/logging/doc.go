// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package logging provides centralized zerolog-based logging for the pipeline.
//
// A single global logger is configured once at startup and shared by every
// component:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("document_id", id).Msg("Document submitted")
//
// Context-aware logging propagates a correlation ID (typically the document
// UUID) through stage workers:
//
//	ctx = logging.ContextWithCorrelationID(ctx, docID)
//	logging.Ctx(ctx).Info().Str("stage", "ocr").Msg("Stage started")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated chain is
// never emitted.
package logging
