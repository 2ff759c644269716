// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package extract pulls entity mentions out of document chunks.
//
// Two extractors exist: an LLM-backed one for production quality and a
// regex one usable offline. Both emit mentions with chunk-relative spans;
// mentions outside the chunk bounds or below the confidence floor are
// dropped before they reach the store.
package extract
