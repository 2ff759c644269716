// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package resolve clusters entity mentions into canonical entities.
//
// Resolution is deterministic: the same mention set always produces the same
// clusters, canonical names, and entity IDs, so re-running the stage after a
// crash overwrites its previous output byte-for-byte. Clustering is scoped to
// a single document; cross-document identity lives in the graph export, keyed
// by the same deterministic entity IDs.
package resolve
