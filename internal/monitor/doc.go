// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package monitor detects and repairs stalled pipeline stages.
//
// Stages stall two ways: a worker crashes mid-stage and its lease expires
// with the record stuck in processing, or a queued task message is lost (the
// in-process backend does not persist messages, and even JetStream can drop
// a publish in a partition). Both are repaired from durable state alone.
//
// A crashed worker that already wrote its stage output gets its advance
// replayed without re-running the stage: the monitor takes over the expired
// lease and completes the transition itself. Everything else is reset to
// queued and republished. Stage handlers are idempotent and the chain
// controller's advance gate enqueues each successor exactly once, so
// duplicate repairs are harmless.
//
// Each sweep also realigns the Document records' cached stage/status with
// the projection of their per-stage records, which are the source of truth.
package monitor
