// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package queue provides the per-stage task queue on top of Watermill.
//
// Every work stage has its own topic ("pipeline.ocr", "pipeline.chunking",
// ...) so a slow stage cannot starve the others. Delivery is at-least-once;
// idempotency is the chain controller's job, not the queue's.
//
// Two backends share one wiring surface:
//
//   - GoChannel: in-process pub/sub for the single-binary mode and tests.
//   - NATS JetStream: durable, queue-group balanced consumption for
//     multi-process deployments.
//
// The Router wraps Watermill's router with panic recovery, exponential
// backoff retry, and a poison queue topic for messages that exhaust their
// retries.
package queue
