// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package pipeline implements the chain controller: the single authority for
// moving documents through the stage sequence.
//
// Every stage transition funnels through the state store's CAS primitives.
// A worker starts a stage by acquiring a TTL lease, does its work, persists
// its output, then calls Advance with its lease token. Advance atomically
// completes the stage and queues the next one; the task message is published
// only after the durable status write (write-then-enqueue), so a lost message
// is always recoverable from state alone. An advance presented with a stale
// token is a no-op: the lease was reclaimed and someone else owns the result.
package pipeline
