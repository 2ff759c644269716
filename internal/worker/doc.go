// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package worker executes pipeline stages off the task queue.
//
// Every stage follows the same frame: acquire the stage lease through the
// chain controller, do the work, persist output idempotently, then advance
// under the lease. A handler never nacks for domain failures; those are
// recorded in the state store via Fail, and the message is acked so the
// broker does not fight the controller's own retry accounting. Nacks are
// reserved for infrastructure errors (state store unavailable) where
// redelivery is the right recovery.
//
// The OCR stage is split: the queue handler submits the job and persists a
// handle, and the poller service drives it to completion, renewing the
// stage lease between polls.
package worker
