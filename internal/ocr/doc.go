// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

// Package ocr talks to the external OCR service. Jobs are asynchronous:
// Submit hands over the blob and returns a job ID; Poll checks progress
// until the job reports completed or failed. The worker persists the job
// handle between polls, so a restart resumes polling instead of
// resubmitting.
package ocr
