// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package ocr

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of an OCR job.
type JobState string

// Job states.
const (
	JobPending   JobState = "pending"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is one poll result.
type JobStatus struct {
	JobID string   `json:"job_id"`
	State JobState `json:"state"`
	// Text holds the extracted document text once State is completed.
	Text string `json:"text,omitempty"`
	// Detail carries the failure reason when State is failed.
	Detail string `json:"detail,omitempty"`
}

// ErrJobNotFound means the service no longer knows the job ID. The only
// recovery is resubmission.
var ErrJobNotFound = errors.New("ocr: job not found")

// Client submits and polls OCR jobs.
type Client interface {
	// Submit starts OCR for a blob and returns the service's job ID.
	Submit(ctx context.Context, docID uuid.UUID, contentType string, blob []byte) (string, error)

	// Poll fetches the current status of a job.
	Poll(ctx context.Context, jobID string) (*JobStatus, error)
}
