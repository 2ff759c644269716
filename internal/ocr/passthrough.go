// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package ocr

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PassthroughClient treats blobs as already-extracted UTF-8 text: Submit
// "completes" the job immediately and Poll returns the text. Used when no
// OCR service is configured, for plain-text intake, and in tests.
type PassthroughClient struct {
	mu   sync.Mutex
	jobs map[string]*JobStatus
}

// NewPassthroughClient creates a PassthroughClient.
func NewPassthroughClient() *PassthroughClient {
	return &PassthroughClient{jobs: make(map[string]*JobStatus)}
}

// Submit validates the blob as UTF-8 and records an already-completed job.
func (p *PassthroughClient) Submit(ctx context.Context, docID uuid.UUID, contentType string, blob []byte) (string, error) {
	if !utf8.Valid(blob) {
		return "", fmt.Errorf("passthrough ocr: blob for %s is not valid UTF-8 text", docID)
	}
	jobID := "local-" + docID.String()
	p.mu.Lock()
	p.jobs[jobID] = &JobStatus{
		JobID: jobID,
		State: JobCompleted,
		Text:  string(blob),
	}
	p.mu.Unlock()
	return jobID, nil
}

// Poll returns the recorded job status.
func (p *PassthroughClient) Poll(ctx context.Context, jobID string) (*JobStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return status, nil
}
