// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskSchemaVersion is the current task message schema version.
// Increment on breaking changes to TaskMessage.
const TaskSchemaVersion = 1

// Per-stage task inputs. Each work stage has its own input type so a worker
// cannot be handed a payload shape it does not expect; the full prior-stage
// output is always fetched from the state store, never carried in the message.

// OCRTaskInput is the input to the ocr stage.
type OCRTaskInput struct {
	BlobRef string `json:"blob_ref"`
}

// ChunkingTaskInput is the input to the chunking stage.
type ChunkingTaskInput struct{}

// ExtractionTaskInput is the input to the entity_extraction stage.
type ExtractionTaskInput struct {
	// ChunkCount lets the worker cheaply verify the chunk set loaded from the
	// store is complete before fanning out.
	ChunkCount int `json:"chunk_count"`
}

// ResolutionTaskInput is the input to the entity_resolution stage.
type ResolutionTaskInput struct{}

// StagingTaskInput is the input to the relationship_staging stage.
type StagingTaskInput struct{}

// TaskMessage is the queue message for one unit of stage work. It carries the
// document UUID plus the minimal typed input for exactly one stage; the Stage
// field is the variant tag.
type TaskMessage struct {
	SchemaVersion int       `json:"schema_version"`
	DocumentID    uuid.UUID `json:"document_id"`
	Stage         Stage     `json:"stage"`
	Attempt       int       `json:"attempt"`
	EnqueuedAt    time.Time `json:"enqueued_at"`

	OCR        *OCRTaskInput        `json:"ocr,omitempty"`
	Chunking   *ChunkingTaskInput   `json:"chunking,omitempty"`
	Extraction *ExtractionTaskInput `json:"extraction,omitempty"`
	Resolution *ResolutionTaskInput `json:"resolution,omitempty"`
	Staging    *StagingTaskInput    `json:"staging,omitempty"`
}

// NewTaskMessage creates a task message for the given stage. The caller sets
// the stage-specific input field before publishing.
func NewTaskMessage(docID uuid.UUID, stage Stage, attempt int) *TaskMessage {
	return &TaskMessage{
		SchemaVersion: TaskSchemaVersion,
		DocumentID:    docID,
		Stage:         stage,
		Attempt:       attempt,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// Validate checks that the message targets a work stage and that exactly the
// matching input variant is set.
func (m *TaskMessage) Validate() error {
	if m.DocumentID == uuid.Nil {
		return fmt.Errorf("document_id: required")
	}
	if !m.Stage.IsWorkStage() {
		return fmt.Errorf("stage: %q is not a work stage", m.Stage)
	}

	set := map[Stage]bool{
		StageOCR:                 m.OCR != nil,
		StageChunking:            m.Chunking != nil,
		StageEntityExtraction:    m.Extraction != nil,
		StageEntityResolution:    m.Resolution != nil,
		StageRelationshipStaging: m.Staging != nil,
	}
	for stage, present := range set {
		if stage == m.Stage && !present {
			return fmt.Errorf("input: missing %s payload", stage)
		}
		if stage != m.Stage && present {
			return fmt.Errorf("input: unexpected %s payload on %s message", stage, m.Stage)
		}
	}
	return nil
}
