// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentType is the detected source format of a document.
type DocumentType string

// Supported document types.
const (
	DocTypePDF     DocumentType = "pdf"
	DocTypeDOCX    DocumentType = "docx"
	DocTypeImage   DocumentType = "image"
	DocTypeUnknown DocumentType = "unknown"
)

// DetectDocumentType infers a DocumentType from a blob reference's extension.
func DetectDocumentType(blobRef string) DocumentType {
	ref := strings.ToLower(blobRef)
	switch {
	case strings.HasSuffix(ref, ".pdf"):
		return DocTypePDF
	case strings.HasSuffix(ref, ".docx"), strings.HasSuffix(ref, ".doc"):
		return DocTypeDOCX
	case strings.HasSuffix(ref, ".png"), strings.HasSuffix(ref, ".jpg"),
		strings.HasSuffix(ref, ".jpeg"), strings.HasSuffix(ref, ".tif"),
		strings.HasSuffix(ref, ".tiff"):
		return DocTypeImage
	default:
		return DocTypeUnknown
	}
}

// Document is the unit of work flowing through the pipeline. Created on
// intake; mutated only by the stage worker currently holding its lease; never
// deleted, only terminal-flagged.
//
// Stage and Status are a derived cache of the StageStatusRecords: the records
// are the single source of truth and the stall monitor repairs any divergence.
type Document struct {
	ID           uuid.UUID         `json:"id"`
	BlobRef      string            `json:"blob_ref"`
	ProjectID    string            `json:"project_id,omitempty"`
	DetectedType DocumentType      `json:"detected_type"`
	Stage        Stage             `json:"stage"`
	Status       StageStatus       `json:"status"`
	ErrorDetail  string            `json:"error_detail,omitempty"`
	FailedStage  Stage             `json:"failed_stage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewDocument creates a document record entering the pipeline at intake.
func NewDocument(blobRef, projectID string, metadata map[string]string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:           uuid.New(),
		BlobRef:      blobRef,
		ProjectID:    projectID,
		DetectedType: DetectDocumentType(blobRef),
		Stage:        StageIntake,
		Status:       StatusQueued,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks required fields.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return fmt.Errorf("id: required")
	}
	if d.BlobRef == "" {
		return fmt.Errorf("blob_ref: required")
	}
	if !d.Stage.Valid() {
		return fmt.Errorf("stage: unknown stage %q", d.Stage)
	}
	return nil
}

// Terminal reports whether the document has reached a terminal state.
func (d *Document) Terminal() bool {
	return d.Stage.Terminal()
}
