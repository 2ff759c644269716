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

// NodeKind identifies which table a relationship endpoint lives in.
type NodeKind string

// Node kinds.
const (
	NodeDocument NodeKind = "document"
	NodeChunk    NodeKind = "chunk"
	NodeProject  NodeKind = "project"
	NodeEntity   NodeKind = "entity"
)

// RelationshipType is the label on a staged edge.
type RelationshipType string

// Relationship types. BELONGS_TO and NEXT_CHUNK are structural;
// MENTIONED_WITH is a co-occurrence edge between canonical entities sharing a
// chunk.
const (
	RelBelongsTo     RelationshipType = "BELONGS_TO"
	RelNextChunk     RelationshipType = "NEXT_CHUNK"
	RelMentionedWith RelationshipType = "MENTIONED_WITH"
)

// NodeRef is one endpoint of a staged relationship.
type NodeRef struct {
	Kind NodeKind `json:"kind"`
	// ID is the node's UUID for documents, chunks and entities; projects use
	// the external project identifier as-is.
	ID string `json:"id"`
}

// DocumentRef returns a NodeRef for a document.
func DocumentRef(id uuid.UUID) NodeRef { return NodeRef{Kind: NodeDocument, ID: id.String()} }

// ChunkRef returns a NodeRef for a chunk.
func ChunkRef(id uuid.UUID) NodeRef { return NodeRef{Kind: NodeChunk, ID: id.String()} }

// ProjectRef returns a NodeRef for a project.
func ProjectRef(id string) NodeRef { return NodeRef{Kind: NodeProject, ID: id} }

// EntityRef returns a NodeRef for a canonical entity.
func EntityRef(id uuid.UUID) NodeRef { return NodeRef{Kind: NodeEntity, ID: id.String()} }

// RelationshipStagingRecord is a directed edge awaiting export to the graph
// store. Created by the relationship-staging stage; immutable.
type RelationshipStagingRecord struct {
	ID         uuid.UUID        `json:"id"`
	DocumentID uuid.UUID        `json:"document_id"`
	From       NodeRef          `json:"from"`
	To         NodeRef          `json:"to"`
	Type       RelationshipType `json:"type"`
	Confidence float64          `json:"confidence"`
	CreatedAt  time.Time        `json:"created_at"`
	// Exported marks records already drained to the graph store.
	Exported bool `json:"exported,omitempty"`
}

// Validate checks endpoint and type fields.
func (r *RelationshipStagingRecord) Validate() error {
	if r.From.ID == "" || r.To.ID == "" {
		return fmt.Errorf("endpoints: required")
	}
	switch r.Type {
	case RelBelongsTo, RelNextChunk, RelMentionedWith:
	default:
		return fmt.Errorf("type: unknown relationship type %q", r.Type)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence: %f out of range [0,1]", r.Confidence)
	}
	return nil
}
