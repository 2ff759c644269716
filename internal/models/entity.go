// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityType is the closed set of entity mention types the extraction model
// may emit.
type EntityType string

// Entity types.
const (
	EntityPerson   EntityType = "PERSON"
	EntityOrg      EntityType = "ORG"
	EntityDate     EntityType = "DATE"
	EntityLocation EntityType = "LOCATION"
	EntityMoney    EntityType = "MONEY"
	EntityCitation EntityType = "CITATION"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityOrg, EntityDate, EntityLocation, EntityMoney, EntityCitation:
		return true
	}
	return false
}

// EntityMention is one occurrence of an entity in a chunk, as emitted by the
// extraction model. Created by the entity-extraction stage; immutable.
type EntityMention struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	ChunkID    uuid.UUID  `json:"chunk_id"`
	ChunkIndex int        `json:"chunk_index"`
	Value      string     `json:"value"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
	// Start and End are the character span within the chunk text; End is
	// exclusive.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate checks required fields and ranges.
func (m *EntityMention) Validate() error {
	if m.Value == "" {
		return fmt.Errorf("value: required")
	}
	if !m.Type.Valid() {
		return fmt.Errorf("type: unknown entity type %q", m.Type)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence: %f out of range [0,1]", m.Confidence)
	}
	if m.End < m.Start {
		return fmt.Errorf("span: end %d before start %d", m.End, m.Start)
	}
	return nil
}

// CanonicalEntity is the deduplicated representation of one or more mentions
// referring to the same real-world thing. Created only by the
// entity-resolution stage; a cluster is never split once created within a
// single resolution run.
type CanonicalEntity struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	// Name is the canonical display name: the most frequent exact surface
	// form among members, ties broken by longest string.
	Name       string      `json:"name"`
	Type       EntityType  `json:"type"`
	MentionIDs []uuid.UUID `json:"mention_ids"`
	// Confidence is the mean of member mention confidences.
	Confidence float64 `json:"confidence"`
}

// MentionCount returns the number of member mentions.
func (e *CanonicalEntity) MentionCount() int { return len(e.MentionIDs) }

// Validate checks the ≥1-member invariant.
func (e *CanonicalEntity) Validate() error {
	if len(e.MentionIDs) == 0 {
		return fmt.Errorf("mention_ids: canonical entity must have at least one member")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("type: unknown entity type %q", e.Type)
	}
	return nil
}
