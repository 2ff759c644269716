// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

// Stage is one named step of the pipeline. Stages form a strict total order
// plus the failure edge; there is no skipping and no going backward except via
// operator-triggered reprocessing.
type Stage string

// Pipeline stages in order, plus the two terminal states.
const (
	StageIntake              Stage = "intake"
	StageOCR                 Stage = "ocr"
	StageChunking            Stage = "chunking"
	StageEntityExtraction    Stage = "entity_extraction"
	StageEntityResolution    Stage = "entity_resolution"
	StageRelationshipStaging Stage = "relationship_staging"
	StageCompleted           Stage = "completed"
	StageFailed              Stage = "failed"
)

// WorkStages lists the stages that have a queue topic and a worker, in
// execution order. Intake and the terminal states are not work stages.
var WorkStages = []Stage{
	StageOCR,
	StageChunking,
	StageEntityExtraction,
	StageEntityResolution,
	StageRelationshipStaging,
}

// stageOrder maps each non-terminal stage to its position in the total order.
var stageOrder = map[Stage]int{
	StageIntake:              0,
	StageOCR:                 1,
	StageChunking:            2,
	StageEntityExtraction:    3,
	StageEntityResolution:    4,
	StageRelationshipStaging: 5,
	StageCompleted:           6,
}

// String returns the stage name.
func (s Stage) String() string { return string(s) }

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	if s == StageFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// Terminal reports whether s is a terminal state.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// IsWorkStage reports whether s has a queue topic and a worker.
func (s Stage) IsWorkStage() bool {
	for _, w := range WorkStages {
		if s == w {
			return true
		}
	}
	return false
}

// Next returns the stage that follows s in the total order.
// Returns false for terminal states and unknown stages.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageIntake:
		return StageOCR, true
	case StageOCR:
		return StageChunking, true
	case StageChunking:
		return StageEntityExtraction, true
	case StageEntityExtraction:
		return StageEntityResolution, true
	case StageEntityResolution:
		return StageRelationshipStaging, true
	case StageRelationshipStaging:
		return StageCompleted, true
	default:
		return "", false
	}
}

// CanTransition reports whether from→to is an allowed transition: the single
// forward edge in the total order, or the failure edge from any non-terminal
// stage. Terminal states allow no outgoing transitions; re-entry after failure
// goes through operator reprocessing, not through this table.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return from.Valid()
	}
	next, ok := from.Next()
	return ok && to == next
}

// Topic returns the queue topic for a work stage, e.g. "pipeline.ocr".
func (s Stage) Topic() string {
	return "pipeline." + string(s)
}
