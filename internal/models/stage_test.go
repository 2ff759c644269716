// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Stage
		to   Stage
		want bool
	}{
		{"intake to ocr", StageIntake, StageOCR, true},
		{"ocr to chunking", StageOCR, StageChunking, true},
		{"chunking to extraction", StageChunking, StageEntityExtraction, true},
		{"extraction to resolution", StageEntityExtraction, StageEntityResolution, true},
		{"resolution to staging", StageEntityResolution, StageRelationshipStaging, true},
		{"staging to completed", StageRelationshipStaging, StageCompleted, true},
		{"any non-terminal to failed", StageChunking, StageFailed, true},
		{"intake to failed", StageIntake, StageFailed, true},
		{"no skipping", StageOCR, StageEntityExtraction, false},
		{"no going backward", StageEntityResolution, StageChunking, false},
		{"completed is terminal", StageCompleted, StageOCR, false},
		{"completed cannot fail", StageCompleted, StageFailed, false},
		{"failed is terminal", StageFailed, StageOCR, false},
		{"failed cannot re-fail", StageFailed, StageFailed, false},
		{"unknown from", Stage("bogus"), StageOCR, false},
		{"unknown to", StageOCR, Stage("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStage_Next_CoversTotalOrder(t *testing.T) {
	order := []Stage{
		StageIntake, StageOCR, StageChunking, StageEntityExtraction,
		StageEntityResolution, StageRelationshipStaging, StageCompleted,
	}
	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Next()
		if !ok {
			t.Fatalf("%s: expected a next stage", order[i])
		}
		if next != order[i+1] {
			t.Errorf("%s.Next() = %s, want %s", order[i], next, order[i+1])
		}
	}
	if _, ok := StageCompleted.Next(); ok {
		t.Error("completed should have no next stage")
	}
	if _, ok := StageFailed.Next(); ok {
		t.Error("failed should have no next stage")
	}
}

func TestStage_IsWorkStage(t *testing.T) {
	for _, s := range WorkStages {
		if !s.IsWorkStage() {
			t.Errorf("%s should be a work stage", s)
		}
	}
	for _, s := range []Stage{StageIntake, StageCompleted, StageFailed} {
		if s.IsWorkStage() {
			t.Errorf("%s should not be a work stage", s)
		}
	}
}

func TestStage_Topic(t *testing.T) {
	if got := StageOCR.Topic(); got != "pipeline.ocr" {
		t.Errorf("Topic() = %q, want pipeline.ocr", got)
	}
}
