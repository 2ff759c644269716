// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package models

import "testing"

func statuses(m map[Stage]StageStatus) map[Stage]*StageStatusRecord {
	out := make(map[Stage]*StageStatusRecord, len(m))
	for stage, status := range m {
		out[stage] = &StageStatusRecord{Stage: stage, Status: status}
	}
	return out
}

func TestDeriveDocumentState(t *testing.T) {
	tests := []struct {
		name        string
		records     map[Stage]StageStatus
		wantStage   Stage
		wantStatus  StageStatus
		wantFailed  Stage
		wantDerived bool
	}{
		{
			name:        "fresh submission",
			records:     map[Stage]StageStatus{StageOCR: StatusQueued},
			wantStage:   StageOCR,
			wantStatus:  StatusQueued,
			wantDerived: true,
		},
		{
			name: "mid pipeline",
			records: map[Stage]StageStatus{
				StageOCR:              StatusCompleted,
				StageChunking:         StatusCompleted,
				StageEntityExtraction: StatusProcessing,
			},
			wantStage:   StageEntityExtraction,
			wantStatus:  StatusProcessing,
			wantDerived: true,
		},
		{
			name: "all completed",
			records: map[Stage]StageStatus{
				StageOCR:                 StatusCompleted,
				StageChunking:            StatusCompleted,
				StageEntityExtraction:    StatusCompleted,
				StageEntityResolution:    StatusCompleted,
				StageRelationshipStaging: StatusCompleted,
			},
			wantStage:   StageCompleted,
			wantStatus:  StatusCompleted,
			wantDerived: true,
		},
		{
			name: "failure wins",
			records: map[Stage]StageStatus{
				StageOCR:      StatusCompleted,
				StageChunking: StatusFailed,
			},
			wantStage:   StageFailed,
			wantStatus:  StatusFailed,
			wantFailed:  StageChunking,
			wantDerived: true,
		},
		{
			name: "gap in the chain",
			records: map[Stage]StageStatus{
				StageOCR:      StatusCompleted,
				StageChunking: StatusNone,
			},
			wantDerived: false,
		},
		{
			name:        "no records",
			records:     map[Stage]StageStatus{},
			wantDerived: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, status, failed, ok := DeriveDocumentState(statuses(tt.records))
			if ok != tt.wantDerived {
				t.Fatalf("ok = %v, want %v", ok, tt.wantDerived)
			}
			if !ok {
				return
			}
			if stage != tt.wantStage || status != tt.wantStatus || failed != tt.wantFailed {
				t.Errorf("derived (%s, %s, %s), want (%s, %s, %s)",
					stage, status, failed, tt.wantStage, tt.wantStatus, tt.wantFailed)
			}
		})
	}
}
