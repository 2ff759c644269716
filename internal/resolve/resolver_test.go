// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package resolve

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

func mention(docID uuid.UUID, value string, t models.EntityType, conf float64) models.EntityMention {
	return models.EntityMention{
		ID:         uuid.New(),
		DocumentID: docID,
		Value:      value,
		Type:       t,
		Confidence: conf,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		value string
		typ   models.EntityType
		want  string
	}{
		{"lowercase and trim", "  John Smith ", models.EntityPerson, "john smith"},
		{"person suffix dropped", "John Smith Jr.", models.EntityPerson, "john smith"},
		{"esquire dropped", "Jane Doe, Esq.", models.EntityPerson, "jane doe"},
		{"llc dots", "Acme Holdings L.L.C.", models.EntityOrg, "acme holdings llc"},
		{"llc plain", "Acme Holdings LLC", models.EntityOrg, "acme holdings llc"},
		{"incorporated", "Widget Incorporated", models.EntityOrg, "widget inc"},
		{"long llc form", "Acme Limited Liability Company", models.EntityOrg, "acme llc"},
		{"ampersand vs and", "Smith and Jones Corp.", models.EntityOrg, "smith & jones corp"},
		{"whitespace collapse", "First   National\tBank", models.EntityOrg, "first national bank"},
		{"date unchanged", "January 5, 2024", models.EntityDate, "january 5 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.value, tt.typ); got != tt.want {
				t.Errorf("Normalize(%q, %s) = %q, want %q", tt.value, tt.typ, got, tt.want)
			}
		})
	}
}

func TestJaroWinkler(t *testing.T) {
	if got := jaroWinkler("martha", "martha"); got != 1.0 {
		t.Errorf("identical strings = %v, want 1.0", got)
	}
	if got := jaroWinkler("", "martha"); got != 0.0 {
		t.Errorf("empty vs non-empty = %v, want 0.0", got)
	}
	got := jaroWinkler("martha", "marhta")
	if got < 0.95 || got >= 1.0 {
		t.Errorf("martha/marhta = %v, want in [0.95, 1.0)", got)
	}
	if sim := jaroWinkler("acme corp", "zenith ltd"); sim > 0.6 {
		t.Errorf("dissimilar strings = %v, want low", sim)
	}
}

func TestResolveMergesEquivalentOrgs(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	mentions := []models.EntityMention{
		mention(docID, "Acme Holdings LLC", models.EntityOrg, 0.9),
		mention(docID, "Acme Holdings, L.L.C.", models.EntityOrg, 0.8),
		mention(docID, "Zenith Partners LP", models.EntityOrg, 0.95),
	}

	entities := r.Resolve(docID, mentions)
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2", len(entities))
	}

	var acme *models.CanonicalEntity
	for i := range entities {
		if entities[i].MentionCount() == 2 {
			acme = &entities[i]
		}
	}
	if acme == nil {
		t.Fatal("no merged cluster of size 2")
	}
	if acme.Confidence < 0.84 || acme.Confidence > 0.86 {
		t.Errorf("merged confidence = %v, want mean 0.85", acme.Confidence)
	}
}

func TestResolveFuzzyPersonMatch(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	mentions := []models.EntityMention{
		mention(docID, "Jonathan Smithson", models.EntityPerson, 0.9),
		mention(docID, "Jonathan Smithsen", models.EntityPerson, 0.9), // typo variant
		mention(docID, "Robert Chen", models.EntityPerson, 0.9),
	}

	entities := r.Resolve(docID, mentions)
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2 (typo variant merged)", len(entities))
	}
}

func TestResolveExactOnlyTypesNeverFuzzyMerge(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	mentions := []models.EntityMention{
		mention(docID, "January 5, 2024", models.EntityDate, 1.0),
		mention(docID, "January 6, 2024", models.EntityDate, 1.0), // one char off
		mention(docID, "january 5 2024", models.EntityDate, 1.0),  // same after normalize
	}

	entities := r.Resolve(docID, mentions)
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2 (exact merge only)", len(entities))
	}
}

func TestResolveNeverMergesAcrossTypes(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	mentions := []models.EntityMention{
		mention(docID, "Madison", models.EntityPerson, 0.9),
		mention(docID, "Madison", models.EntityLocation, 0.9),
	}

	entities := r.Resolve(docID, mentions)
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2 (types never merge)", len(entities))
	}
}

func TestResolveCanonicalNameMostFrequentThenLongest(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	mentions := []models.EntityMention{
		mention(docID, "Acme Holdings LLC", models.EntityOrg, 0.9),
		mention(docID, "Acme Holdings LLC", models.EntityOrg, 0.9),
		mention(docID, "Acme Holdings, L.L.C.", models.EntityOrg, 0.9),
	}

	entities := r.Resolve(docID, mentions)
	if len(entities) != 1 {
		t.Fatalf("len(entities) = %d, want 1", len(entities))
	}
	if entities[0].Name != "Acme Holdings LLC" {
		t.Errorf("canonical name = %q, want most frequent form", entities[0].Name)
	}
}

func TestResolveDeterministicAcrossMentionOrder(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	mentions := []models.EntityMention{
		mention(docID, "Acme Holdings LLC", models.EntityOrg, 0.9),
		mention(docID, "Acme Holdings, L.L.C.", models.EntityOrg, 0.8),
		mention(docID, "Jonathan Smithson", models.EntityPerson, 0.9),
		mention(docID, "Jonathan Smithson Jr.", models.EntityPerson, 0.7),
		mention(docID, "January 5, 2024", models.EntityDate, 1.0),
	}

	baseline := r.Resolve(docID, mentions)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]models.EntityMention, len(mentions))
		copy(shuffled, mentions)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := r.Resolve(docID, shuffled)
		if len(got) != len(baseline) {
			t.Fatalf("trial %d: %d entities, want %d", trial, len(got), len(baseline))
		}
		for i := range got {
			if got[i].ID != baseline[i].ID {
				t.Errorf("trial %d: entity %d ID differs", trial, i)
			}
			if got[i].Name != baseline[i].Name {
				t.Errorf("trial %d: entity %d name %q, want %q", trial, i, got[i].Name, baseline[i].Name)
			}
			if got[i].MentionCount() != baseline[i].MentionCount() {
				t.Errorf("trial %d: entity %d member count differs", trial, i)
			}
		}
	}
}

func TestResolveEmptyMentions(t *testing.T) {
	r := New(DefaultConfig())
	if got := r.Resolve(uuid.New(), nil); got != nil {
		t.Errorf("Resolve(nil) = %v, want nil", got)
	}
}

func TestResolveSingleMentionCluster(t *testing.T) {
	docID := uuid.New()
	r := New(DefaultConfig())

	m := mention(docID, "Acme Holdings LLC", models.EntityOrg, 0.75)
	entities := r.Resolve(docID, []models.EntityMention{m})
	if len(entities) != 1 {
		t.Fatalf("len(entities) = %d, want 1", len(entities))
	}
	e := entities[0]
	if e.MentionCount() != 1 || e.MentionIDs[0] != m.ID {
		t.Errorf("members = %v, want the single mention", e.MentionIDs)
	}
	if e.Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", e.Confidence)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
