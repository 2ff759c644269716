// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package resolve

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// entityNamespace seeds deterministic entity IDs (UUIDv5). The same
// document, type, and cluster key always mint the same ID, across runs and
// across replays.
var entityNamespace = uuid.MustParse("8f0e2a1c-5b9d-4e3f-a6c7-2d814b90e5a3")

// Config holds per-type similarity thresholds. A pair of mentions merges
// when the similarity of their normalized values meets the threshold for
// their type; exact normalized equality always merges.
type Config struct {
	PersonThreshold  float64
	OrgThreshold     float64
	DefaultThreshold float64
}

// DefaultConfig returns the standard thresholds: fuzzy matching for people
// and organizations, exact-only for dates, money, locations, citations.
func DefaultConfig() Config {
	return Config{
		PersonThreshold:  0.90,
		OrgThreshold:     0.85,
		DefaultThreshold: 1.0,
	}
}

// Resolver clusters mentions into canonical entities.
type Resolver struct {
	cfg Config
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.PersonThreshold <= 0 {
		cfg.PersonThreshold = def.PersonThreshold
	}
	if cfg.OrgThreshold <= 0 {
		cfg.OrgThreshold = def.OrgThreshold
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = def.DefaultThreshold
	}
	return &Resolver{cfg: cfg}
}

func (r *Resolver) threshold(t models.EntityType) float64 {
	switch t {
	case models.EntityPerson:
		return r.cfg.PersonThreshold
	case models.EntityOrg:
		return r.cfg.OrgThreshold
	default:
		return r.cfg.DefaultThreshold
	}
}

// Resolve clusters the document's mentions into canonical entities. Mentions
// only merge within a type. Output is sorted by type then canonical name;
// mention IDs within each entity are sorted; entity IDs are deterministic
// functions of the cluster contents.
func (r *Resolver) Resolve(docID uuid.UUID, mentions []models.EntityMention) []models.CanonicalEntity {
	if len(mentions) == 0 {
		return nil
	}

	byType := make(map[models.EntityType][]models.EntityMention)
	for _, m := range mentions {
		byType[m.Type] = append(byType[m.Type], m)
	}

	types := make([]models.EntityType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var entities []models.CanonicalEntity
	for _, t := range types {
		entities = append(entities, r.resolveType(docID, t, byType[t])...)
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		return entities[i].Name < entities[j].Name
	})
	return entities
}

func (r *Resolver) resolveType(docID uuid.UUID, t models.EntityType, mentions []models.EntityMention) []models.CanonicalEntity {
	// Fixed processing order makes union-find results independent of the
	// caller's mention order.
	sort.Slice(mentions, func(i, j int) bool {
		if mentions[i].Value != mentions[j].Value {
			return mentions[i].Value < mentions[j].Value
		}
		return mentions[i].ID.String() < mentions[j].ID.String()
	})

	keys := make([]string, len(mentions))
	for i, m := range mentions {
		keys[i] = Normalize(m.Value, t)
	}

	uf := newUnionFind(len(mentions))
	threshold := r.threshold(t)
	for i := 0; i < len(mentions); i++ {
		for j := i + 1; j < len(mentions); j++ {
			if keys[i] == keys[j] || jaroWinkler(keys[i], keys[j]) >= threshold {
				uf.union(i, j)
			}
		}
	}

	clusters := make(map[int][]int)
	for i := range mentions {
		root := uf.find(i)
		clusters[root] = append(clusters[root], i)
	}

	roots := make([]int, 0, len(clusters))
	for root := range clusters {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	entities := make([]models.CanonicalEntity, 0, len(roots))
	for _, root := range roots {
		members := clusters[root]
		entities = append(entities, r.buildEntity(docID, t, mentions, keys, members))
	}
	return entities
}

func (r *Resolver) buildEntity(docID uuid.UUID, t models.EntityType, mentions []models.EntityMention, keys []string, members []int) models.CanonicalEntity {
	// Canonical name: most frequent surface form, ties broken by longest
	// string, then lexicographic.
	counts := make(map[string]int)
	for _, idx := range members {
		counts[mentions[idx].Value]++
	}
	name := ""
	for value, n := range counts {
		switch {
		case name == "",
			n > counts[name],
			n == counts[name] && len(value) > len(name),
			n == counts[name] && len(value) == len(name) && value < name:
			name = value
		}
	}

	ids := make([]uuid.UUID, 0, len(members))
	sum := 0.0
	clusterKeys := make([]string, 0, len(members))
	for _, idx := range members {
		ids = append(ids, mentions[idx].ID)
		sum += mentions[idx].Confidence
		clusterKeys = append(clusterKeys, keys[idx])
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	// Entity ID derives from the sorted set of distinct normalized keys, so
	// it survives replays and mention reordering.
	sort.Strings(clusterKeys)
	distinct := clusterKeys[:0]
	for i, k := range clusterKeys {
		if i == 0 || k != clusterKeys[i-1] {
			distinct = append(distinct, k)
		}
	}
	seed := docID.String() + "|" + string(t) + "|" + strings.Join(distinct, "|")

	return models.CanonicalEntity{
		ID:         uuid.NewSHA1(entityNamespace, []byte(seed)),
		DocumentID: docID,
		Name:       name,
		Type:       t,
		MentionIDs: ids,
		Confidence: sum / float64(len(members)),
	}
}
