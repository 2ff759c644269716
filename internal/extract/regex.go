// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package extract

import (
	"context"
	"regexp"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// Pattern confidences. Structured formats (money, citations, dates) are
// near-certain; name heuristics are weaker.
const (
	structuredConfidence = 0.95
	heuristicConfidence  = 0.70
)

type regexRule struct {
	typ        models.EntityType
	re         *regexp.Regexp
	confidence float64
	// group selects a capture group as the mention span; 0 is the whole match.
	group int
}

var regexRules = []regexRule{
	{
		typ:        models.EntityMoney,
		re:         regexp.MustCompile(`\$[0-9][0-9,]*(?:\.[0-9]{2})?(?:\s?(?:million|billion|thousand))?`),
		confidence: structuredConfidence,
	},
	{
		typ: models.EntityDate,
		re: regexp.MustCompile(`(?:January|February|March|April|May|June|July|August|September|October|November|December)` +
			`\s+[0-9]{1,2},\s+[0-9]{4}`),
		confidence: structuredConfidence,
	},
	{
		typ:        models.EntityDate,
		re:         regexp.MustCompile(`\b[0-9]{1,2}/[0-9]{1,2}/[0-9]{4}\b`),
		confidence: structuredConfidence,
	},
	{
		// Statutory citations: "42 U.S.C. § 1983", "28 USC § 1331".
		typ:        models.EntityCitation,
		re:         regexp.MustCompile(`[0-9]+\s+U\.?S\.?C\.?\s+§+\s*[0-9]+(?:\([a-z0-9]+\))*`),
		confidence: structuredConfidence,
	},
	{
		// Case reporter citations: "123 F.3d 456", "550 U.S. 544".
		typ:        models.EntityCitation,
		re:         regexp.MustCompile(`[0-9]+\s+(?:F\.(?:2d|3d|4th)?|F\.\s?Supp\.(?:\s?[23]d)?|U\.S\.|S\.\s?Ct\.)\s+[0-9]+`),
		confidence: structuredConfidence,
	},
	{
		// Organizations: a run of capitalized tokens ending in a corporate
		// designator, e.g. "Acme Holdings, LLC".
		typ: models.EntityOrg,
		re: regexp.MustCompile(`(?:[A-Z][\w&'\-]*\.?,?\s+)+(?:LLC|L\.L\.C\.|LLP|Inc\.?|Corp\.?|Corporation|` +
			`Ltd\.?|Company|Co\.|L\.P\.|P\.C\.)`),
		confidence: heuristicConfidence,
	},
	{
		// People by honorific or role.
		typ: models.EntityPerson,
		re: regexp.MustCompile(`(?:Mr\.|Mrs\.|Ms\.|Dr\.|Judge|Justice|Attorney)\s+` +
			`([A-Z][a-z]+(?:\s+[A-Z]\.)?(?:\s+[A-Z][a-z]+)+)`),
		confidence: heuristicConfidence,
		group:      1,
	},
}

// RegexExtractor is a deterministic, offline extractor built from the
// patterns above. It trades recall for zero dependencies; production runs
// use the LLM extractor and keep this as the fallback provider.
type RegexExtractor struct {
	minConfidence float64
}

// NewRegexExtractor creates a regex extractor.
func NewRegexExtractor(minConfidence float64) *RegexExtractor {
	return &RegexExtractor{minConfidence: minConfidence}
}

// Extract runs every rule over the chunk text.
func (e *RegexExtractor) Extract(ctx context.Context, chunk models.Chunk) ([]models.EntityMention, error) {
	var raws []rawMention
	for _, rule := range regexRules {
		for _, match := range rule.re.FindAllStringSubmatchIndex(chunk.Text, -1) {
			start, end := match[2*rule.group], match[2*rule.group+1]
			if start < 0 {
				continue
			}
			raws = append(raws, rawMention{
				Value:      chunk.Text[start:end],
				Type:       string(rule.typ),
				Confidence: rule.confidence,
				Start:      start,
				End:        end,
			})
		}
	}
	return finalize(chunk, raws, e.minConfidence), nil
}
