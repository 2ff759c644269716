// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package resolve

import (
	"strings"
	"unicode"

	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// orgSuffixes maps corporate designator variants to one canonical form, so
// "Acme L.L.C." and "Acme LLC" normalize identically. Applied after
// punctuation stripping, token by token.
var orgSuffixes = map[string]string{
	"llc":                       "llc",
	"limited liability company": "llc",
	"llp":                       "llp",
	"limited liability partnership": "llp",
	"inc":          "inc",
	"incorporated": "inc",
	"corp":         "corp",
	"corporation":  "corp",
	"co":           "co",
	"company":      "co",
	"ltd":          "ltd",
	"limited":      "ltd",
	"lp":           "lp",
	"pc":           "pc",
	"pllc":         "pllc",
	"plc":          "plc",
}

// personSuffixes are generational and honorific tokens dropped from person
// names before comparison.
var personSuffixes = map[string]bool{
	"jr":  true,
	"sr":  true,
	"ii":  true,
	"iii": true,
	"iv":  true,
	"esq": true,
	"md":  true,
	"phd": true,
}

// Normalize produces the comparison key for a mention value. The key is only
// used for matching; canonical entity names keep the original surface form.
func Normalize(value string, entityType models.EntityType) string {
	s := collapseWhitespace(stripPunctuation(strings.ToLower(strings.TrimSpace(value))))
	switch entityType {
	case models.EntityPerson:
		return normalizePerson(s)
	case models.EntityOrg:
		return normalizeOrg(s)
	default:
		return s
	}
}

func normalizePerson(s string) string {
	tokens := strings.Fields(s)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if personSuffixes[tok] {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

func normalizeOrg(s string) string {
	// Two-token designators first ("limited liability company").
	for long, short := range orgSuffixes {
		if strings.Contains(long, " ") && strings.HasSuffix(s, " "+long) {
			s = strings.TrimSuffix(s, long) + short
			break
		}
	}
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if short, ok := orgSuffixes[tok]; ok && i == len(tokens)-1 {
			tokens[i] = short
		}
	}
	// "&" survives punctuation stripping as a token boundary; unify with "and".
	for i, tok := range tokens {
		if tok == "and" {
			tokens[i] = "&"
		}
	}
	return strings.Join(tokens, " ")
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteRune(r)
		case unicode.IsPunct(r):
			// Dropped entirely so "L.L.C." collapses to "llc", not "l l c".
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
