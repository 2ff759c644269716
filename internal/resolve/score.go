// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package resolve

// jaroWinkler returns the Jaro-Winkler similarity of two strings in [0,1].
// The Winkler modification boosts pairs sharing a common prefix, which suits
// names ("Smith, John" vs "Smith, J.").
func jaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	j := jaro(a, b)

	prefixLen := 0
	const maxPrefix = 4
	for i := 0; i < len(a) && i < len(b) && i < maxPrefix; i++ {
		if a[i] != b[i] {
			break
		}
		prefixLen++
	}

	const scalingFactor = 0.1
	return j + float64(prefixLen)*scalingFactor*(1.0-j)
}

// jaro returns the Jaro similarity of two strings in [0,1].
func jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)
		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}
