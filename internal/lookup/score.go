// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import (
	"strings"
	"unicode"
)

// ScorePolicy configures the fuzzy agreement scoring. The metric weights
// and thresholds are policy, not constants: different document classes want
// different strictness.
type ScorePolicy struct {
	// Weights for the combined string-similarity metrics.
	EditWeight    float64 `yaml:"edit_weight" json:"editWeight"`
	JaccardWeight float64 `yaml:"jaccard_weight" json:"jaccardWeight"`
	LCSWeight     float64 `yaml:"lcs_weight" json:"lcsWeight"`

	// MatchThreshold is the combined matchScore at or above which a row
	// classifies as found.
	MatchThreshold float64 `yaml:"match_threshold" json:"matchThreshold"`

	// FieldThreshold is the per-field score at or above which a single
	// field counts as agreeing.
	FieldThreshold float64 `yaml:"field_threshold" json:"fieldThreshold"`
}

// DefaultScorePolicy mirrors the observed production behavior: 0.9 for a
// full match, similarity weighted toward edit distance.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		EditWeight:     0.5,
		JaccardWeight:  0.3,
		LCSWeight:      0.2,
		MatchThreshold: 0.9,
		FieldThreshold: 0.9,
	}
}

// Similarity computes a [0,1] agreement score between two values by
// combining edit-distance similarity, character-bigram Jaccard similarity,
// and longest-common-subsequence similarity.
func (p ScorePolicy) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	norm1 := normalizeForComparison(a)
	norm2 := normalizeForComparison(b)
	if norm1 == norm2 {
		return 1.0
	}
	if len(norm1) == 0 || len(norm2) == 0 {
		return 0.0
	}

	editSim := editSimilarity(norm1, norm2)
	jaccardSim := jaccardSimilarity(norm1, norm2)
	lcsSim := lcsSimilarity(norm1, norm2)

	total := p.EditWeight + p.JaccardWeight + p.LCSWeight
	if total <= 0 {
		return editSim
	}
	return (p.EditWeight*editSim + p.JaccardWeight*jaccardSim + p.LCSWeight*lcsSim) / total
}

// ScoreFields computes per-field agreement and the weighted combined
// matchScore across the given field results. Each FieldResult's Score and
// Matches are filled in; the Suggestion is the source value when the field
// disagrees.
func (p ScorePolicy) ScoreFields(results []FieldResult, weights map[string]float64) ([]FieldResult, float64) {
	if len(results) == 0 {
		return results, 0
	}

	var weightedSum, totalWeight float64
	for i := range results {
		score := p.Similarity(results[i].ExtractedValue, results[i].SourceValue)
		results[i].Score = score
		results[i].Matches = score >= p.FieldThreshold
		if !results[i].Matches && results[i].SourceValue != "" {
			results[i].Suggestion = results[i].SourceValue
		}

		weight := 1.0
		if w, ok := weights[NormalizeFieldName(results[i].Field)]; ok && w > 0 {
			weight = w
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	return results, weightedSum / totalWeight
}

// normalizeForComparison lowercases, collapses whitespace, and strips
// non-alphanumeric characters.
func normalizeForComparison(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")

	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// editSimilarity is 1 - normalized Levenshtein distance.
func editSimilarity(s1, s2 string) float64 {
	maxLen := max(len(s1), len(s2))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(editDistance(s1, s2))/float64(maxLen)
}

// editDistance calculates the Levenshtein distance between two strings.
func editDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

// jaccardSimilarity compares character-bigram sets.
func jaccardSimilarity(s1, s2 string) float64 {
	ngrams1 := extractNGrams(s1, 2)
	ngrams2 := extractNGrams(s2, 2)

	if len(ngrams1) == 0 && len(ngrams2) == 0 {
		return 1.0
	}

	intersection := 0
	union := make(map[string]bool)
	for ngram := range ngrams1 {
		union[ngram] = true
	}
	for ngram := range ngrams2 {
		union[ngram] = true
	}
	for ngram := range ngrams1 {
		if ngrams2[ngram] {
			intersection++
		}
	}

	if len(union) == 0 {
		return 0.0
	}
	return float64(intersection) / float64(len(union))
}

// lcsSimilarity is the longest-common-subsequence length over the longer
// string's length.
func lcsSimilarity(s1, s2 string) float64 {
	maxLen := max(len(s1), len(s2))
	if maxLen == 0 {
		return 1.0
	}
	return float64(lcsLength(s1, s2)) / float64(maxLen)
}

func lcsLength(s1, s2 string) int {
	m, n := len(s1), len(s2)
	if m == 0 || n == 0 {
		return 0
	}

	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else {
				lcs[i][j] = max(lcs[i-1][j], lcs[i][j-1])
			}
		}
	}

	return lcs[m][n]
}

func extractNGrams(s string, n int) map[string]bool {
	ngrams := make(map[string]bool)
	if len(s) < n {
		ngrams[s] = true
		return ngrams
	}
	for i := 0; i <= len(s)-n; i++ {
		ngrams[s[i:i+n]] = true
	}
	return ngrams
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
