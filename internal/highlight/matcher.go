// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package highlight maps extracted field values back onto document geometry
// by matching value tokens against the OCR word boxes.
package highlight

import (
	"strings"
	"unicode"

	"docrecon/internal/document"
	"docrecon/internal/geometry"
)

// Matcher finds the on-page region a field value was read from.
type Matcher struct {
	reference geometry.ReferenceDimensions
}

// NewMatcher creates a matcher that rescales absolute word boxes against the
// given reference dimensions.
func NewMatcher(ref geometry.ReferenceDimensions) *Matcher {
	return &Matcher{reference: ref}
}

// Tokenize splits a field value into lowercase terms. Runs of letters,
// digits, and intra-token punctuation stay together ("INV-0042" is one
// term); whitespace and other separators split.
func Tokenize(value string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '-' || r == '.' || r == '/' || r == '#' || r == '&':
			// Keep punctuation that commonly appears inside identifiers.
			if current.Len() > 0 {
				current.WriteRune(r)
			}
		default:
			flush()
		}
	}
	flush()

	return terms
}

// termMatchesWord applies symmetric substring containment: equal, word
// contains term, or term contains word. OCR frequently splits one logical
// token across word boxes ("Inv-" + "0042"), so exact equality alone misses
// real matches. The resulting box is advisory, so the extra recall is worth
// the occasional false positive.
func termMatchesWord(term, word string) bool {
	if term == "" || word == "" {
		return false
	}
	return strings.Contains(word, term) || strings.Contains(term, word)
}

// MatchWords returns every word box whose text matches any of the terms,
// normalized to percentage space.
func (m *Matcher) MatchWords(terms []string, words []document.WordBox) []geometry.BoundingBox {
	var boxes []geometry.BoundingBox
	for _, w := range words {
		text := strings.ToLower(strings.TrimSpace(w.Text))
		if text == "" {
			continue
		}
		for _, term := range terms {
			if termMatchesWord(term, text) {
				boxes = append(boxes, geometry.Normalize(w.BBox, m.reference))
				break
			}
		}
	}
	return boxes
}

// FieldRegion derives the highlight box for one field value. The second
// return is false when no word matched; that is a normal outcome, not an
// error.
func (m *Matcher) FieldRegion(value string, words []document.WordBox) (geometry.BoundingBox, bool) {
	value = strings.TrimSpace(value)
	if value == "" || len(words) == 0 {
		return geometry.BoundingBox{}, false
	}

	terms := Tokenize(value)
	if len(terms) == 0 {
		return geometry.BoundingBox{}, false
	}

	return geometry.Union(m.MatchWords(terms, words))
}

// HighlightFields computes a highlight box for every non-empty field.
// Fields with no matching words are simply absent from the result.
func (m *Matcher) HighlightFields(fields map[string]string, words []document.WordBox) map[string]geometry.BoundingBox {
	highlights := make(map[string]geometry.BoundingBox)
	for name, value := range fields {
		if box, ok := m.FieldRegion(value, words); ok {
			highlights[name] = box
		}
	}
	return highlights
}

// ProvenancedFields returns the tagged form of each field, attaching the
// highlight box where one was found and falling back to the plain form
// otherwise.
func (m *Matcher) ProvenancedFields(fields map[string]string, words []document.WordBox) map[string]document.FieldValue {
	out := make(map[string]document.FieldValue, len(fields))
	highlights := m.HighlightFields(fields, words)
	for name, value := range fields {
		if box, ok := highlights[name]; ok {
			out[name] = document.Provenanced(value, box)
		} else {
			out[name] = document.Plain(value)
		}
	}
	return out
}
