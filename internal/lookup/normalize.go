// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import "strings"

// NormalizeKey canonicalizes a lookup key: trim, casefold, and collapse
// whitespace/underscore runs to single spaces. "JOHN_SMITH" and
// "john smith" resolve to the same registry entry.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	fields := strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '_'
	})
	return strings.Join(fields, " ")
}

// NormalizeFieldName canonicalizes a schema field name: trim, lowercase,
// strip whitespace and underscores. "Voter ID", "voter_id", and "VoterId "
// all resolve to "voterid".
func NormalizeFieldName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r == '\t' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolveColumn finds the column whose normalized name matches the wanted
// field, returning the column's original spelling. The second return is
// false when the schemas do not line up; the caller skips the field rather
// than raising an error.
func ResolveColumn(wanted string, columns []string) (string, bool) {
	target := NormalizeFieldName(wanted)
	if target == "" {
		return "", false
	}
	for _, col := range columns {
		if NormalizeFieldName(col) == target {
			return col, true
		}
	}
	return "", false
}
