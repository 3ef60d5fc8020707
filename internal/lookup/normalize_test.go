// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import "testing"

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"  John Smith  ", "john smith"},
		{"JOHN_SMITH", "john smith"},
		{"john\t\tsmith", "john smith"},
		{"john___smith", "john smith"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.input); got != tc.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeFieldName(t *testing.T) {
	// All three spellings must resolve to the same lookup field.
	variants := []string{"Voter ID", "voter_id", "VoterId "}
	first := NormalizeFieldName(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeFieldName(v); got != first {
			t.Errorf("NormalizeFieldName(%q) = %q, want %q", v, got, first)
		}
	}
}

func TestResolveColumn(t *testing.T) {
	columns := []string{"Voter ID", "Full Name", "Street Address"}

	if col, ok := ResolveColumn("voter_id", columns); !ok || col != "Voter ID" {
		t.Errorf("expected Voter ID, got %q (%v)", col, ok)
	}
	if col, ok := ResolveColumn("FullName", columns); !ok || col != "Full Name" {
		t.Errorf("expected Full Name, got %q (%v)", col, ok)
	}
	if _, ok := ResolveColumn("precinct", columns); ok {
		t.Error("unknown field should not resolve")
	}
	if _, ok := ResolveColumn("", columns); ok {
		t.Error("empty field should not resolve")
	}
}
