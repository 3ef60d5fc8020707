// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roll.csv")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestCSVProvider_Lookup(t *testing.T) {
	path := writeCSV(t, "Voter ID,Full Name,Street Address\nV100,John Smith,12 Oak Ave\nV200,Jane Doe,5 Pine Rd\n")

	p, err := NewCSVProvider(path, "voter_id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Lookup(context.Background(), Request{KeyColumn: "voter_id", KeyValue: "V100"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Found {
		t.Fatal("expected V100 to be found")
	}
	if resp.Row["Full Name"] != "John Smith" {
		t.Errorf("expected row values, got %v", resp.Row)
	}
}

func TestCSVProvider_KeyNormalization(t *testing.T) {
	path := writeCSV(t, "Name,County\nJOHN_SMITH,Lake\n")

	p, err := NewCSVProvider(path, "Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Underscore and case variants resolve to the same entry.
	resp, err := p.Lookup(context.Background(), Request{KeyValue: "john smith"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Found {
		t.Error("normalized key should match")
	}
}

func TestCSVProvider_NotFound(t *testing.T) {
	path := writeCSV(t, "Name,County\nJohn Smith,Lake\n")

	p, err := NewCSVProvider(path, "Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Lookup(context.Background(), Request{KeyValue: "Missing Person"})
	if err != nil {
		t.Fatalf("lookup miss is not an error: %v", err)
	}
	if resp.Found {
		t.Error("expected not found")
	}
}

func TestCSVProvider_MissingKeyColumn(t *testing.T) {
	path := writeCSV(t, "Name,County\nJohn Smith,Lake\n")

	if _, err := NewCSVProvider(path, "Voter ID"); err == nil {
		t.Error("expected error for unresolvable key column")
	}
}

func TestCSVProvider_RaggedRowsTolerated(t *testing.T) {
	path := writeCSV(t, "Name,County,Precinct\nJohn Smith,Lake\nJane Doe,Cook,12\n")

	p, err := NewCSVProvider(path, "Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, _ := p.Lookup(context.Background(), Request{KeyValue: "John Smith"})
	if !resp.Found {
		t.Fatal("short row should still index")
	}
	if _, ok := resp.Row["Precinct"]; ok {
		t.Error("missing trailing cell should be absent from row")
	}
}

func TestCSVProvider_DuplicateKeysFirstWins(t *testing.T) {
	path := writeCSV(t, "Name,County\nJohn Smith,Lake\nJohn Smith,Cook\n")

	p, err := NewCSVProvider(path, "Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, _ := p.Lookup(context.Background(), Request{KeyValue: "John Smith"})
	if resp.Row["County"] != "Lake" {
		t.Errorf("first occurrence should win, got %q", resp.Row["County"])
	}
}
