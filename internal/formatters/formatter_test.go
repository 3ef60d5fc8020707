// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"docrecon/internal/document"
	"docrecon/internal/formatters"
	"docrecon/internal/lookup"
	"docrecon/internal/store"

	_ "docrecon/internal/formatters/csv"
	_ "docrecon/internal/formatters/json"
	_ "docrecon/internal/formatters/text"
	_ "docrecon/internal/formatters/yaml"
)

func testReport() formatters.Report {
	results := []lookup.Result{
		{Index: 0, KeyValue: "12345", Found: true, MatchScore: 1.0},
		{Index: 1, KeyValue: "67890", Found: true, PartialMatch: true, PartialReason: "name_mismatch", MatchScore: 0.72},
	}
	return formatters.Report{
		Document: &document.Document{ID: "doc-1", Status: document.StatusPending},
		Reconciliation: &store.Reconciliation{
			DocumentID:     "doc-1",
			Validation:     lookup.Summarize(results, 0.9, time.Now()),
			MatchThreshold: 0.9,
		},
	}
}

func TestRegistry_AllFormatsRegistered(t *testing.T) {
	for _, name := range []string{"csv", "json", "text", "yaml"} {
		if _, ok := formatters.Get(name); !ok {
			t.Errorf("formatter %s not registered", name)
		}
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := formatters.Export("xml", testReport(), formatters.FormatterOptions{})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestExport_JSONHidesValidRowsByDefault(t *testing.T) {
	out, err := formatters.Export("json", testReport(), formatters.FormatterOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded struct {
		DocumentID string `json:"document_id"`
		Counts     struct {
			Total int `json:"total"`
			Valid int `json:"valid"`
		} `json:"counts"`
		Rows []struct {
			Index  int    `json:"index"`
			Status string `json:"status"`
		} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.DocumentID != "doc-1" || decoded.Counts.Total != 2 || decoded.Counts.Valid != 1 {
		t.Errorf("unexpected summary: %+v", decoded)
	}
	if len(decoded.Rows) != 1 || decoded.Rows[0].Index != 1 {
		t.Errorf("expected only the review row, got %+v", decoded.Rows)
	}

	out, err = formatters.Export("json", testReport(), formatters.FormatterOptions{IncludeValid: true})
	if err != nil {
		t.Fatalf("Export with IncludeValid: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Rows) != 2 {
		t.Errorf("expected both rows with IncludeValid, got %+v", decoded.Rows)
	}
}

func TestExport_CSVRows(t *testing.T) {
	out, err := formatters.Export("csv", testReport(), formatters.FormatterOptions{IncludeValid: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "document_id,row,key,status") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[2], "name_mismatch") {
		t.Errorf("expected reason in row output: %s", lines[2])
	}
}

func TestExport_TextSummary(t *testing.T) {
	out, err := formatters.Export("text", testReport(), formatters.FormatterOptions{NoColor: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(out, "doc-1") || !strings.Contains(out, "1 valid") {
		t.Errorf("unexpected text output:\n%s", out)
	}
}

func TestGetFormatInfo_MimeTypes(t *testing.T) {
	if info := formatters.GetFormatInfo("json"); info.MimeType != "application/json" {
		t.Errorf("unexpected json mime type: %s", info.MimeType)
	}
	if info := formatters.GetFormatInfo("csv"); info.Extension != ".csv" {
		t.Errorf("unexpected csv extension: %s", info.Extension)
	}
}
