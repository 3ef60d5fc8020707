// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docrecon/internal/document"
	"docrecon/internal/engine"
	"docrecon/internal/lookup"
	"docrecon/internal/store"

	_ "docrecon/internal/formatters/csv"
	_ "docrecon/internal/formatters/json"
)

type stubProvider struct {
	rows map[string]map[string]string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Lookup(_ context.Context, req lookup.Request) (*lookup.Response, error) {
	row, ok := p.rows[lookup.NormalizeKey(req.KeyValue)]
	if !ok {
		return &lookup.Response{Found: false}, nil
	}
	return &lookup.Response{Found: true, Row: row}, nil
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st := store.NewMemoryStore()
	provider := &stubProvider{rows: map[string]map[string]string{
		"12345": {"voter_id": "12345", "name": "John Smith"},
	}}
	validator := lookup.NewValidator(provider, lookup.Config{
		System:    lookup.SystemRegistry,
		Enabled:   true,
		KeyColumn: "voter_id",
		Fields: []lookup.Field{
			{SourceField: "name", TargetField: "name", Enabled: true},
		},
	})
	eng := engine.New(st, engine.WithValidator(validator))
	t.Cleanup(func() { eng.Close() })
	return NewServer(eng, st, nil), st
}

func ingestPayload() string {
	return `{
		"extraction": {
			"extractedText": "John Smith 12345",
			"wordBoundingBoxes": [
				{"text": "John", "bbox": {"x": 10, "y": 20, "width": 8, "height": 2}},
				{"text": "Smith", "bbox": {"x": 19, "y": 20, "width": 10, "height": 2}}
			],
			"fields": {"signer_name": "John Smith"},
			"lineItems": [
				{"columns": ["voter_id", "name"], "cells": {"voter_id": "12345", "name": "John Smith"}},
				{"columns": ["voter_id", "name"], "cells": {"voter_id": "99999", "name": "Nobody"}}
			]
		}
	}`
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Operator", "reviewer@example.com")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func ingestDocument(t *testing.T, s *Server) string {
	t.Helper()
	rr := doRequest(t, s, "POST", "/api/documents", ingestPayload())
	if rr.Code != http.StatusCreated {
		t.Fatalf("ingest returned %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Document struct {
			ID string `json:"id"`
		} `json:"document"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if resp.Document.ID == "" {
		t.Fatal("ingest response missing document id")
	}
	return resp.Document.ID
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rr := doRequest(t, s, "GET", "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestIngestReconcilesDocument(t *testing.T) {
	s, st := newTestServer(t)
	id := ingestDocument(t, s)

	rec, err := st.GetReconciliation(context.Background(), id)
	if err != nil {
		t.Fatalf("reconciliation not persisted: %v", err)
	}
	if rec.Validation == nil || rec.Validation.TotalItems != 2 {
		t.Errorf("unexpected validation summary: %+v", rec.Validation)
	}
	if rec.Validation.ValidCount != 1 {
		t.Errorf("expected 1 valid row, got %d", rec.Validation.ValidCount)
	}
	if len(rec.Highlights) == 0 {
		t.Error("expected highlights")
	}
}

func TestRowActions(t *testing.T) {
	s, _ := newTestServer(t)
	id := ingestDocument(t, s)

	rr := doRequest(t, s, "POST", fmt.Sprintf("/api/documents/%s/rows/1/approve", id), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("approve returned %d: %s", rr.Code, rr.Body.String())
	}
	var rec store.Reconciliation
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rec.Validation.Results[1].OverrideApproved {
		t.Error("expected override on row 1")
	}
	if rec.Validation.Results[1].OverrideBy != "reviewer@example.com" {
		t.Errorf("operator not recorded: %+v", rec.Validation.Results[1])
	}

	rr = doRequest(t, s, "POST", fmt.Sprintf("/api/documents/%s/rows/99/reject", id), "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range row, got %d", rr.Code)
	}

	rr = doRequest(t, s, "POST", "/api/documents/nope/rows/0/approve", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rr.Code)
	}
}

func TestReconcileEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	id := ingestDocument(t, s)

	rr := doRequest(t, s, "POST", fmt.Sprintf("/api/documents/%s/rows/1/approve", id), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("approve returned %d", rr.Code)
	}

	rr = doRequest(t, s, "POST", fmt.Sprintf("/api/documents/%s/reconcile", id), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reconcile returned %d: %s", rr.Code, rr.Body.String())
	}
	var rec store.Reconciliation
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rec.Validation.Results[1].OverrideApproved {
		t.Error("re-validation dropped operator override")
	}
}

func TestGetReconciliationCSVExport(t *testing.T) {
	s, _ := newTestServer(t)
	id := ingestDocument(t, s)

	rr := doRequest(t, s, "GET", fmt.Sprintf("/api/documents/%s/reconciliation?format=csv&all=1", id), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export returned %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("unexpected content type %s", ct)
	}
	if !strings.Contains(rr.Body.String(), "12345") {
		t.Errorf("expected row data in CSV:\n%s", rr.Body.String())
	}
}

func TestEditFieldsFlush(t *testing.T) {
	s, st := newTestServer(t)
	id := ingestDocument(t, s)

	rr := doRequest(t, s, "PATCH", fmt.Sprintf("/api/documents/%s/fields?flush=1", id), `{"signer_name": "Jon Smith"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("edit returned %d: %s", rr.Code, rr.Body.String())
	}

	doc, err := st.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Fields["signer_name"] != "Jon Smith" {
		t.Errorf("edit not persisted: %+v", doc.Fields)
	}
}

func TestSetStatus(t *testing.T) {
	s, st := newTestServer(t)
	id := ingestDocument(t, s)

	rr := doRequest(t, s, "POST", fmt.Sprintf("/api/documents/%s/status", id), `{"status": "validated"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status returned %d: %s", rr.Code, rr.Body.String())
	}
	doc, _ := st.GetDocument(context.Background(), id)
	if doc.Status != document.StatusValidated {
		t.Errorf("status not updated: %s", doc.Status)
	}

	rr = doRequest(t, s, "POST", fmt.Sprintf("/api/documents/%s/status", id), `{"status": "bogus"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", rr.Code)
	}
}
