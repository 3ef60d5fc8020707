// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docrecon/internal/document"
	"docrecon/internal/geometry"
	"docrecon/internal/ledger"
	"docrecon/internal/lookup"
	"docrecon/internal/redaction"
	"docrecon/internal/store"
)

// gateProvider serves rows from a fixed table and can block a call until
// released, for exercising superseded runs.
type gateProvider struct {
	mu      sync.Mutex
	rows    map[string]map[string]string
	gate    chan struct{}
	started chan struct{}
	blocked bool
}

func (p *gateProvider) Name() string { return "gate" }

func (p *gateProvider) Lookup(ctx context.Context, req lookup.Request) (*lookup.Response, error) {
	p.mu.Lock()
	shouldBlock := p.blocked
	p.blocked = false
	p.mu.Unlock()

	if shouldBlock {
		close(p.started)
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	row, ok := p.rows[lookup.NormalizeKey(req.KeyValue)]
	if !ok {
		return &lookup.Response{Found: false}, nil
	}
	return &lookup.Response{Found: true, Row: row}, nil
}

func testDoc() *document.Document {
	return &document.Document{
		ID:            "doc-1",
		ExtractedText: "Petition of John Smith voter 12345",
		WordBoxes: []document.WordBox{
			{Text: "John", BBox: geometry.BoundingBox{X: 10, Y: 20, Width: 8, Height: 2}},
			{Text: "Smith", BBox: geometry.BoundingBox{X: 19, Y: 20, Width: 10, Height: 2}},
			{Text: "12345", BBox: geometry.BoundingBox{X: 40, Y: 20, Width: 9, Height: 2}},
		},
		Fields: map[string]string{"signer_name": "John Smith"},
		LineItems: []document.LineItem{
			{Columns: []string{"voter_id", "name"}, Cells: map[string]any{"voter_id": "12345", "name": "John Smith"}},
			{Columns: []string{"voter_id", "name"}, Cells: map[string]any{"voter_id": "99999", "name": "Nobody Here"}},
		},
		Status: document.StatusPending,
	}
}

func testValidator(p lookup.Provider) *lookup.Validator {
	cfg := lookup.Config{
		System:    lookup.SystemCSV,
		Enabled:   true,
		KeyColumn: "voter_id",
		Fields: []lookup.Field{
			{SourceField: "name", TargetField: "name", Enabled: true, Weight: 1},
		},
	}
	return lookup.NewValidator(p, cfg, lookup.WithWorkers(2))
}

func newTestEngine(t *testing.T, p lookup.Provider, opts ...Option) (*Engine, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	all := append([]Option{WithDebounce(20 * time.Millisecond)}, opts...)
	if p != nil {
		all = append(all, WithValidator(testValidator(p)))
	}
	e := New(s, all...)
	t.Cleanup(func() { e.Close() })
	return e, s
}

func TestReconcile_RunsAllAnalyses(t *testing.T) {
	p := &gateProvider{rows: map[string]map[string]string{
		"12345": {"voter_id": "12345", "name": "John Smith"},
	}}
	e, _ := newTestEngine(t, p)

	doc := testDoc()
	rec, err := e.Reconcile(context.Background(), doc, Inputs{
		PII: []redaction.Detection{{
			Category:    "name",
			Severity:    "high",
			Text:        "John Smith",
			BoundingBox: &geometry.BoundingBox{X: 10, Y: 20, Width: 19, Height: 2},
		}},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, ok := rec.Highlights["signer_name"]; !ok {
		t.Error("expected a highlight for signer_name")
	}
	if len(rec.Regions) != 1 || rec.Regions[0].Kind != redaction.KindPII {
		t.Errorf("unexpected regions: %+v", rec.Regions)
	}
	if rec.Validation == nil {
		t.Fatal("expected validation summary")
	}
	if rec.Validation.ValidCount != 1 || rec.Validation.InvalidCount != 1 {
		t.Errorf("expected 1 valid and 1 invalid row, got %+v", rec.Validation)
	}
	if !rec.Calculation.Skipped {
		t.Error("expected calculation check to be skipped without amounts")
	}
}

func TestReconcile_WithoutValidator(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	rec, err := e.Reconcile(context.Background(), testDoc(), Inputs{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rec.Validation != nil {
		t.Error("expected no validation summary without a validator")
	}
	if len(rec.Highlights) == 0 {
		t.Error("expected highlights to still be computed")
	}
}

func TestRevalidate_PreservesOperatorLedger(t *testing.T) {
	p := &gateProvider{rows: map[string]map[string]string{
		"12345": {"voter_id": "12345", "name": "John Smith"},
	}}
	e, s := newTestEngine(t, p)

	ctx := context.Background()
	doc := testDoc()
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if _, err := e.Reconcile(ctx, doc, Inputs{}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, err := e.ApplyAction(ctx, doc.ID, 1, ledger.ActionApprove, "reviewer@example.com"); err != nil {
		t.Fatalf("ApplyAction: %v", err)
	}

	rec, err := e.Revalidate(ctx, doc.ID, Inputs{})
	if err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if !rec.Validation.Results[1].OverrideApproved {
		t.Error("re-validation dropped the operator approval")
	}
	if rec.Validation.ValidCount != 2 {
		t.Errorf("expected both rows valid after override, got %+v", rec.Validation)
	}
}

func TestRevalidate_KeepsRegionsWithoutFreshDetections(t *testing.T) {
	p := &gateProvider{rows: map[string]map[string]string{
		"12345": {"voter_id": "12345", "name": "John Smith"},
	}}
	e, s := newTestEngine(t, p)

	ctx := context.Background()
	doc := testDoc()
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	in := Inputs{PII: []redaction.Detection{{
		Category:    "name",
		Severity:    "high",
		Text:        "John Smith",
		BoundingBox: &geometry.BoundingBox{X: 10, Y: 20, Width: 19, Height: 2},
	}}}
	rec, err := e.Reconcile(ctx, doc, in)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(rec.Regions) != 1 {
		t.Fatalf("expected 1 region after ingest, got %+v", rec.Regions)
	}

	// The cron sweep and an empty reconcile request carry no detector
	// payload; the stored detections must survive.
	rec, err = e.Revalidate(ctx, doc.ID, Inputs{})
	if err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if len(rec.Regions) != 1 || rec.Regions[0].Category != "name" {
		t.Errorf("re-validation without detector input lost the regions: %+v", rec.Regions)
	}
	if len(rec.PIIDetections) != 1 {
		t.Errorf("expected detections to stay persisted, got %+v", rec.PIIDetections)
	}

	// Fresh detector input still replaces the stored payload.
	rec, err = e.Revalidate(ctx, doc.ID, Inputs{PII: []redaction.Detection{{
		Category: "ssn",
		Severity: "high",
		Text:     "123-45-6789",
	}}})
	if err != nil {
		t.Fatalf("Revalidate with fresh input: %v", err)
	}
	if len(rec.Regions) != 1 || rec.Regions[0].Category != "ssn" {
		t.Errorf("fresh detections should replace the stored set: %+v", rec.Regions)
	}
}

func TestReconcile_CollectsSuggestions(t *testing.T) {
	p := &gateProvider{rows: map[string]map[string]string{
		"12345": {"voter_id": "12345", "name": "Jonathan Smythe-Harrington"},
	}}
	e, _ := newTestEngine(t, p)

	rec, err := e.Reconcile(context.Background(), testDoc(), Inputs{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rec.Suggestions["0.name"] != "Jonathan Smythe-Harrington" {
		t.Errorf("expected the source value suggested for the mismatched field, got %+v", rec.Suggestions)
	}
}

func TestCommit_RejectsSupersededGeneration(t *testing.T) {
	e, s := newTestEngine(t, nil)

	ctx := context.Background()
	doc := testDoc()
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	gen, _, cancel := e.begin(ctx, doc.ID)
	cancel()
	rec, err := e.compute(ctx, doc, Inputs{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// A newer run claims the generation between compute and save.
	_, _, cancel2 := e.begin(ctx, doc.ID)
	defer cancel2()

	if err := e.commit(ctx, doc.ID, gen, rec); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded from stale commit, got %v", err)
	}
	if _, err := s.GetReconciliation(ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("stale commit must not persist anything")
	}
}

func TestRevalidate_LastIntentWins(t *testing.T) {
	p := &gateProvider{
		rows: map[string]map[string]string{
			"12345": {"voter_id": "12345", "name": "John Smith"},
		},
		gate:    make(chan struct{}),
		started: make(chan struct{}),
		blocked: true,
	}
	e, s := newTestEngine(t, p)

	ctx := context.Background()
	doc := testDoc()
	doc.LineItems = doc.LineItems[:1]
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Revalidate(ctx, doc.ID, Inputs{})
		errCh <- err
	}()
	<-p.started

	// Second run supersedes the first while it is still blocked.
	if _, err := e.Revalidate(ctx, doc.ID, Inputs{}); err != nil {
		t.Fatalf("second Revalidate: %v", err)
	}
	close(p.gate)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected first run to report ErrSuperseded, got %v", err)
	}

	rec, err := s.GetReconciliation(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetReconciliation: %v", err)
	}
	if !rec.Validation.Results[0].Found {
		t.Errorf("persisted record should come from the winning run: %+v", rec.Validation.Results[0])
	}
}

func TestEditSession_DebouncedPersist(t *testing.T) {
	e, s := newTestEngine(t, nil)

	ctx := context.Background()
	doc := testDoc()
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	if err := e.StageFieldEdit(doc.ID, "signer_name", "Jon Smith"); err != nil {
		t.Fatalf("StageFieldEdit: %v", err)
	}
	if err := e.StageFieldEdit(doc.ID, "county", "Dane"); err != nil {
		t.Fatalf("StageFieldEdit: %v", err)
	}

	got, _ := s.GetDocument(ctx, doc.ID)
	if got.Fields["county"] != "" {
		t.Error("edit persisted before the debounce interval")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ = s.GetDocument(ctx, doc.ID)
		if got.Fields["county"] == "Dane" || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got.Fields["signer_name"] != "Jon Smith" || got.Fields["county"] != "Dane" {
		t.Errorf("expected both buffered edits persisted together, got %+v", got.Fields)
	}
}

func TestEditSession_FlushRejectsExported(t *testing.T) {
	e, s := newTestEngine(t, nil)

	ctx := context.Background()
	doc := testDoc()
	now := time.Now()
	doc.ExportedAt = &now
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	if err := e.StageFieldEdit(doc.ID, "signer_name", "changed"); err != nil {
		t.Fatalf("StageFieldEdit: %v", err)
	}
	if err := e.Flush(doc.ID); !errors.Is(err, ErrExported) {
		t.Errorf("expected ErrExported, got %v", err)
	}

	got, _ := s.GetDocument(ctx, doc.ID)
	if got.Fields["signer_name"] != "John Smith" {
		t.Error("exported document was mutated")
	}
}
