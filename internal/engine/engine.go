// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package engine runs the reconciliation pipeline: field highlighting,
// line-item lookup validation, redaction compositing, and arithmetic
// verification, fanned out concurrently per document and persisted through
// the store's read-merge-write rules.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"docrecon/internal/calculation"
	"docrecon/internal/document"
	"docrecon/internal/highlight"
	"docrecon/internal/ledger"
	"docrecon/internal/lookup"
	"docrecon/internal/observability"
	"docrecon/internal/redaction"
	"docrecon/internal/store"
)

// ErrSuperseded is returned when a re-validation finished after a newer one
// started. Its result is discarded rather than persisted.
var ErrSuperseded = errors.New("re-validation superseded by a newer run")

// ErrExported rejects mutations of documents already shipped downstream.
var ErrExported = errors.New("document has been exported and is immutable")

// Inputs are the detector outputs fed into one reconciliation run.
type Inputs struct {
	PII        []redaction.Detection
	Compliance []redaction.Detection
}

// Engine coordinates reconciliation runs and operator edit sessions.
type Engine struct {
	store     store.Store
	validator *lookup.Validator
	policy    lookup.ScorePolicy
	observer  *observability.StandardObserver
	now       func() time.Time

	mu      sync.Mutex
	gens    map[string]int64
	cancels map[string]context.CancelFunc

	sessMu   sync.Mutex
	sessions map[string]*editSession
	debounce time.Duration
	closed   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithValidator attaches the lookup validator. Without one, reconciliation
// still runs highlighting, redaction, and calculation checks.
func WithValidator(v *lookup.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithScorePolicy overrides the default thresholds.
func WithScorePolicy(policy lookup.ScorePolicy) Option {
	return func(e *Engine) { e.policy = policy }
}

// WithObserver enables timing output.
func WithObserver(observer *observability.StandardObserver) Option {
	return func(e *Engine) { e.observer = observer }
}

// WithDebounce sets the edit-session persistence delay.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithClock fixes the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given store.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		policy:   lookup.DefaultScorePolicy(),
		now:      time.Now,
		gens:     make(map[string]int64),
		cancels:  make(map[string]context.CancelFunc),
		sessions: make(map[string]*editSession),
		debounce: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile runs every analysis for one document and persists the result.
// The analyses are independent, so they run concurrently; a failure in one
// does not abort the others.
func (e *Engine) Reconcile(ctx context.Context, doc *document.Document, in Inputs) (*store.Reconciliation, error) {
	if e.observer != nil {
		complete := e.observer.StartTiming("engine", "reconcile", doc.ID)
		defer complete(true, map[string]interface{}{"rows": len(doc.LineItems)})
	}

	rec, err := e.compute(ctx, doc, in)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveReconciliation(ctx, rec); err != nil {
		return nil, err
	}
	return e.store.GetReconciliation(ctx, doc.ID)
}

// Revalidate reruns reconciliation for a stored document. Starting a new
// run cancels any in-flight run for the same document, and a run that lost
// the race never persists: last intent wins. A run without fresh detector
// input reuses the detections from the stored record, so a scheduled sweep
// never wipes the redaction overlay.
func (e *Engine) Revalidate(ctx context.Context, docID string, in Inputs) (*store.Reconciliation, error) {
	doc, err := e.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if in.PII == nil && in.Compliance == nil {
		if stored, err := e.store.GetReconciliation(ctx, docID); err == nil {
			in = Inputs{PII: stored.PIIDetections, Compliance: stored.ComplianceDetections}
		}
	}

	gen, runCtx, cancel := e.begin(ctx, docID)
	defer cancel()

	rec, err := e.compute(runCtx, doc, in)
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, docID, gen, rec); err != nil {
		return nil, err
	}
	return e.store.GetReconciliation(ctx, docID)
}

// ApplyAction records an operator decision and returns the recounted
// record.
func (e *Engine) ApplyAction(ctx context.Context, docID string, row int, action ledger.Action, operator string) (*store.Reconciliation, error) {
	return e.store.ApplyAction(ctx, docID, row, action, operator)
}

func (e *Engine) compute(ctx context.Context, doc *document.Document, in Inputs) (*store.Reconciliation, error) {
	prior := e.priorEntries(ctx, doc.ID)
	matcher := highlight.NewMatcher(doc.ReferenceSize)
	compositor := redaction.NewCompositor(doc.ReferenceSize)

	rec := &store.Reconciliation{
		DocumentID:           doc.ID,
		MatchThreshold:       e.policy.MatchThreshold,
		PIIDetections:        in.PII,
		ComplianceDetections: in.Compliance,
	}

	var wg sync.WaitGroup
	var validationErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer e.debugStep("highlight", doc.ID)(true, "")
		rec.Highlights = matcher.HighlightFields(doc.Fields, doc.WordBoxes)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer e.debugStep("redaction", doc.ID)(true, "")
		rec.Regions = compositor.Composite(doc, in.PII, in.Compliance)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer e.debugStep("calculation", doc.ID)(true, "")
		rec.Calculation = calculation.Verify(doc.LineItems, doc.Fields, nil)
	}()

	if e.validator != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := e.debugStep("lookup", doc.ID)
			summary, err := e.validator.ValidateLineItems(ctx, doc, prior)
			if err != nil {
				validationErr = err
				done(false, err.Error())
				return
			}
			rec.Validation = summary
			done(true, "")
		}()
	}

	wg.Wait()
	if validationErr != nil {
		return nil, validationErr
	}
	rec.Suggestions = collectSuggestions(rec.Validation)
	rec.UpdatedAt = e.now()
	return rec, nil
}

// collectSuggestions gathers the per-field source-value corrections from
// mismatched rows, keyed "<row>.<field>" so rows never collide.
func collectSuggestions(summary *lookup.Summary) map[string]string {
	if summary == nil {
		return nil
	}
	var out map[string]string
	for _, r := range summary.Results {
		for _, fr := range r.FieldResults {
			if fr.Suggestion == "" {
				continue
			}
			if out == nil {
				out = make(map[string]string)
			}
			out[fmt.Sprintf("%d.%s", r.Index, fr.Field)] = fr.Suggestion
		}
	}
	return out
}

// debugStep times one analysis when the debug observer is attached.
func (e *Engine) debugStep(step, docID string) func(success bool, details string) {
	if e.observer == nil || e.observer.DebugObserver == nil {
		return func(bool, string) {}
	}
	return e.observer.DebugObserver.StartStep("engine", step, docID)
}

// priorEntries loads the sticky operator entries from the stored record, if
// any. A missing record is an empty ledger, not an error.
func (e *Engine) priorEntries(ctx context.Context, docID string) map[int]ledger.Entry {
	rec, err := e.store.GetReconciliation(ctx, docID)
	if err != nil || rec.Validation == nil {
		return nil
	}
	return rec.Validation.LedgerEntries()
}

// begin claims the next generation for a document and cancels the previous
// in-flight run.
func (e *Engine) begin(ctx context.Context, docID string) (int64, context.Context, context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cancel, ok := e.cancels[docID]; ok {
		cancel()
	}
	e.gens[docID]++
	gen := e.gens[docID]

	runCtx, cancel := context.WithCancel(ctx)
	e.cancels[docID] = cancel
	return gen, runCtx, func() {
		e.mu.Lock()
		if e.gens[docID] == gen {
			delete(e.cancels, docID)
		}
		e.mu.Unlock()
		cancel()
	}
}

// commit persists a run's result while holding the generation lock, so a
// run superseded between finishing and saving still never persists.
func (e *Engine) commit(ctx context.Context, docID string, gen int64, rec *store.Reconciliation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gens[docID] != gen {
		return ErrSuperseded
	}
	return e.store.SaveReconciliation(ctx, rec)
}
