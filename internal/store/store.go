// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store persists documents and their reconciliation records. All
// implementations follow the same read-merge-write rule: a recomputation
// never clobbers operator ledger entries written since it was read.
package store

import (
	"context"
	"errors"
	"time"

	"docrecon/internal/calculation"
	"docrecon/internal/document"
	"docrecon/internal/geometry"
	"docrecon/internal/ledger"
	"docrecon/internal/lookup"
	"docrecon/internal/redaction"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

// Reconciliation is the persisted output of one reconciliation run plus the
// sticky operator ledger.
type Reconciliation struct {
	DocumentID     string                          `json:"document_id" yaml:"document_id"`
	Highlights     map[string]geometry.BoundingBox `json:"highlights,omitempty" yaml:"highlights,omitempty"`
	Regions        []redaction.Region              `json:"detected_pii_regions,omitempty" yaml:"detected_pii_regions,omitempty"`
	Calculation    calculation.Check               `json:"calculation" yaml:"calculation"`
	Validation     *lookup.Summary                 `json:"validation,omitempty" yaml:"validation,omitempty"`
	Suggestions    map[string]string               `json:"validation_suggestions,omitempty" yaml:"validation_suggestions,omitempty"`
	MatchThreshold float64                         `json:"match_threshold" yaml:"match_threshold"`
	UpdatedAt      time.Time                       `json:"updated_at" yaml:"updated_at"`

	// The detector payload the regions were composited from. Kept so a
	// re-validation that arrives without fresh detector output can
	// recompute regions instead of losing them.
	PIIDetections        []redaction.Detection `json:"pii_detections,omitempty" yaml:"pii_detections,omitempty"`
	ComplianceDetections []redaction.Detection `json:"compliance_detections,omitempty" yaml:"compliance_detections,omitempty"`
}

// Clone deep-copies the record far enough that a caller mutating the copy's
// ledger entries, regions, or maps cannot reach the original.
func (r *Reconciliation) Clone() *Reconciliation {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Validation != nil {
		v := *r.Validation
		v.Results = append([]lookup.Result(nil), r.Validation.Results...)
		cp.Validation = &v
	}
	if r.Highlights != nil {
		cp.Highlights = make(map[string]geometry.BoundingBox, len(r.Highlights))
		for k, b := range r.Highlights {
			cp.Highlights[k] = b
		}
	}
	if r.Suggestions != nil {
		cp.Suggestions = make(map[string]string, len(r.Suggestions))
		for k, v := range r.Suggestions {
			cp.Suggestions[k] = v
		}
	}
	cp.Regions = append([]redaction.Region(nil), r.Regions...)
	cp.PIIDetections = append([]redaction.Detection(nil), r.PIIDetections...)
	cp.ComplianceDetections = append([]redaction.Detection(nil), r.ComplianceDetections...)
	return &cp
}

// Store is the authoritative record store.
type Store interface {
	// SaveDocument creates or replaces a document's core fields.
	SaveDocument(ctx context.Context, doc *document.Document) error

	// GetDocument returns the document, or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*document.Document, error)

	// ListByStatus returns all documents in the given status.
	ListByStatus(ctx context.Context, status document.ValidationStatus) ([]*document.Document, error)

	// SetStatus moves a document through the review workflow.
	SetStatus(ctx context.Context, id string, status document.ValidationStatus) error

	// GetReconciliation returns the stored reconciliation, or ErrNotFound
	// when the document has never been reconciled.
	GetReconciliation(ctx context.Context, docID string) (*Reconciliation, error)

	// SaveReconciliation persists a recomputed reconciliation. Stored
	// operator entries are merged into the incoming record before the
	// write; the last accepted operator action wins over a stale
	// recomputation.
	SaveReconciliation(ctx context.Context, rec *Reconciliation) error

	// ApplyAction records an operator decision on one row and recounts
	// the summary, as a serialized read-merge-write.
	ApplyAction(ctx context.Context, docID string, row int, action ledger.Action, operator string) (*Reconciliation, error)
}

// mergeSticky folds the operator entries of a stored record into an
// incoming recomputed one.
func mergeSticky(incoming *Reconciliation, stored *Reconciliation) {
	if incoming.Validation == nil || stored == nil || stored.Validation == nil {
		return
	}

	prior := stored.Validation.LedgerEntries()
	if len(prior) == 0 {
		return
	}

	entries := make([]ledger.Entry, len(incoming.Validation.Results))
	for i, r := range incoming.Validation.Results {
		entries[i] = r.Entry
	}
	entries = ledger.Merge(entries, prior)
	for i := range incoming.Validation.Results {
		incoming.Validation.Results[i].Entry = entries[i]
	}

	recount(incoming)
}

// applyAction transitions one row's ledger entry and recounts.
func applyAction(rec *Reconciliation, row int, action ledger.Action, operator string, at time.Time) error {
	if rec.Validation == nil || row < 0 || row >= len(rec.Validation.Results) {
		return errors.New("row index out of range")
	}

	entry, err := ledger.Apply(rec.Validation.Results[row].Entry, action, operator, at)
	if err != nil {
		return err
	}
	rec.Validation.Results[row].Entry = entry

	recount(rec)
	rec.UpdatedAt = at
	return nil
}

func recount(rec *Reconciliation) {
	if rec.Validation == nil {
		return
	}
	threshold := rec.MatchThreshold
	if threshold <= 0 {
		threshold = lookup.DefaultScorePolicy().MatchThreshold
	}
	fresh := lookup.Summarize(rec.Validation.Results, threshold, rec.Validation.ValidatedAt)
	rec.Validation = fresh
}
