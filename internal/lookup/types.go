// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package lookup validates extracted line items against external
// authoritative sources with fuzzy agreement scoring.
package lookup

import (
	"context"
	"time"

	"docrecon/internal/ledger"
)

// System identifies a lookup source kind.
type System string

const (
	SystemCSV       System = "csv"
	SystemExcel     System = "excel"
	SystemRegistry  System = "registry"
	SystemFileBound System = "filebound"
	SystemDocMgt    System = "docmgt"
)

// Field maps one extraction-schema field to its counterpart in the external
// source. Weight biases the combined matchScore; zero means 1.0.
type Field struct {
	SourceField string  `json:"sourceField" yaml:"source_field"`
	TargetField string  `json:"targetField" yaml:"target_field"`
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Weight      float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Config drives which fields are checked and against what key.
type Config struct {
	System  System `json:"system" yaml:"system"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Source  string `json:"sourceLocator" yaml:"source"`
	Sheet   string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	// Project names the ECM container to search: a DocMgt record type or a
	// FileBound project id.
	Project   string  `json:"project,omitempty" yaml:"project,omitempty"`
	KeyColumn string  `json:"keyColumn" yaml:"key_column"`
	Fields    []Field `json:"lookupFields" yaml:"fields"`
}

// EnabledFields returns the configured fields that are switched on.
func (c Config) EnabledFields() []Field {
	var fields []Field
	for _, f := range c.Fields {
		if f.Enabled {
			fields = append(fields, f)
		}
	}
	return fields
}

// Request is one keyed lookup against a provider.
type Request struct {
	KeyColumn string  `json:"keyColumn"`
	KeyValue  string  `json:"keyValue"`
	Fields    []Field `json:"lookupFields,omitempty"`
}

// FieldResult is the per-field agreement between the extraction and the
// source row.
type FieldResult struct {
	Field          string  `json:"field"`
	SourceValue    string  `json:"sourceValue"`
	ExtractedValue string  `json:"extractedValue"`
	Matches        bool    `json:"matches"`
	Score          float64 `json:"score"`
	Suggestion     string  `json:"suggestion,omitempty"`
}

// Response is a provider's answer for one key. Tabular providers return the
// matched Row; service providers may return precomputed field results and a
// match score instead.
type Response struct {
	Found        bool              `json:"found"`
	AllMatch     bool              `json:"allMatch,omitempty"`
	MatchScore   float64           `json:"matchScore,omitempty"`
	FieldResults []FieldResult     `json:"validationResults,omitempty"`
	Row          map[string]string `json:"row,omitempty"`
}

// Provider is an external authoritative source. Implementations must honor
// ctx cancellation; a failed call affects only the row that issued it.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, req Request) (*Response, error)
}

// Result is the reconciled outcome for one line item. The embedded ledger
// entry is the sticky operator subset that survives recomputation.
type Result struct {
	Index           int           `json:"index"`
	KeyValue        string        `json:"keyValue"`
	Found           bool          `json:"found"`
	PartialMatch    bool          `json:"partialMatch"`
	PartialReason   string        `json:"partialReason,omitempty"`
	MatchScore      float64       `json:"matchScore"`
	FieldResults    []FieldResult `json:"fieldResults,omitempty"`
	SignatureStatus string        `json:"signatureStatus,omitempty"`
	Message         string        `json:"message,omitempty"`

	ledger.Entry `yaml:",inline"`
}

// Valid reports whether the row counts as valid: a confident source match,
// or an operator override. A rejected row is never valid.
func (r Result) Valid(threshold float64) bool {
	if r.Rejected {
		return false
	}
	if r.OverrideApproved {
		return true
	}
	return r.Found && r.MatchScore >= threshold
}

// Summary is the lookup-validation ledger embedded in the persisted
// document record.
type Summary struct {
	Validated     bool      `json:"validated"`
	ValidatedAt   time.Time `json:"validatedAt"`
	TotalItems    int       `json:"totalItems"`
	ValidCount    int       `json:"validCount"`
	InvalidCount  int       `json:"invalidCount"`
	RejectedCount int       `json:"rejectedCount"`
	Results       []Result  `json:"results"`
}

// Summarize recounts the partitions from the result set. Rejected rows are
// excluded from the valid/invalid split, so
// valid + invalid + rejected == total always holds.
func Summarize(results []Result, threshold float64, at time.Time) *Summary {
	s := &Summary{
		Validated:   true,
		ValidatedAt: at,
		TotalItems:  len(results),
		Results:     results,
	}
	for _, r := range results {
		switch {
		case r.Rejected:
			s.RejectedCount++
		case r.Valid(threshold):
			s.ValidCount++
		default:
			s.InvalidCount++
		}
	}
	return s
}

// LedgerEntries extracts the sticky operator entries by row index.
func (s *Summary) LedgerEntries() map[int]ledger.Entry {
	entries := make(map[int]ledger.Entry)
	for _, r := range s.Results {
		if r.Entry.Reviewed() {
			entries[r.Index] = r.Entry
		}
	}
	return entries
}
