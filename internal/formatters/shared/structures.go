// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"docrecon/internal/formatters"
	"docrecon/internal/lookup"
)

// Row statuses as rendered in every output format.
const (
	StatusValid    = "VALID"
	StatusInvalid  = "INVALID"
	StatusRejected = "REJECTED"
	StatusReview   = "REVIEW"
)

// RowView is the flattened per-row view shared by the JSON, YAML, and CSV
// formatters.
type RowView struct {
	Index         int     `json:"index" yaml:"index"`
	Key           string  `json:"key" yaml:"key"`
	Status        string  `json:"status" yaml:"status"`
	Found         bool    `json:"found" yaml:"found"`
	MatchScore    float64 `json:"match_score" yaml:"match_score"`
	PartialReason string  `json:"partial_reason,omitempty" yaml:"partial_reason,omitempty"`
	Message       string  `json:"message,omitempty" yaml:"message,omitempty"`
	OverrideBy    string  `json:"override_by,omitempty" yaml:"override_by,omitempty"`
}

// StatusOf classifies one row for display.
func StatusOf(r lookup.Result, threshold float64) string {
	switch {
	case r.Rejected:
		return StatusRejected
	case r.Valid(threshold):
		return StatusValid
	case r.PartialMatch:
		return StatusReview
	default:
		return StatusInvalid
	}
}

// ConvertRows flattens the validation results, applying the IncludeValid
// option. Rows needing attention always appear.
func ConvertRows(report formatters.Report, options formatters.FormatterOptions) []RowView {
	rec := report.Reconciliation
	if rec == nil || rec.Validation == nil {
		return nil
	}

	var rows []RowView
	for _, r := range rec.Validation.Results {
		status := StatusOf(r, rec.MatchThreshold)
		if status == StatusValid && !options.IncludeValid {
			continue
		}
		rows = append(rows, RowView{
			Index:         r.Index,
			Key:           r.KeyValue,
			Status:        status,
			Found:         r.Found,
			MatchScore:    r.MatchScore,
			PartialReason: r.PartialReason,
			Message:       r.Message,
			OverrideBy:    r.OverrideBy,
		})
	}
	return rows
}
