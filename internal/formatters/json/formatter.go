// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"

	"docrecon/internal/formatters"
	"docrecon/internal/formatters/shared"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON output for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

// response is the rendered document shape.
type response struct {
	DocumentID  string           `json:"document_id"`
	Status      string           `json:"status,omitempty"`
	Counts      *counts          `json:"counts,omitempty"`
	Rows        []shared.RowView `json:"rows,omitempty"`
	Calculation any              `json:"calculation,omitempty"`
	Regions     any              `json:"detected_pii_regions,omitempty"`
	Highlights  any              `json:"highlights,omitempty"`
}

type counts struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Rejected int `json:"rejected"`
}

func (f *Formatter) Format(report formatters.Report, options formatters.FormatterOptions) (string, error) {
	resp := response{
		Rows: shared.ConvertRows(report, options),
	}
	if report.Document != nil {
		resp.DocumentID = report.Document.ID
		resp.Status = string(report.Document.Status)
	}
	if rec := report.Reconciliation; rec != nil {
		if resp.DocumentID == "" {
			resp.DocumentID = rec.DocumentID
		}
		if v := rec.Validation; v != nil {
			resp.Counts = &counts{
				Total:    v.TotalItems,
				Valid:    v.ValidCount,
				Invalid:  v.InvalidCount,
				Rejected: v.RejectedCount,
			}
		}
		resp.Calculation = rec.Calculation
		if len(rec.Regions) > 0 {
			resp.Regions = rec.Regions
		}
		if options.Verbose && len(rec.Highlights) > 0 {
			resp.Highlights = rec.Highlights
		}
	}

	jsonData, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting JSON: %w", err)
	}
	return string(jsonData), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
