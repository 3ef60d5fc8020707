// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"docrecon/internal/formatters"
	"docrecon/internal/formatters/shared"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated row listing for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(report formatters.Report, options formatters.FormatterOptions) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"document_id", "row", "key", "status", "match_score", "reason", "override_by"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	docID := ""
	if report.Document != nil {
		docID = report.Document.ID
	} else if report.Reconciliation != nil {
		docID = report.Reconciliation.DocumentID
	}

	for _, row := range shared.ConvertRows(report, options) {
		reason := row.PartialReason
		if reason == "" {
			reason = row.Message
		}
		record := []string{
			docID,
			strconv.Itoa(row.Index),
			row.Key,
			row.Status,
			strconv.FormatFloat(row.MatchScore, 'f', 2, 64),
			reason,
			row.OverrideBy,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("error writing CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func init() {
	formatters.Register(NewFormatter())
}
