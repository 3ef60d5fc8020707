// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"docrecon/internal/formatters"
	"docrecon/internal/formatters/shared"
)

// Formatter implements human-readable text output
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"white":  color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report for terminal review"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report formatters.Report, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var sb strings.Builder

	docID := ""
	if report.Document != nil {
		docID = report.Document.ID
	} else if report.Reconciliation != nil {
		docID = report.Reconciliation.DocumentID
	}
	sb.WriteString(f.colors["white"].Sprintf("Reconciliation report: %s\n", docID))

	rec := report.Reconciliation
	if rec == nil {
		sb.WriteString("  (not yet reconciled)\n")
		return sb.String(), nil
	}

	if v := rec.Validation; v != nil {
		sb.WriteString(fmt.Sprintf("  Rows: %d total, ", v.TotalItems))
		sb.WriteString(f.colors["green"].Sprintf("%d valid", v.ValidCount))
		sb.WriteString(", ")
		sb.WriteString(f.colors["red"].Sprintf("%d invalid", v.InvalidCount))
		sb.WriteString(", ")
		sb.WriteString(f.colors["yellow"].Sprintf("%d rejected", v.RejectedCount))
		sb.WriteString("\n")
	}

	if rec.Calculation.Skipped {
		sb.WriteString("  Totals check: skipped (no amounts found)\n")
	} else if rec.Calculation.Matches {
		sb.WriteString(f.colors["green"].Sprintf("  Totals check: OK (%.2f)\n", rec.Calculation.DocumentTotal))
	} else {
		sb.WriteString(f.colors["red"].Sprintf("  Totals check: variance %.2f (%.2f%%)\n",
			rec.Calculation.Variance, rec.Calculation.VariancePercent))
	}

	if n := len(rec.Regions); n > 0 {
		sb.WriteString(f.colors["cyan"].Sprintf("  Redaction regions: %d\n", n))
	}

	rows := shared.ConvertRows(report, options)
	if len(rows) > 0 {
		sb.WriteString("\n")
		for _, row := range rows {
			line := fmt.Sprintf("  [%d] %s  %s  score=%.2f", row.Index, row.Status, row.Key, row.MatchScore)
			if row.PartialReason != "" {
				line += "  " + row.PartialReason
			}
			if options.Verbose && row.Message != "" {
				line += "  " + row.Message
			}
			if row.OverrideBy != "" {
				line += "  by " + row.OverrideBy
			}

			switch row.Status {
			case shared.StatusValid:
				sb.WriteString(f.colors["green"].Sprint(line))
			case shared.StatusRejected:
				sb.WriteString(f.colors["yellow"].Sprint(line))
			case shared.StatusReview:
				sb.WriteString(f.colors["cyan"].Sprint(line))
			default:
				sb.WriteString(f.colors["red"].Sprint(line))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

func init() {
	formatters.Register(NewFormatter())
}
