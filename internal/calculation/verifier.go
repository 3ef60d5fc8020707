// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package calculation checks line-item arithmetic against document-level
// totals.
package calculation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"docrecon/internal/document"
)

// Tolerance in absolute currency units below which the totals are
// considered equal.
const varianceTolerance = 0.01

var amountColumnHints = []string{"total", "amount", "price", "extended", "subtotal"}
var totalFieldHints = []string{"total", "amount", "grand", "balance", "due"}

// Check is the result of one calculation verification.
type Check struct {
	LineItemsTotal  float64 `json:"lineItemsTotal"`
	DocumentTotal   float64 `json:"documentTotal"`
	Variance        float64 `json:"variance"`
	VariancePercent float64 `json:"variancePercent"`
	Matches         bool    `json:"matches"`
	// Skipped is set when the document has no amount-like line-item values
	// or no positive total-like field. Absence of a total is normal for
	// non-financial document types.
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// Verify sums the first valid amount per line item and compares against the
// document's total field.
func Verify(lineItems []document.LineItem, fields map[string]string, fieldOrder []string) Check {
	sum, sawAmount := sumLineItems(lineItems)
	anchor, sawAnchor := findTotalAnchor(fields, fieldOrder)

	if !sawAmount || !sawAnchor {
		return Check{Skipped: true}
	}

	variance := math.Abs(sum - anchor)
	check := Check{
		LineItemsTotal: round2(sum),
		DocumentTotal:  round2(anchor),
		Variance:       round2(variance),
		Matches:        variance < varianceTolerance,
	}
	if anchor != 0 {
		check.VariancePercent = round2(variance / anchor * 100)
	}
	if !check.Matches {
		check.Message = fmt.Sprintf("calculation variance detected: line items sum to %.2f but document total is %.2f", sum, anchor)
	}
	return check
}

// sumLineItems takes the first valid positive amount per row across
// amount-like columns.
func sumLineItems(lineItems []document.LineItem) (float64, bool) {
	var sum float64
	saw := false

	for _, item := range lineItems {
		for _, col := range orderedColumns(item) {
			if !isAmountColumn(col) {
				continue
			}
			amount, ok := ParseAmount(item.Cell(col))
			if !ok || amount == 0 {
				continue
			}
			sum += amount
			saw = true
			break
		}
	}

	return sum, saw
}

// findTotalAnchor returns the first positive numeric total-like field,
// preferring declaration order when the caller supplies one.
func findTotalAnchor(fields map[string]string, fieldOrder []string) (float64, bool) {
	names := fieldOrder
	if len(names) == 0 {
		names = make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		// Deterministic without a declared order.
		sort.Strings(names)
	}

	for _, name := range names {
		if !isTotalField(name) {
			continue
		}
		if amount, ok := ParseAmount(fields[name]); ok && amount > 0 {
			return amount, true
		}
	}
	return 0, false
}

func orderedColumns(item document.LineItem) []string {
	if len(item.Columns) > 0 {
		return item.Columns
	}
	cols := make([]string, 0, len(item.Cells))
	for col := range item.Cells {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func isAmountColumn(name string) bool {
	return containsAnyHint(name, amountColumnHints)
}

func isTotalField(name string) bool {
	return containsAnyHint(name, totalFieldHints)
}

func containsAnyHint(name string, hints []string) bool {
	lower := strings.ToLower(name)
	for _, hint := range hints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// ParseAmount converts a cell value to a number, tolerating currency
// formatting ("$1,234.50"). Non-numeric values are skipped, not errors.
func ParseAmount(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		cleaned := strings.TrimSpace(v)
		cleaned = strings.ReplaceAll(cleaned, "$", "")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if cleaned == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
