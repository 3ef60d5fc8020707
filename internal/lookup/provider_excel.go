// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelProvider answers lookups from a worksheet, indexed in memory by
// normalized key. The first row of the sheet is the header.
type ExcelProvider struct {
	path  string
	sheet string
	table *table
}

// NewExcelProvider loads the named sheet (or the first sheet when empty)
// from an .xlsx workbook.
func NewExcelProvider(path, sheet, keyColumn string) (*ExcelProvider, error) {
	workbook, err := excelize.OpenFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	if sheet == "" {
		sheet = workbook.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	tbl, err := newTable(rows, keyColumn)
	if err != nil {
		return nil, fmt.Errorf("index sheet %q of %s: %w", sheet, path, err)
	}

	return &ExcelProvider{path: path, sheet: sheet, table: tbl}, nil
}

func (p *ExcelProvider) Name() string { return "excel" }

// Lookup resolves the request key against the indexed sheet.
func (p *ExcelProvider) Lookup(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.table.lookup(req.KeyValue), nil
}
