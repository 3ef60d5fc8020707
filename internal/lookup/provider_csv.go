// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lookup

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVProvider answers lookups from a comma-separated file. The file is read
// once and indexed in memory by normalized key.
type CSVProvider struct {
	path  string
	table *table
}

// NewCSVProvider loads and indexes the file at path, keyed by keyColumn.
func NewCSVProvider(path, keyColumn string) (*CSVProvider, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open lookup source: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse lookup source %s: %w", path, err)
	}

	tbl, err := newTable(records, keyColumn)
	if err != nil {
		return nil, fmt.Errorf("index lookup source %s: %w", path, err)
	}

	return &CSVProvider{path: path, table: tbl}, nil
}

func (p *CSVProvider) Name() string { return "csv" }

// Lookup resolves the request key against the indexed table.
func (p *CSVProvider) Lookup(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.table.lookup(req.KeyValue), nil
}

// table is the shared in-memory index used by the file-backed providers.
type table struct {
	columns []string
	byKey   map[string]map[string]string
}

func newTable(records [][]string, keyColumn string) (*table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("source has no header row")
	}

	header := records[0]
	keyCol, ok := ResolveColumn(keyColumn, header)
	if !ok {
		return nil, fmt.Errorf("key column %q not found in source header", keyColumn)
	}

	keyIdx := -1
	for i, col := range header {
		if col == keyCol {
			keyIdx = i
			break
		}
	}

	tbl := &table{
		columns: header,
		byKey:   make(map[string]map[string]string, len(records)-1),
	}

	for _, record := range records[1:] {
		if keyIdx >= len(record) {
			continue
		}
		key := NormalizeKey(record[keyIdx])
		if key == "" {
			continue
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		// First occurrence wins for duplicate keys.
		if _, exists := tbl.byKey[key]; !exists {
			tbl.byKey[key] = row
		}
	}

	return tbl, nil
}

func (t *table) lookup(keyValue string) *Response {
	row, ok := t.byKey[NormalizeKey(keyValue)]
	if !ok {
		return &Response{Found: false}
	}
	return &Response{Found: true, Row: row}
}
