// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"docrecon/internal/formatters"
	"docrecon/internal/formatters/shared"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML output for configuration pipelines and human review"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

type response struct {
	DocumentID  string           `yaml:"document_id"`
	Status      string           `yaml:"status,omitempty"`
	Rows        []shared.RowView `yaml:"rows,omitempty"`
	Calculation any              `yaml:"calculation,omitempty"`
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
		resp.Calculation = rec.Calculation
	}

	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("error formatting YAML: %w", err)
	}
	return string(data), nil
}

func init() {
	formatters.Register(NewFormatter())
}
