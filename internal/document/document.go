// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"time"

	"docrecon/internal/geometry"
)

// ValidationStatus tracks where a document sits in the review workflow.
type ValidationStatus string

const (
	StatusPending   ValidationStatus = "pending"
	StatusValidated ValidationStatus = "validated"
	StatusRejected  ValidationStatus = "rejected"
)

// WordBox is one OCR word with its page geometry. The word sequence is
// produced once by the extraction engine and never mutated here.
type WordBox struct {
	Text string               `json:"text" yaml:"text"`
	BBox geometry.BoundingBox `json:"bbox" yaml:"bbox"`
}

// LineItem is one row of a tabular extraction (a petition signature, an
// invoice line). Columns preserves the extraction order of the cells, which
// map iteration would lose.
type LineItem struct {
	Columns []string       `json:"columns" yaml:"columns"`
	Cells   map[string]any `json:"cells" yaml:"cells"`
}

// Cell returns the named cell value, or nil when the column is absent.
func (li LineItem) Cell(name string) any {
	if li.Cells == nil {
		return nil
	}
	return li.Cells[name]
}

// Document is the engine's unit of work: one captured document with its
// extraction output and the reconciliation state layered on top.
type Document struct {
	ID            string                       `json:"id" yaml:"id"`
	BatchID       string                       `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	ExtractedText string                       `json:"extracted_text" yaml:"extracted_text"`
	WordBoxes     []WordBox                    `json:"word_bounding_boxes" yaml:"word_bounding_boxes"`
	ReferenceSize geometry.ReferenceDimensions `json:"reference_size,omitempty" yaml:"reference_size,omitempty"`

	// Reconciled field values are persisted string-only; provenance boxes
	// live only in matcher output.
	Fields          map[string]string  `json:"extracted_metadata" yaml:"extracted_metadata"`
	FieldConfidence map[string]float64 `json:"field_confidence" yaml:"field_confidence"`

	LineItems []LineItem       `json:"line_items,omitempty" yaml:"line_items,omitempty"`
	Status    ValidationStatus `json:"validation_status" yaml:"validation_status"`

	CreatedAt  time.Time  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	ExportedAt *time.Time `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
}

// Exported reports whether the document has been shipped downstream and is
// therefore immutable.
func (d *Document) Exported() bool {
	return d.ExportedAt != nil
}

// ExtractionResult is the payload consumed from the extraction engine.
type ExtractionResult struct {
	ExtractedText     string                        `json:"extractedText"`
	WordBoundingBoxes []WordBox                     `json:"wordBoundingBoxes"`
	Fields            map[string]string             `json:"fields"`
	FieldConfidence   map[string]float64            `json:"fieldConfidence"`
	LineItems         []LineItem                    `json:"lineItems,omitempty"`
	ReferenceSize     *geometry.ReferenceDimensions `json:"referenceSize,omitempty"`
}
