// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redaction merges independently detected sensitive regions into a
// single non-overlapping overlay list.
package redaction

import "docrecon/internal/geometry"

// Kind is the closed set of region sources. Kinds are never merged with
// each other so the overlay can style them differently.
type Kind string

const (
	KindPII        Kind = "pii"
	KindCompliance Kind = "compliance"
)

// Region is one page area flagged for obscuring. BBox is nil when the
// detector returned text-only output.
type Region struct {
	Kind     Kind                  `json:"type"`
	Category string                `json:"category"`
	Severity string                `json:"severity,omitempty"`
	Text     string                `json:"text"`
	BBox     *geometry.BoundingBox `json:"bbox,omitempty"`

	// Renderable is false for regions without usable geometry; the UI
	// falls back to a textual listing for those.
	Renderable bool `json:"renderable"`
}

// HasGeometry reports whether the region carries a valid finite box.
func (r Region) HasGeometry() bool {
	return r.BBox != nil && r.BBox.IsValid()
}

// Detection is the raw shape consumed from either detector channel.
type Detection struct {
	Category    string                `json:"category"`
	Severity    string                `json:"severity,omitempty"`
	Text        string                `json:"text"`
	BoundingBox *geometry.BoundingBox `json:"boundingBox,omitempty"`
}
