// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redaction

import (
	"docrecon/internal/document"
	"docrecon/internal/geometry"
	"docrecon/internal/highlight"
)

// Proximity within which two same-category boxes count as the same finding.
const dedupeTolerance = 1.0

// Compositor merges PII and compliance detections into one overlay list.
type Compositor struct {
	matcher *highlight.Matcher
	ref     geometry.ReferenceDimensions
}

// NewCompositor creates a compositor. The matcher drives the text fallback
// when PII detections arrive without geometry.
func NewCompositor(ref geometry.ReferenceDimensions) *Compositor {
	return &Compositor{
		matcher: highlight.NewMatcher(ref),
		ref:     ref,
	}
}

// Composite merges the two detector channels into one ordered region list.
// PII regions come first, then compliance regions; within a kind, duplicate
// (category, box) findings collapse to the first occurrence. Regions with
// valid geometry are never dropped. If the PII channel produced findings
// but none carry valid geometry, regions are re-derived by matching the
// detection text against the document's word boxes; that fallback never
// runs when at least one valid-geometry region exists.
func (c *Compositor) Composite(doc *document.Document, pii, compliance []Detection) []Region {
	piiRegions := c.buildRegions(KindPII, pii)

	if len(pii) > 0 && !anyRenderable(piiRegions) {
		if derived := c.deriveFromText(doc, pii); len(derived) > 0 {
			piiRegions = derived
		}
	}

	regions := dedupe(piiRegions)
	regions = append(regions, dedupe(c.buildRegions(KindCompliance, compliance))...)
	return regions
}

// buildRegions normalizes detections into tagged regions.
func (c *Compositor) buildRegions(kind Kind, detections []Detection) []Region {
	var regions []Region
	for _, d := range detections {
		region := Region{
			Kind:     kind,
			Category: d.Category,
			Severity: d.Severity,
			Text:     d.Text,
		}
		if d.BoundingBox != nil {
			normalized := geometry.Normalize(*d.BoundingBox, c.ref)
			if normalized.IsValid() {
				region.BBox = &normalized
				region.Renderable = true
			}
		}
		regions = append(regions, region)
	}
	return regions
}

// deriveFromText re-derives region geometry by matching detection text
// against the stored word boxes.
func (c *Compositor) deriveFromText(doc *document.Document, detections []Detection) []Region {
	var regions []Region
	for _, d := range detections {
		region := Region{
			Kind:     KindPII,
			Category: d.Category,
			Severity: d.Severity,
			Text:     d.Text,
		}
		if box, ok := c.matcher.FieldRegion(d.Text, doc.WordBoxes); ok && box.IsValid() {
			region.BBox = &box
			region.Renderable = true
		}
		regions = append(regions, region)
	}
	return regions
}

// dedupe collapses same-category regions whose boxes sit within the
// proximity tolerance. Text-only regions dedupe on (category, text).
func dedupe(regions []Region) []Region {
	var kept []Region
	seenText := make(map[string]bool)

	for _, region := range regions {
		if !region.HasGeometry() {
			key := region.Category + "\x00" + region.Text
			if seenText[key] {
				continue
			}
			seenText[key] = true
			kept = append(kept, region)
			continue
		}

		duplicate := false
		for _, existing := range kept {
			if !existing.HasGeometry() || existing.Category != region.Category {
				continue
			}
			if geometry.Near(*existing.BBox, *region.BBox, dedupeTolerance) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, region)
		}
	}

	return kept
}

func anyRenderable(regions []Region) bool {
	for _, r := range regions {
		if r.Renderable {
			return true
		}
	}
	return false
}
