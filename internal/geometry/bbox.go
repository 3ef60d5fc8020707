// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package geometry

import "math"

// Tolerance allowed when checking that a box stays inside the page.
const edgeTolerance = 0.5

// BoundingBox describes a rectangular page region in percentage-of-page
// coordinates: all four values are in [0, 100] once normalized.
type BoundingBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ReferenceDimensions declares the pixel size a non-normalized box was
// measured against.
type ReferenceDimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DefaultReference is assumed when a producer ships absolute pixel
// coordinates without declaring its page size.
var DefaultReference = ReferenceDimensions{Width: 1000, Height: 1000}

// IsValid reports whether the box has finite, non-negative extent and stays
// on the page within tolerance.
func (b BoundingBox) IsValid() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if b.X < 0 || b.Y < 0 || b.Width < 0 || b.Height < 0 {
		return false
	}
	return b.X+b.Width <= 100+edgeTolerance && b.Y+b.Height <= 100+edgeTolerance
}

// IsNormalized reports whether every component already fits the percentage
// coordinate space. Boxes with any component above 100 are treated as
// absolute pixel coordinates.
func (b BoundingBox) IsNormalized() bool {
	return b.X <= 100 && b.Y <= 100 && b.Width <= 100 && b.Height <= 100
}

// Normalize converts a box of unknown provenance into percentage space.
// Already-normalized boxes pass through unchanged, so the operation is
// idempotent. Absolute boxes are rescaled against ref; a zero ref falls back
// to DefaultReference.
func Normalize(b BoundingBox, ref ReferenceDimensions) BoundingBox {
	if b.IsNormalized() {
		return b
	}
	if ref.Width <= 0 || ref.Height <= 0 {
		ref = DefaultReference
	}
	return BoundingBox{
		X:      b.X / ref.Width * 100,
		Y:      b.Y / ref.Height * 100,
		Width:  b.Width / ref.Width * 100,
		Height: b.Height / ref.Height * 100,
	}
}

// Union returns the smallest box covering every input box. The second return
// is false for an empty input.
func Union(boxes []BoundingBox) (BoundingBox, bool) {
	if len(boxes) == 0 {
		return BoundingBox{}, false
	}

	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].X+boxes[0].Width, boxes[0].Y+boxes[0].Height

	for _, b := range boxes[1:] {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.Width)
		maxY = math.Max(maxY, b.Y+b.Height)
	}

	return BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Near reports whether two boxes are within dist of each other on both axes,
// comparing their top-left corners. Used for deduplicating detector output
// that flags the same page area twice with slightly different geometry.
func Near(a, b BoundingBox, dist float64) bool {
	return math.Abs(a.X-b.X) <= dist &&
		math.Abs(a.Y-b.Y) <= dist &&
		math.Abs(a.Width-b.Width) <= dist &&
		math.Abs(a.Height-b.Height) <= dist
}
