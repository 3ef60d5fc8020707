// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract pulls embedded text and word positions out of digital
// PDFs, for documents that arrive without an upstream OCR payload.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docrecon/internal/document"
	"docrecon/internal/geometry"
	"docrecon/internal/pagesize"
)

// maxPages bounds processing time on very large PDFs.
const maxPages = 50

// FromPDF extracts text and word bounding boxes from an embedded-text PDF.
// Scanned image PDFs yield empty output; those need a real OCR pass
// upstream.
func FromPDF(path string) (*document.ExtractionResult, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %v", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	if pageCount > maxPages {
		pageCount = maxPages
	}

	ref, err := pagesize.FromPDF(path)
	if err != nil {
		ref = geometry.DefaultReference
	}

	var buf bytes.Buffer
	var words []document.WordBox

	for i := 1; i <= pageCount; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err == nil && text != "" {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(text)
		}

		words = append(words, pageWords(p, ref)...)
	}

	return &document.ExtractionResult{
		ExtractedText:     strings.TrimSpace(buf.String()),
		WordBoundingBoxes: words,
		ReferenceSize:     &ref,
	}, nil
}

// pageWords merges the page's positioned text chunks into word boxes. PDF
// coordinates grow upward, so Y flips to the top-left origin the rest of
// the pipeline expects.
func pageWords(p pdf.Page, ref geometry.ReferenceDimensions) []document.WordBox {
	content := p.Content()
	var words []document.WordBox

	var current strings.Builder
	var x, y, right, size float64

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			words = append(words, document.WordBox{
				Text: text,
				BBox: geometry.Normalize(geometry.BoundingBox{
					X:      x,
					Y:      ref.Height - y - size,
					Width:  right - x,
					Height: size,
				}, ref),
			})
		}
		current.Reset()
	}

	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		// A new chunk that is not adjacent to the previous one starts a
		// new word.
		if current.Len() > 0 && (t.Y != y || t.X > right+t.FontSize/2) {
			flush()
		}
		if current.Len() == 0 {
			x, y, size = t.X, t.Y, t.FontSize
		}
		current.WriteString(t.S)
		right = t.X + t.W
	}
	flush()

	return words
}
