// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pagesize determines the reference page dimensions used to
// normalize bounding boxes, from the scanned source file itself.
package pagesize

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rwcarlsen/goexif/exif"

	"docrecon/internal/geometry"
)

// FromFile resolves the page size for a scanned source by file type.
// Unknown types fall back to the default reference space.
func FromFile(path string) (geometry.ReferenceDimensions, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FromPDF(path)
	case ".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff":
		return FromImage(path)
	default:
		return geometry.DefaultReference, nil
	}
}

// FromPDF reads the first page's media box dimensions.
func FromPDF(path string) (geometry.ReferenceDimensions, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return geometry.DefaultReference, fmt.Errorf("failed to read PDF: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return geometry.DefaultReference, fmt.Errorf("failed to read PDF page dimensions: %w", err)
	}
	return firstPageDims(dims)
}

// firstPageDims picks the first page's dimensions out of the media boxes.
func firstPageDims(dims []types.Dim) (geometry.ReferenceDimensions, error) {
	if len(dims) == 0 {
		return geometry.DefaultReference, errors.New("PDF has no pages")
	}
	return geometry.ReferenceDimensions{Width: dims[0].Width, Height: dims[0].Height}, nil
}

// FromImage reads pixel dimensions, preferring EXIF metadata and falling
// back to decoding the image header.
func FromImage(path string) (geometry.ReferenceDimensions, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return geometry.DefaultReference, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	if x, err := exif.Decode(f); err == nil {
		w, werr := exifInt(x, exif.PixelXDimension)
		h, herr := exifInt(x, exif.PixelYDimension)
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return geometry.ReferenceDimensions{Width: float64(w), Height: float64(h)}, nil
		}
	}

	if _, err := f.Seek(0, 0); err != nil {
		return geometry.DefaultReference, err
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return geometry.DefaultReference, fmt.Errorf("failed to decode image header: %w", err)
	}
	return geometry.ReferenceDimensions{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

func exifInt(x *exif.Exif, field exif.FieldName) (int, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}
