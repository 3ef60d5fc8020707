// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/json"
	"fmt"

	"docrecon/internal/geometry"
)

// FieldValue is the tagged form of an extracted field: a plain string, or a
// string carrying the provenance box it was read from. Upstream producers
// ship either a bare JSON string or a {value, bbox} object; ParseFieldValue
// accepts both. Persistence always uses the plain string form.
type FieldValue struct {
	Value string
	BBox  *geometry.BoundingBox
}

// Plain wraps a bare string value.
func Plain(value string) FieldValue {
	return FieldValue{Value: value}
}

// Provenanced wraps a value together with the page region it came from.
func Provenanced(value string, box geometry.BoundingBox) FieldValue {
	return FieldValue{Value: value, BBox: &box}
}

// HasProvenance reports whether the value carries a source region.
func (fv FieldValue) HasProvenance() bool {
	return fv.BBox != nil
}

// String returns the persistable bare-string form.
func (fv FieldValue) String() string {
	return fv.Value
}

// taggedFieldValue mirrors the {value, bbox} wire shape.
type taggedFieldValue struct {
	Value string                `json:"value"`
	BBox  *geometry.BoundingBox `json:"bbox,omitempty"`
}

// ParseFieldValue normalizes a raw JSON field value into FieldValue form.
// Accepts a bare string, a {value, bbox} object, or a bare number (which
// some producers emit for numeric fields).
func ParseFieldValue(raw json.RawMessage) (FieldValue, error) {
	if len(raw) == 0 {
		return Plain(""), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Plain(s), nil
	}

	var tagged taggedFieldValue
	if err := json.Unmarshal(raw, &tagged); err == nil && (tagged.Value != "" || tagged.BBox != nil) {
		if tagged.BBox != nil {
			return Provenanced(tagged.Value, *tagged.BBox), nil
		}
		return Plain(tagged.Value), nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return Plain(trimFloat(n)), nil
	}

	return FieldValue{}, fmt.Errorf("unrecognized field value shape: %s", string(raw))
}

// ParseFieldMap normalizes a whole field map to the persistable string form.
func ParseFieldMap(raw map[string]json.RawMessage) (map[string]string, error) {
	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		fv, err := ParseFieldValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = fv.Value
	}
	return fields, nil
}

func trimFloat(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
