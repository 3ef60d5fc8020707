// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/json"
	"testing"
)

func TestParseFieldValue_BareString(t *testing.T) {
	fv, err := ParseFieldValue(json.RawMessage(`"INV-0042"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.Value != "INV-0042" {
		t.Errorf("expected INV-0042, got %q", fv.Value)
	}
	if fv.HasProvenance() {
		t.Error("bare string should have no provenance")
	}
}

func TestParseFieldValue_TaggedWithBox(t *testing.T) {
	raw := json.RawMessage(`{"value":"Acme Corp","bbox":{"x":10,"y":5,"width":30,"height":2}}`)
	fv, err := ParseFieldValue(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.Value != "Acme Corp" {
		t.Errorf("expected Acme Corp, got %q", fv.Value)
	}
	if !fv.HasProvenance() {
		t.Fatal("expected provenance box")
	}
	if fv.BBox.X != 10 || fv.BBox.Width != 30 {
		t.Errorf("unexpected box %+v", *fv.BBox)
	}
}

func TestParseFieldValue_TaggedWithoutBox(t *testing.T) {
	fv, err := ParseFieldValue(json.RawMessage(`{"value":"hello"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.Value != "hello" || fv.HasProvenance() {
		t.Errorf("expected plain hello, got %+v", fv)
	}
}

func TestParseFieldValue_Number(t *testing.T) {
	fv, err := ParseFieldValue(json.RawMessage(`42`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.Value != "42" {
		t.Errorf("expected \"42\", got %q", fv.Value)
	}
}

func TestParseFieldValue_Empty(t *testing.T) {
	fv, err := ParseFieldValue(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fv.Value != "" {
		t.Errorf("expected empty value, got %q", fv.Value)
	}
}

func TestParseFieldMap(t *testing.T) {
	raw := map[string]json.RawMessage{
		"invoice_number": json.RawMessage(`"INV-1"`),
		"vendor":         json.RawMessage(`{"value":"Acme","bbox":{"x":1,"y":1,"width":5,"height":1}}`),
		"total":          json.RawMessage(`25.5`),
	}
	fields, err := ParseFieldMap(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// All values must come back as bare strings for persistence.
	if fields["invoice_number"] != "INV-1" || fields["vendor"] != "Acme" || fields["total"] != "25.5" {
		t.Errorf("unexpected field map %v", fields)
	}
}
