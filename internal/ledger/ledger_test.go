// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"testing"
	"time"
)

func TestApply_ApproveThenReject(t *testing.T) {
	now := time.Now()

	entry, err := Apply(Entry{}, ActionApprove, "operator-1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.OverrideApproved || entry.Rejected {
		t.Errorf("expected approved only, got %+v", entry)
	}
	if entry.OverrideBy != "operator-1" || entry.OverrideAt == nil {
		t.Error("transition must stamp operator and time")
	}

	// The operator changes their mind. Both flags must never be set.
	later := now.Add(time.Minute)
	entry, err = Apply(entry, ActionReject, "operator-1", later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.OverrideApproved || !entry.Rejected {
		t.Errorf("expected rejected only, got %+v", entry)
	}
	if !entry.OverrideAt.Equal(later) {
		t.Error("re-transition must restamp time")
	}
}

func TestApply_Clear(t *testing.T) {
	entry, _ := Apply(Entry{}, ActionReject, "op", time.Now())
	entry, err := Apply(entry, ActionClear, "op", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Reviewed() {
		t.Errorf("expected unreviewed after clear, got %+v", entry)
	}
}

func TestApply_UnknownAction(t *testing.T) {
	if _, err := Apply(Entry{}, Action("promote"), "op", time.Now()); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestMerge_PreservesStickyEntries(t *testing.T) {
	now := time.Now()
	approved, _ := Apply(Entry{}, ActionApprove, "op", now)

	fresh := make([]Entry, 5)
	merged := Merge(fresh, map[int]Entry{3: approved})

	if !merged[3].OverrideApproved {
		t.Error("row 3 approval must survive recomputation")
	}
	for i, e := range merged {
		if i != 3 && e.Reviewed() {
			t.Errorf("row %d should remain unreviewed", i)
		}
	}
}

func TestMerge_DropsOutOfRangeEntries(t *testing.T) {
	approved, _ := Apply(Entry{}, ActionApprove, "op", time.Now())

	fresh := make([]Entry, 2)
	merged := Merge(fresh, map[int]Entry{7: approved, -1: approved})

	for i, e := range merged {
		if e.Reviewed() {
			t.Errorf("row %d should not inherit an out-of-range entry", i)
		}
	}
}

func TestMerge_IgnoresUnreviewedPrior(t *testing.T) {
	fresh := []Entry{{OverrideApproved: true}}
	merged := Merge(fresh, map[int]Entry{0: {}})
	if !merged[0].OverrideApproved {
		t.Error("an unreviewed prior entry must not clobber fresh state")
	}
}
