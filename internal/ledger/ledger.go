// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ledger records operator approve/reject decisions per line item and
// keeps them sticky across automated re-validation.
package ledger

import (
	"fmt"
	"time"
)

// Action is what an operator did to one row.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionClear   Action = "clear"
)

// Entry is the sticky per-row subset that recomputation must never clobber.
// OverrideApproved and Rejected are mutually exclusive.
type Entry struct {
	OverrideApproved bool       `json:"overrideApproved" yaml:"override_approved"`
	Rejected         bool       `json:"rejected" yaml:"rejected"`
	OverrideAt       *time.Time `json:"overrideAt,omitempty" yaml:"override_at,omitempty"`
	OverrideBy       string     `json:"overrideBy,omitempty" yaml:"override_by,omitempty"`
}

// Reviewed reports whether an operator has acted on the row.
func (e Entry) Reviewed() bool {
	return e.OverrideApproved || e.Rejected
}

// Apply transitions the entry for an operator action. Approve and reject may
// flip back and forth (the operator can change their mind) but are never
// both set. Every transition stamps the actor and time.
func Apply(entry Entry, action Action, operator string, at time.Time) (Entry, error) {
	switch action {
	case ActionApprove:
		entry.OverrideApproved = true
		entry.Rejected = false
	case ActionReject:
		entry.Rejected = true
		entry.OverrideApproved = false
	case ActionClear:
		entry.OverrideApproved = false
		entry.Rejected = false
	default:
		return entry, fmt.Errorf("unknown ledger action %q", action)
	}

	entry.OverrideAt = &at
	entry.OverrideBy = operator
	return entry, nil
}

// Merge carries sticky entries from a prior result set into a freshly
// recomputed one, keyed by row index. Fresh rows with no prior entry are
// left untouched; prior entries for rows that no longer exist are dropped.
func Merge(fresh []Entry, prior map[int]Entry) []Entry {
	for index, entry := range prior {
		if index < 0 || index >= len(fresh) {
			continue
		}
		if entry.Reviewed() {
			fresh[index] = entry
		}
	}
	return fresh
}
