// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"docrecon/internal/document"
	"docrecon/internal/ledger"
)

// MemoryStore keeps everything in process memory. It backs tests and
// single-shot CLI runs where nothing needs to outlive the process.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
	recs map[string]*Reconciliation
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*document.Document),
		recs: make(map[string]*Reconciliation),
		now:  time.Now,
	}
}

func (s *MemoryStore) SaveDocument(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *doc
	cp.UpdatedAt = s.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}
	s.docs[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status document.ValidationStatus) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*document.Document
	for _, doc := range s.docs {
		if doc.Status == status {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, status document.ValidationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) GetReconciliation(_ context.Context, docID string) (*Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recs[docID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) SaveReconciliation(_ context.Context, rec *Reconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := rec.Clone()
	mergeSticky(cp, s.recs[rec.DocumentID])
	cp.UpdatedAt = s.now()
	s.recs[rec.DocumentID] = cp
	return nil
}

func (s *MemoryStore) ApplyAction(_ context.Context, docID string, row int, action ledger.Action, operator string) (*Reconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[docID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rec.Clone()
	if err := applyAction(cp, row, action, operator, s.now()); err != nil {
		return nil, err
	}
	s.recs[docID] = cp
	return cp.Clone(), nil
}
