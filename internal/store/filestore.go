// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"docrecon/internal/document"
	"docrecon/internal/ledger"
)

// record is the on-disk shape, one YAML file per document.
type record struct {
	Version        string             `yaml:"version"`
	Document       *document.Document `yaml:"document"`
	Reconciliation *Reconciliation    `yaml:"reconciliation,omitempty"`
}

const recordVersion = "1.0"

// FileStore persists each document as a YAML file under a directory. Writes
// to the same document are serialized through a per-document mutex so an
// operator action and a recomputation cannot interleave.
type FileStore struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{
		dir:   dir,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *FileStore) path(id string) string {
	// Document ids are uuids, but guard against path traversal anyway.
	safe := strings.ReplaceAll(filepath.Base(id), string(os.PathSeparator), "_")
	return filepath.Join(s.dir, safe+".yaml")
}

func (s *FileStore) load(id string) (*record, error) {
	data, err := os.ReadFile(filepath.Clean(s.path(id)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) save(id string, rec *record) error {
	rec.Version = recordVersion
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(s.path(id), data, 0600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (s *FileStore) SaveDocument(_ context.Context, doc *document.Document) error {
	l := s.lock(doc.ID)
	l.Lock()
	defer l.Unlock()

	rec, err := s.load(doc.ID)
	if err != nil {
		if err != ErrNotFound {
			return err
		}
		rec = &record{}
	}

	cp := *doc
	cp.UpdatedAt = s.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}
	rec.Document = &cp
	return s.save(doc.ID, rec)
}

func (s *FileStore) GetDocument(_ context.Context, id string) (*document.Document, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if rec.Document == nil {
		return nil, ErrNotFound
	}
	return rec.Document, nil
}

func (s *FileStore) ListByStatus(_ context.Context, status document.ValidationStatus) ([]*document.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var out []*document.Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".yaml")
		rec, err := s.load(id)
		if err != nil || rec.Document == nil {
			continue
		}
		if rec.Document.Status == status {
			out = append(out, rec.Document)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) SetStatus(_ context.Context, id string, status document.ValidationStatus) error {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	rec, err := s.load(id)
	if err != nil {
		return err
	}
	if rec.Document == nil {
		return ErrNotFound
	}
	rec.Document.Status = status
	rec.Document.UpdatedAt = s.now()
	return s.save(id, rec)
}

func (s *FileStore) GetReconciliation(_ context.Context, docID string) (*Reconciliation, error) {
	rec, err := s.load(docID)
	if err != nil {
		return nil, err
	}
	if rec.Reconciliation == nil {
		return nil, ErrNotFound
	}
	return rec.Reconciliation, nil
}

func (s *FileStore) SaveReconciliation(_ context.Context, in *Reconciliation) error {
	l := s.lock(in.DocumentID)
	l.Lock()
	defer l.Unlock()

	rec, err := s.load(in.DocumentID)
	if err != nil {
		if err != ErrNotFound {
			return err
		}
		rec = &record{}
	}

	cp := in.Clone()
	mergeSticky(cp, rec.Reconciliation)
	cp.UpdatedAt = s.now()
	rec.Reconciliation = cp
	return s.save(in.DocumentID, rec)
}

func (s *FileStore) ApplyAction(_ context.Context, docID string, row int, action ledger.Action, operator string) (*Reconciliation, error) {
	l := s.lock(docID)
	l.Lock()
	defer l.Unlock()

	rec, err := s.load(docID)
	if err != nil {
		return nil, err
	}
	if rec.Reconciliation == nil {
		return nil, ErrNotFound
	}

	cp := *rec.Reconciliation
	if err := applyAction(&cp, row, action, operator, s.now()); err != nil {
		return nil, err
	}
	rec.Reconciliation = &cp
	if err := s.save(docID, rec); err != nil {
		return nil, err
	}
	return &cp, nil
}
