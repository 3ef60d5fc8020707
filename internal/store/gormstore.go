// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docrecon/internal/document"
	"docrecon/internal/ledger"
)

// documentRow is the database shape. The document and reconciliation are
// stored as JSON so schema churn in either does not require migrations.
type documentRow struct {
	ID             string `gorm:"primaryKey"`
	BatchID        string `gorm:"index"`
	Status         string `gorm:"index"`
	Document       []byte `gorm:"type:jsonb"`
	Reconciliation []byte `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (documentRow) TableName() string { return "documents" }

// GormStore persists records in Postgres. Read-merge-write sequences run in
// a transaction with the row locked, so concurrent operator actions and
// recomputations serialize at the database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore opens a Postgres connection and migrates the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

func (s *GormStore) SaveDocument(ctx context.Context, doc *document.Document) error {
	now := s.now()
	cp := *doc
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	payload, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	row := documentRow{
		ID:       doc.ID,
		BatchID:  doc.BatchID,
		Status:   string(doc.Status),
		Document: payload,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"batch_id", "status", "document", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	var row documentRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeDocument(&row)
}

func (s *GormStore) ListByStatus(ctx context.Context, status document.ValidationStatus) ([]*document.Document, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).Where("status = ?", string(status)).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*document.Document, 0, len(rows))
	for i := range rows {
		doc, err := decodeDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *GormStore) SetStatus(ctx context.Context, id string, status document.ValidationStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		doc, err := decodeDocument(&row)
		if err != nil {
			return err
		}
		doc.Status = status
		doc.UpdatedAt = s.now()
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		return tx.Model(&documentRow{}).Where("id = ?", id).Updates(map[string]any{
			"status":   string(status),
			"document": payload,
		}).Error
	})
}

func (s *GormStore) GetReconciliation(ctx context.Context, docID string) (*Reconciliation, error) {
	var row documentRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeReconciliation(&row)
}

func (s *GormStore) SaveReconciliation(ctx context.Context, in *Reconciliation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", in.DocumentID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = documentRow{ID: in.DocumentID}
		case err != nil:
			return err
		}

		cp := in.Clone()
		if len(row.Reconciliation) > 0 {
			stored, derr := decodeReconciliation(&row)
			if derr != nil {
				return derr
			}
			mergeSticky(cp, stored)
		}
		cp.UpdatedAt = s.now()

		payload, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("failed to marshal reconciliation: %w", err)
		}
		row.Reconciliation = payload
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reconciliation", "updated_at"}),
		}).Create(&row).Error
	})
}

func (s *GormStore) ApplyAction(ctx context.Context, docID string, row int, action ledger.Action, operator string) (*Reconciliation, error) {
	var out *Reconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbRow documentRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&dbRow, "id = ?", docID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		rec, err := decodeReconciliation(&dbRow)
		if err != nil {
			return err
		}
		if err := applyAction(rec, row, action, operator, s.now()); err != nil {
			return err
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal reconciliation: %w", err)
		}
		if err := tx.Model(&documentRow{}).Where("id = ?", docID).Update("reconciliation", payload).Error; err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeDocument(row *documentRow) (*document.Document, error) {
	if len(row.Document) == 0 {
		return nil, ErrNotFound
	}
	var doc document.Document
	if err := json.Unmarshal(row.Document, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", row.ID, err)
	}
	return &doc, nil
}

func decodeReconciliation(row *documentRow) (*Reconciliation, error) {
	if len(row.Reconciliation) == 0 {
		return nil, ErrNotFound
	}
	var rec Reconciliation
	if err := json.Unmarshal(row.Reconciliation, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode reconciliation %s: %w", row.ID, err)
	}
	return &rec, nil
}
