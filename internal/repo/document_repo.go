// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// (Code of Practice) model and its soft-delete lifecycle.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/descode/descode-backend/internal/domain"
)

// CreateDocument inserts a new reference document. The uploader is recorded
// as the first editor.
func CreateDocument(ctx context.Context, db *gorm.DB, name, contentRef, uploaderID string) (*domain.Document, error) {
	now := time.Now().UTC()
	d := &domain.Document{
		ID:         uuid.NewString(),
		Name:       name,
		ContentRef: contentRef,
		UploaderID: uploaderID,
		EditorID:   uploaderID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns all non-deleted documents, oldest first.
func ListDocuments(ctx context.Context, db *gorm.DB) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetDocument fetches a non-deleted document by ID, or ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id string) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReplaceDocumentFile swaps a document's stored content reference and
// records the editor. Returns ErrNotFound for missing or deleted documents.
func ReplaceDocumentFile(ctx context.Context, db *gorm.DB, id, contentRef, editorID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]any{
			"content_ref": contentRef,
			"editor_id":   editorID,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteDocument flags a document deleted and clears its content
// reference. The row is retained for audit.
func SoftDeleteDocument(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]any{
			"deleted":     true,
			"content_ref": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
