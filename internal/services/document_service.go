// Package services – DocumentService
//
// This file implements the DocumentService, which governs management of the
// Code of Practice documents that ground assistant answers. It enforces the
// admin-only rule on every mutating operation, stores uploaded files through
// the document store, and persists document metadata. Replacing a document's
// file keeps the same document ID so existing chats keep referring to it;
// deletion is a soft flag so history stays explainable while the document
// stops contributing excerpts.
//
// Service-level errors (e.g. ErrForbidden, ErrDocumentNotFound) are returned
// for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/repo"
)

// DocumentStore abstracts file persistence for document content.
// It is satisfied by *docstore.FileStore.
type DocumentStore interface {
	// Save stores the file content and returns an opaque content reference.
	Save(originalName string, r io.Reader) (string, error)
	// Remove deletes stored content; a missing file is not an error.
	Remove(ref string) error
}

// DocumentService implements the use-cases around Code of Practice documents.
type DocumentService struct {
	// DB is the database handle used for all document operations.
	DB *gorm.DB
	// Store persists the raw document files.
	Store DocumentStore
}

// Upload registers a new document. Admin only. The file content is written to
// the store first; if the metadata insert fails the stored file is removed
// again so no orphan remains.
func (s *DocumentService) Upload(ctx context.Context, userID string, isAdmin bool, name string, file io.Reader) (*domain.Document, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" || file == nil {
		return nil, ErrEmptyDocument
	}

	ref, err := s.Store.Save(name, file)
	if err != nil {
		return nil, err
	}

	doc, err := repo.CreateDocument(ctx, s.DB, name, ref, userID)
	if err != nil {
		_ = s.Store.Remove(ref)
		return nil, err
	}
	return doc, nil
}

// List returns all active (non-deleted) documents. Available to any
// authenticated user so the frontend can show what grounds the assistant.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return repo.ListDocuments(ctx, s.DB)
}

// Get returns a single active document or ErrDocumentNotFound.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := repo.GetDocument(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// Replace swaps the file behind an existing document while keeping its ID,
// recording the acting admin as the last editor. Admin only. The previous
// file is removed from the store after the metadata update succeeds.
func (s *DocumentService) Replace(ctx context.Context, userID string, isAdmin bool, id string, file io.Reader) (*domain.Document, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	if file == nil {
		return nil, ErrEmptyDocument
	}

	doc, err := repo.GetDocument(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	ref, err := s.Store.Save(doc.Name, file)
	if err != nil {
		return nil, err
	}

	oldRef := doc.ContentRef
	if err := repo.ReplaceDocumentFile(ctx, s.DB, id, ref, userID); err != nil {
		_ = s.Store.Remove(ref)
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if oldRef != "" {
		_ = s.Store.Remove(oldRef)
	}

	return repo.GetDocument(ctx, s.DB, id)
}

// Delete soft-deletes a document so it stops contributing excerpts. Admin
// only. The stored file is removed; the metadata row survives with the
// deleted flag set.
func (s *DocumentService) Delete(ctx context.Context, userID string, isAdmin bool, id string) error {
	if !isAdmin {
		return ErrForbidden
	}

	doc, err := repo.GetDocument(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return ErrDocumentNotFound
		}
		return err
	}

	if err := repo.SoftDeleteDocument(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrDocumentNotFound
		}
		return err
	}
	if doc.ContentRef != "" {
		_ = s.Store.Remove(doc.ContentRef)
	}
	return nil
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}
