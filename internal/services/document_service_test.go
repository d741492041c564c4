package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/descode/descode-backend/internal/domain"
)

// ---------- test helpers ----------

func newDocDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:docsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Document{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fakeStore struct {
	saved   []string // refs handed out, in order
	removed []string
	saveErr error
	seq     int
}

func (f *fakeStore) Save(originalName string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	// Drain the reader like a real store would.
	_, _ = io.Copy(io.Discard, r)
	f.seq++
	ref := fmt.Sprintf("stored-%d-%s", f.seq, originalName)
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeStore) Remove(ref string) error {
	f.removed = append(f.removed, ref)
	return nil
}

func newDocService(t *testing.T) (*DocumentService, *fakeStore) {
	t.Helper()
	st := &fakeStore{}
	return &DocumentService{DB: newDocDB(t), Store: st}, st
}

// ---------- Upload ----------

func TestDocumentUpload_AdminOnly(t *testing.T) {
	svc, st := newDocService(t)

	if _, err := svc.Upload(context.Background(), "u1", false, "Fire Code", strings.NewReader("x")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(st.saved) != 0 {
		t.Fatalf("nothing may be stored for a non-admin")
	}
}

func TestDocumentUpload_Validation(t *testing.T) {
	svc, _ := newDocService(t)

	if _, err := svc.Upload(context.Background(), "admin", true, "   ", strings.NewReader("x")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument for blank name, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "admin", true, "Fire Code", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument for nil file, got %v", err)
	}
}

func TestDocumentUpload_StoresFileAndMetadata(t *testing.T) {
	svc, st := newDocService(t)

	doc, err := svc.Upload(context.Background(), "admin", true, "Fire Code", strings.NewReader("extracted text"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Name != "Fire Code" || doc.UploaderID != "admin" || doc.EditorID != "admin" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(st.saved) != 1 || doc.ContentRef != st.saved[0] {
		t.Fatalf("content ref mismatch: doc=%q saved=%v", doc.ContentRef, st.saved)
	}

	listed, err := svc.List(context.Background())
	if err != nil || len(listed) != 1 || listed[0].ID != doc.ID {
		t.Fatalf("List after upload: %v err=%v", listed, err)
	}
}

func TestDocumentUpload_StoreFailurePropagates(t *testing.T) {
	svc, st := newDocService(t)
	st.saveErr = errors.New("disk full")

	if _, err := svc.Upload(context.Background(), "admin", true, "Doc", strings.NewReader("x")); err == nil {
		t.Fatalf("expected store error")
	}
	if docs, _ := svc.List(context.Background()); len(docs) != 0 {
		t.Fatalf("no metadata row may exist after store failure")
	}
}

// ---------- Get ----------

func TestDocumentGet_NotFound(t *testing.T) {
	svc, _ := newDocService(t)

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

// ---------- Replace ----------

func TestDocumentReplace_KeepsIDSwapsFile(t *testing.T) {
	svc, st := newDocService(t)

	doc, err := svc.Upload(context.Background(), "admin", true, "Fire Code", strings.NewReader("v1"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	oldRef := doc.ContentRef

	updated, err := svc.Replace(context.Background(), "admin-2", true, doc.ID, strings.NewReader("v2"))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if updated.ID != doc.ID {
		t.Fatalf("replace must keep the document ID: %s vs %s", updated.ID, doc.ID)
	}
	if updated.ContentRef == oldRef || updated.ContentRef == "" {
		t.Fatalf("content ref not swapped: %q", updated.ContentRef)
	}
	if updated.EditorID != "admin-2" || updated.UploaderID != "admin" {
		t.Fatalf("editor/uploader wrong: %+v", updated)
	}
	// The superseded file is cleaned up.
	if len(st.removed) != 1 || st.removed[0] != oldRef {
		t.Fatalf("old file not removed: %v", st.removed)
	}
}

func TestDocumentReplace_AdminOnlyAndNotFound(t *testing.T) {
	svc, _ := newDocService(t)

	if _, err := svc.Replace(context.Background(), "u1", false, "any", strings.NewReader("x")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Replace(context.Background(), "admin", true, "missing", strings.NewReader("x")); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := svc.Replace(context.Background(), "admin", true, "any", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument for nil file, got %v", err)
	}
}

// ---------- Delete ----------

func TestDocumentDelete_SoftDeletesAndRemovesFile(t *testing.T) {
	svc, st := newDocService(t)

	doc, err := svc.Upload(context.Background(), "admin", true, "Fire Code", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(context.Background(), "admin", true, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Reads stop seeing it, but the row survives for audit.
	if _, err := svc.Get(context.Background(), doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("deleted document should read as not found, got %v", err)
	}
	var raw domain.Document
	if err := svc.DB.Where("id = ?", doc.ID).First(&raw).Error; err != nil {
		t.Fatalf("raw row must survive: %v", err)
	}
	if !raw.Deleted {
		t.Fatalf("deleted flag not set: %+v", raw)
	}
	if len(st.removed) != 1 || st.removed[0] != doc.ContentRef {
		t.Fatalf("stored file not removed: %v", st.removed)
	}
}

func TestDocumentDelete_AdminOnlyAndNotFound(t *testing.T) {
	svc, _ := newDocService(t)

	if err := svc.Delete(context.Background(), "u1", false, "any"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(context.Background(), "admin", true, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
