// Package docstore stores uploaded files on disk and reads stored document
// text back for the retrieval pipeline. Files are kept under a single uploads
// directory and addressed by a generated reference name; callers persist the
// reference, never the path.
package docstore

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrEmptyRef is returned when a stored content reference is blank (e.g. a
// soft-deleted document whose reference was cleared).
var ErrEmptyRef = errors.New("docstore: empty content reference")

// FileStore persists uploads under Dir. It is safe for concurrent use; each
// stored file gets a fresh UUID-based name so writers never collide.
type FileStore struct {
	dir string
}

// NewFileStore ensures dir exists and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the uploads directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes r to a new file and returns the generated reference name.
// The original name contributes only its extension.
func (s *FileStore) Save(originalName string, r io.Reader) (string, error) {
	ref := uuid.NewString() + filepath.Ext(filepath.Base(originalName))
	f, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return ref, nil
}

// ReadText returns the stored file's contents as text. The reference is
// reduced to its base name so stored values cannot escape the uploads dir.
func (s *FileStore) ReadText(ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyRef
	}
	b, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *FileStore) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
