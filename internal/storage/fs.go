package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var _ Provider = (*FS)(nil)

// MaxPhotoBytes caps a single upload.
const MaxPhotoBytes = 10 << 20

var allowedExt = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// Allowed reports whether name has a photo extension the feeder accepts.
func Allowed(name string) bool {
	_, ok := allowedExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FS implements Provider backed by a single local directory.
type FS struct {
	root string // absolute path to the photo directory
}

// NewFS creates a provider rooted at dir, creating the directory if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute photo directory.
func (f *FS) Root() string { return f.root }

// Path validates that name is a plain file name (no separators, no
// traversal) and returns its absolute path under the root.
func (f *FS) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: file name is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("storage: invalid file name: %s", name)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes photo directory: %s", name)
	}
	return abs, nil
}

// Exists reports whether name is a regular file in the photo directory.
func (f *FS) Exists(name string) bool {
	abs, err := f.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Save writes r atomically (tmp file, fsync, rename) under a fresh UUID
// name carrying the lower-cased extension of original.
func (f *FS) Save(original string, r io.Reader) (string, error) {
	if !Allowed(original) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(original))
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(original))
	abs, err := f.Path(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.root, ".petfeeder-tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, io.LimitReader(r, MaxPhotoBytes+1)); err != nil {
		return "", fmt.Errorf("storage: write temp: %w", err)
	}
	if info, err := tmp.Stat(); err == nil && info.Size() > MaxPhotoBytes {
		return "", fmt.Errorf("storage: photo larger than %d bytes", MaxPhotoBytes)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return name, nil
}

// Delete removes a stored photo.
func (f *FS) Delete(name string) error {
	abs, err := f.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}
