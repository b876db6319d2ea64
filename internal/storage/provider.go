// Package storage keeps uploaded pet photos on the local file system.
package storage

import (
	"errors"
	"io"
)

// ErrUnsupportedType is returned for uploads whose extension is not an image
// type the feeder accepts.
var ErrUnsupportedType = errors.New("storage: unsupported photo type")

// Provider is the interface for photo file operations. Names are plain
// file names inside the photo directory.
type Provider interface {
	// Save stores r under a generated name that keeps the extension of
	// original and returns that name.
	Save(original string, r io.Reader) (string, error)
	// Path returns the absolute path of a stored photo.
	Path(name string) (string, error)
	// Exists reports whether the photo is on disk.
	Exists(name string) bool
	// Delete removes a stored photo.
	Delete(name string) error
}
