package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound is returned when a stored payload does not exist.
var ErrObjectNotFound = errors.New("stored object not found")

// Object describes a stored payload opened for reading.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// PayloadStore persists share file payloads under flat names.
// Delete must treat a missing object as success.
type PayloadStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects names that could escape the store's namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid object name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}
