package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend stores the document as indented JSON. Saves go through a temp
// file in the same directory followed by a rename, so readers never observe a
// partially written document.
type FileBackend[T any] struct {
	path  string
	empty func() T
}

// NewFileBackend returns a backend for path. empty builds the document used
// when the file does not exist yet or is blank.
func NewFileBackend[T any](path string, empty func() T) *FileBackend[T] {
	return &FileBackend[T]{path: path, empty: empty}
}

func (b *FileBackend[T]) Path() string {
	return b.path
}

func (b *FileBackend[T]) Load(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return b.empty(), nil
		}
		var zero T
		return zero, fmt.Errorf("%w: read %s: %w", ErrReadFailure, b.path, err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return b.empty(), nil
	}
	// Decode into a zero value; the empty document's defaults would otherwise
	// leak into fields the file leaves out.
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: decode %s: %w", ErrReadFailure, b.path, err)
	}
	return doc, nil
}

func (b *FileBackend[T]) Save(ctx context.Context, doc T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteFailure, err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrWriteFailure, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", ErrWriteFailure, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write: %w", ErrWriteFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync: %w", ErrWriteFailure, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close: %w", ErrWriteFailure, err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename: %w", ErrWriteFailure, err)
	}
	return nil
}
