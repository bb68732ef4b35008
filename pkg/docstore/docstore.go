// Package docstore persists a whole JSON document per store. Callers load,
// mutate in memory and save the full document back.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrWriteFailure wraps every error raised while persisting a document.
	ErrWriteFailure = errors.New("store_write_failure")
	ErrReadFailure  = errors.New("store_read_failure")
)

// Backend loads and saves one document of type T.
type Backend[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, doc T) error
}
