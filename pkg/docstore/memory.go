package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryBackend keeps the encoded document in memory. Documents are copied
// through JSON on every Load and Save so callers never share state with the
// stored value.
type MemoryBackend[T any] struct {
	mu    sync.Mutex
	raw   []byte
	empty func() T
	saves int

	// SaveErr, when set, is returned by the next Save calls.
	SaveErr error
}

func NewMemoryBackend[T any](empty func() T) *MemoryBackend[T] {
	return &MemoryBackend[T]{empty: empty}
}

func (b *MemoryBackend[T]) Load(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.raw == nil {
		return b.empty(), nil
	}
	var doc T
	if err := json.Unmarshal(b.raw, &doc); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return doc, nil
}

func (b *MemoryBackend[T]) Save(ctx context.Context, doc T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SaveErr != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, b.SaveErr)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	b.raw = raw
	b.saves++
	return nil
}

// Saves returns how many documents were persisted.
func (b *MemoryBackend[T]) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
