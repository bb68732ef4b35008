package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Items []string       `json:"items"`
	Count map[string]int `json:"count"`
}

func newSample() sample {
	return sample{Items: []string{}, Count: map[string]int{}}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	backend := NewFileBackend(path, newSample)
	ctx := context.Background()

	doc, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
	assert.NotNil(t, doc.Count)

	doc.Items = append(doc.Items, "a")
	doc.Count["a"] = 1
	require.NoError(t, backend.Save(ctx, doc))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

type labelled struct {
	Labels []label `json:"labels"`
}

type label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func newLabelled() labelled {
	return labelled{Labels: []label{{Name: "default", Color: "grey"}}}
}

func TestFileBackendIgnoresDefaultsForStoredDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"labels":[{"name":"custom"}]}`), 0o644))

	doc, err := NewFileBackend(path, newLabelled).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []label{{Name: "custom"}}, doc.Labels)
}

func TestFileBackendBlankFileUsesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	doc, err := NewFileBackend(path, newLabelled).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newLabelled(), doc)
}

func TestMemoryBackendIgnoresDefaultsForStoredDocument(t *testing.T) {
	backend := NewMemoryBackend(newLabelled)
	ctx := context.Background()
	require.NoError(t, backend.Save(ctx, labelled{Labels: []label{{Name: "custom"}}}))

	doc, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []label{{Name: "custom"}}, doc.Labels)
}

func TestFileBackendCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := NewFileBackend(path, newSample).Load(context.Background())
	assert.ErrorIs(t, err, ErrReadFailure)
}

func TestFileBackendWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent "directory" is a regular file.
	backend := NewFileBackend(filepath.Join(blocker, "doc.json"), newSample)
	err := backend.Save(context.Background(), newSample())
	assert.ErrorIs(t, err, ErrWriteFailure)
}

func TestMemoryBackendCopies(t *testing.T) {
	backend := NewMemoryBackend(newSample)
	ctx := context.Background()

	doc, err := backend.Load(ctx)
	require.NoError(t, err)
	doc.Items = append(doc.Items, "a")
	require.NoError(t, backend.Save(ctx, doc))

	doc.Items[0] = "mutated"
	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded.Items)
	assert.Equal(t, 1, backend.Saves())

	backend.SaveErr = errors.New("disk full")
	assert.ErrorIs(t, backend.Save(ctx, doc), ErrWriteFailure)
	assert.Equal(t, 1, backend.Saves())
}
