package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Model:     "nomic-embed-text",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Chunks: []EmbeddedChunk{
			{
				DocumentChunk: DocumentChunk{
					ID:        "guide.md#0",
					Source:    "guide.md",
					Index:     0,
					Content:   "alpha beta gamma",
					WordCount: 3,
				},
				Embedding: []float32{0.1, 0.2, 0.3},
			},
			{
				DocumentChunk: DocumentChunk{
					ID:        "guide.md#1",
					Source:    "guide.md",
					Index:     1,
					Content:   "gamma delta epsilon",
					WordCount: 3,
				},
				Embedding: []float32{0.4, 0.5, 0.6},
			},
		},
	}
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	want := sampleDataset()

	require.NoError(t, WriteFile(path, want))

	got, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, want.Model, got.Model)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, want.Chunks, got.Chunks)
}

func TestWriteFileEmptyChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")

	require.NoError(t, WriteFile(path, &Dataset{Model: "m", CreatedAt: time.Now().UTC()}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"chunks":[]`)

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.NotNil(t, got.Chunks)
	assert.Empty(t, got.Chunks)
}

func TestWriteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "embeddings.json")

	require.NoError(t, WriteFile(path, sampleDataset()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.json")

	require.NoError(t, WriteFile(path, sampleDataset()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "embeddings.json", entries[0].Name())
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestReadFileRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model": "m", "chunks": [`), 0644))

	_, err := ReadFile(path)
	assert.True(t, errors.Is(err, ErrInvalidDataset))
}

func TestReadFileRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	raw := `{"model":"m","createdAt":"2025-06-01T12:00:00Z","chunks":[],"vectorSize":768}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	_, err := ReadFile(path)
	assert.True(t, errors.Is(err, ErrInvalidDataset))
}

func TestReadFileRejectsMissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	raw := `{"createdAt":"2025-06-01T12:00:00Z","chunks":[]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	_, err := ReadFile(path)
	assert.True(t, errors.Is(err, ErrInvalidDataset))
}

func TestReadFileRejectsChunkWithoutIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	raw := `{"model":"m","createdAt":"2025-06-01T12:00:00Z","chunks":[{"id":"","source":"","index":0,"content":"x","wordCount":1,"embedding":[0.1]}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	_, err := ReadFile(path)
	assert.True(t, errors.Is(err, ErrInvalidDataset))
}
