package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorebot/lore/internal/chunker"
	"github.com/lorebot/lore/internal/corpus"
)

// fakeEmbedder derives a deterministic vector from each input's length so
// tests can verify chunk/vector pairing. failAt aborts that batch number.
type fakeEmbedder struct {
	batches [][]string
	failAt  int
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.batches = append(f.batches, inputs)
	if f.failAt > 0 && len(f.batches) == f.failAt {
		return nil, errors.New("embedding service exploded")
	}
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake-model" }

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestBuilder(t *testing.T, sourceDir string, batchSize int) (*Builder, *fakeEmbedder, string) {
	t.Helper()
	output := filepath.Join(t.TempDir(), "embeddings.json")
	embedder := &fakeEmbedder{}
	b := NewBuilder(Config{
		SourceDir:  sourceDir,
		OutputFile: output,
		BatchSize:  batchSize,
	}, chunker.NewChunker(400, 80), embedder, nil)
	return b, embedder, output
}

func TestRecognizedExtension(t *testing.T) {
	for _, name := range []string{"a.txt", "b.md", "c.MDX", "d.rst", "e.csv", "f.JSON"} {
		assert.True(t, RecognizedExtension(name), name)
	}
	for _, name := range []string{"img.png", "archive.tar.gz", "binary", "doc.pdf"} {
		assert.False(t, RecognizedExtension(name), name)
	}
}

func TestBuildDiscoversAndFilters(t *testing.T) {
	src := t.TempDir()
	writeDoc(t, src, "b.txt", "beta text")
	writeDoc(t, src, "guides/a.md", "alpha guide")
	writeDoc(t, src, "image.png", "not text")
	writeDoc(t, src, ".git/skip.md", "hidden dir content")

	b, embedder, output := newTestBuilder(t, src, 16)
	result, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 2, result.TotalChunks)
	assert.Empty(t, result.FailedFiles)
	require.Len(t, embedder.batches, 1)

	dataset, err := corpus.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, dataset.Chunks, 2)
	assert.Equal(t, "b.txt", dataset.Chunks[0].Source)
	assert.Equal(t, "guides/a.md", dataset.Chunks[1].Source)
	assert.Equal(t, "b.txt#0", dataset.Chunks[0].ID)
	assert.Equal(t, "fake-model", dataset.Model)
	assert.False(t, dataset.CreatedAt.IsZero())
}

func TestBuildEmptySourceWritesEmptyDataset(t *testing.T) {
	b, embedder, output := newTestBuilder(t, t.TempDir(), 16)

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.TotalFiles)
	assert.Zero(t, result.TotalChunks)
	assert.Empty(t, embedder.batches)

	dataset, err := corpus.ReadFile(output)
	require.NoError(t, err)
	assert.Empty(t, dataset.Chunks)
	assert.Equal(t, "fake-model", dataset.Model)
}

func TestBuildMissingSourceWritesEmptyDataset(t *testing.T) {
	b, _, output := newTestBuilder(t, filepath.Join(t.TempDir(), "nope"), 16)

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.TotalFiles)

	dataset, err := corpus.ReadFile(output)
	require.NoError(t, err)
	assert.Empty(t, dataset.Chunks)
}

func TestBuildBatchesAndPairsVectors(t *testing.T) {
	src := t.TempDir()
	// Five one-chunk documents with distinct content lengths.
	for i := 0; i < 5; i++ {
		writeDoc(t, src, fmt.Sprintf("doc%d.md", i), strings.Repeat("word ", i+1))
	}

	b, embedder, output := newTestBuilder(t, src, 2)
	result, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalChunks)
	assert.Equal(t, 3, result.TotalBatches)
	require.Len(t, embedder.batches, 3)
	assert.Len(t, embedder.batches[0], 2)
	assert.Len(t, embedder.batches[1], 2)
	assert.Len(t, embedder.batches[2], 1)

	dataset, err := corpus.ReadFile(output)
	require.NoError(t, err)
	for _, chunk := range dataset.Chunks {
		require.Len(t, chunk.Embedding, 2)
		assert.Equal(t, float32(len(chunk.Content)), chunk.Embedding[0],
			"chunk %s paired with wrong vector", chunk.ID)
	}
}

func TestBuildAbortsOnBatchFailure(t *testing.T) {
	src := t.TempDir()
	for i := 0; i < 5; i++ {
		writeDoc(t, src, fmt.Sprintf("doc%d.md", i), "some words here")
	}

	output := filepath.Join(t.TempDir(), "embeddings.json")
	embedder := &fakeEmbedder{failAt: 2}
	b := NewBuilder(Config{
		SourceDir:  src,
		OutputFile: output,
		BatchSize:  2,
	}, chunker.NewChunker(400, 80), embedder, nil)

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed batch")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no dataset may be written after a failed batch")
}

func TestBuildSkipsUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits are ignored when running as root")
	}
	src := t.TempDir()
	writeDoc(t, src, "good.md", "readable words")
	writeDoc(t, src, "bad.md", "unreadable words")
	require.NoError(t, os.Chmod(filepath.Join(src, "bad.md"), 0000))

	b, _, output := newTestBuilder(t, src, 16)
	result, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	require.Len(t, result.FailedFiles, 1)
	assert.Equal(t, "bad.md", result.FailedFiles[0].Path)

	dataset, err := corpus.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, dataset.Chunks, 1)
	assert.Equal(t, "good.md", dataset.Chunks[0].Source)
}

func TestBuildIsDeterministic(t *testing.T) {
	src := t.TempDir()
	writeDoc(t, src, "a.md", strings.Repeat("alpha ", 500))
	writeDoc(t, src, "b.md", "short doc")

	b, _, output := newTestBuilder(t, src, 16)

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first, err := corpus.ReadFile(output)
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	second, err := corpus.ReadFile(output)
	require.NoError(t, err)

	require.Equal(t, len(first.Chunks), len(second.Chunks))
	for i := range first.Chunks {
		assert.Equal(t, first.Chunks[i], second.Chunks[i])
	}
}
