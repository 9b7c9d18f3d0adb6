// Package indexer builds the embedded corpus dataset from a document tree.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lorebot/lore/internal/chunker"
	"github.com/lorebot/lore/internal/corpus"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 16

// textExtensions are the recognized plain-text corpus file extensions.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".mdx":  true,
	".rst":  true,
	".csv":  true,
	".json": true,
}

// RecognizedExtension reports whether name carries one of the plain-text
// extensions the builder indexes. The check is case-insensitive.
func RecognizedExtension(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

// Embedder provides batched embeddings. *embedding.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Model() string
}

// Config holds the builder's inputs and output location.
type Config struct {
	SourceDir  string
	OutputFile string
	BatchSize  int
}

// FailedFile records a document that was discovered but not indexed.
type FailedFile struct {
	Path   string
	Reason string
}

// BuildResult contains statistics about a completed build.
type BuildResult struct {
	TotalFiles   int
	TotalChunks  int
	TotalBatches int
	FailedFiles  []FailedFile
	Duration     time.Duration
}

// Builder turns a directory of documents into a complete embedding
// dataset: discover, chunk, embed in batches, write atomically.
type Builder struct {
	cfg      Config
	chunker  *chunker.Chunker
	embedder Embedder
	logger   *slog.Logger
}

// NewBuilder creates a builder. A batch size under 1 falls back to
// DefaultBatchSize.
func NewBuilder(cfg Config, ch *chunker.Chunker, embedder Embedder, logger *slog.Logger) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:      cfg,
		chunker:  ch,
		embedder: embedder,
		logger:   logger,
	}
}

// Build produces the dataset file from scratch. Every run re-embeds the
// full corpus; the output replaces any previous dataset in one rename. A
// failed embedding batch aborts the build with nothing written, so a
// partially embedded corpus never reaches disk. An empty or missing
// source tree still writes a valid dataset with zero chunks.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{}

	files, err := b.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover documents: %w", err)
	}
	result.TotalFiles = len(files)
	b.logger.Info("discovered documents", "dir", b.cfg.SourceDir, "count", len(files))

	var chunks []corpus.DocumentChunk
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(b.cfg.SourceDir, filepath.FromSlash(rel)))
		if err != nil {
			b.logger.Warn("skipping unreadable document", "source", rel, "error", err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{Path: rel, Reason: err.Error()})
			continue
		}
		docChunks := b.chunker.Chunk(rel, string(data))
		b.logger.Debug("chunked document", "source", rel, "chunks", len(docChunks))
		chunks = append(chunks, docChunks...)
	}
	result.TotalChunks = len(chunks)

	dataset := &corpus.Dataset{
		Model:     b.embedder.Model(),
		CreatedAt: time.Now().UTC(),
		Chunks:    []corpus.EmbeddedChunk{},
	}

	if len(chunks) == 0 {
		if err := corpus.WriteFile(b.cfg.OutputFile, dataset); err != nil {
			return nil, fmt.Errorf("write dataset: %w", err)
		}
		result.Duration = time.Since(start)
		b.logger.Info("wrote empty dataset", "output", b.cfg.OutputFile)
		return result, nil
	}

	embedded, batches, err := b.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	result.TotalBatches = batches
	dataset.Chunks = embedded

	if err := corpus.WriteFile(b.cfg.OutputFile, dataset); err != nil {
		return nil, fmt.Errorf("write dataset: %w", err)
	}

	result.Duration = time.Since(start)
	b.logger.Info("build complete",
		"files", result.TotalFiles,
		"chunks", result.TotalChunks,
		"batches", result.TotalBatches,
		"output", b.cfg.OutputFile,
		"duration", result.Duration)

	return result, nil
}

// discoverFiles walks the source tree and returns recognized text files
// as slash-separated paths relative to the source root, in walk order.
// Hidden directories are skipped. A missing source root is not an error;
// it yields an empty corpus.
func (b *Builder) discoverFiles() ([]string, error) {
	root := b.cfg.SourceDir
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			b.logger.Warn("source directory does not exist", "dir", root)
			return nil, nil
		}
		return nil, fmt.Errorf("stat source directory: %w", err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !RecognizedExtension(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// embedChunks embeds all chunks in fixed-size batches, pairing each chunk
// with its vector by position. Any batch failure aborts the whole run.
func (b *Builder) embedChunks(ctx context.Context, chunks []corpus.DocumentChunk) ([]corpus.EmbeddedChunk, int, error) {
	embedded := make([]corpus.EmbeddedChunk, 0, len(chunks))
	batches := 0

	for i := 0; i < len(chunks); i += b.cfg.BatchSize {
		end := min(i+b.cfg.BatchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Content
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, 0, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}

		for j, chunk := range batch {
			embedded = append(embedded, corpus.EmbeddedChunk{
				DocumentChunk: chunk,
				Embedding:     vectors[j],
			})
		}

		batches++
		b.logger.Debug("embedded batch", "from", i, "to", end)
	}

	return embedded, batches, nil
}
