// Package retrieval ranks corpus chunks against a query and assembles a
// bounded context block with source references.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/lorebot/lore/internal/corpus"
)

// DefaultLimit is the number of chunks returned when no limit is given.
const DefaultLimit = 3

// Embedder turns texts into vectors. *embedding.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Model() string
}

// Reference identifies one retrieved chunk and its similarity score.
type Reference struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
}

// Result is the outcome of one retrieval. ContextText holds the selected
// chunks as numbered blocks; References[i] describes block [i+1].
type Result struct {
	ContextText string      `json:"contextText"`
	References  []Reference `json:"references"`
}

// Retriever embeds queries and scores them against the cached corpus.
type Retriever struct {
	cache    *corpus.Cache
	embedder Embedder
	limit    int
	logger   *slog.Logger
}

// NewRetriever creates a retriever over the given dataset cache. limit is
// the default number of chunks per query; values under 1 fall back to
// DefaultLimit.
func NewRetriever(cache *corpus.Cache, embedder Embedder, limit int, logger *slog.Logger) *Retriever {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		cache:    cache,
		embedder: embedder,
		limit:    limit,
		logger:   logger,
	}
}

// Retrieve embeds the query and returns the highest-scoring chunks by
// cosine similarity, at most limit of them (the retriever default when
// limit < 1). An absent or empty corpus yields an empty result rather
// than an error; a failure to embed the query is returned to the caller.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = r.limit
	}

	dataset, ok := r.cache.Load()
	if !ok || len(dataset.Chunks) == 0 {
		r.logger.Debug("retrieval skipped: no corpus available")
		return &Result{References: []Reference{}}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := vectors[0]

	type scored struct {
		chunk *corpus.EmbeddedChunk
		score float64
	}
	candidates := make([]scored, 0, len(dataset.Chunks))
	for i := range dataset.Chunks {
		chunk := &dataset.Chunks[i]
		score := Cosine(queryVec, chunk.Embedding)
		if math.IsNaN(score) || math.IsInf(score, 0) || score <= 0 {
			continue
		}
		candidates = append(candidates, scored{chunk: chunk, score: score})
	}

	// Stable sort keeps dataset order among equal scores, so results are
	// deterministic across calls.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if len(candidates) == 0 {
		r.logger.Debug("retrieval found no positive matches", "query_len", len(query))
		return &Result{References: []Reference{}}, nil
	}

	blocks := make([]string, 0, len(candidates))
	references := make([]Reference, 0, len(candidates))
	for i, cand := range candidates {
		blocks = append(blocks, fmt.Sprintf("[%d] %s\n%s", i+1, cand.chunk.Source, cand.chunk.Content))
		references = append(references, Reference{
			ID:     cand.chunk.ID,
			Source: cand.chunk.Source,
			Index:  cand.chunk.Index,
			Score:  cand.score,
		})
	}

	r.logger.Debug("retrieval complete",
		"matches", len(references),
		"top_score", references[0].Score)

	return &Result{
		ContextText: strings.Join(blocks, "\n\n"),
		References:  references,
	}, nil
}

// CorpusModel reports the embedding model recorded in the cached dataset,
// or "" when no dataset is available. A corpus embedded with a different
// model than the query embedder degrades scores silently, so callers
// surface the comparison in status output.
func (r *Retriever) CorpusModel() string {
	dataset, ok := r.cache.Load()
	if !ok {
		return ""
	}
	return dataset.Model
}

// Cosine computes the cosine similarity of two vectors in float64.
// Mismatched lengths, empty vectors, and zero-magnitude vectors all
// score 0 rather than erroring, so one malformed chunk cannot take down
// a query.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
