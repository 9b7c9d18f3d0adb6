package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lorebot/lore/internal/corpus"
	"github.com/lorebot/lore/internal/retrieval"
)

// Searcher ranks corpus chunks for a query. *retrieval.Retriever
// satisfies it.
type Searcher interface {
	Retrieve(ctx context.Context, query string, limit int) (*retrieval.Result, error)
}

// Corpus provides the cached dataset. *corpus.Cache satisfies it.
type Corpus interface {
	Load() (*corpus.Dataset, bool)
	Path() string
}

// makeSearchHandler creates the search_corpus tool handler. An empty
// corpus is a normal answer, not a tool error; only an embedding failure
// surfaces as one.
func makeSearchHandler(retriever Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchCorpusInput,
) (*mcp.CallToolResult, SearchCorpusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCorpusInput) (
		*mcp.CallToolResult, SearchCorpusOutput, error,
	) {
		result, err := retriever.Retrieve(ctx, input.Query, input.Limit)
		if err != nil {
			return nil, SearchCorpusOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(result.References) == 0 {
			return nil, SearchCorpusOutput{
				References: []retrieval.Reference{},
				Message:    "No matching passages found. The corpus may be empty or the query too narrow.",
			}, nil
		}

		return nil, SearchCorpusOutput{
			ContextText: result.ContextText,
			References:  result.References,
		}, nil
	}
}

// makeStatusHandler creates the corpus_status tool handler.
func makeStatusHandler(cache Corpus) func(
	context.Context, *mcp.CallToolRequest, CorpusStatusInput,
) (*mcp.CallToolResult, CorpusStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CorpusStatusInput) (
		*mcp.CallToolResult, CorpusStatusOutput, error,
	) {
		output := CorpusStatusOutput{DatasetPath: cache.Path()}

		dataset, ok := cache.Load()
		if !ok {
			return nil, output, nil
		}

		output.Present = true
		output.Model = dataset.Model
		output.ChunkCount = len(dataset.Chunks)
		output.CreatedAt = dataset.CreatedAt.Format(time.RFC3339)

		return nil, output, nil
	}
}
