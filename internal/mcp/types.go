// Package mcp exposes corpus retrieval to MCP clients.
package mcp

import "github.com/lorebot/lore/internal/retrieval"

// SearchCorpusInput defines the input parameters for the search_corpus tool.
type SearchCorpusInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant passages"`
	// Limit is the maximum number of passages to return.
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=20,default=3,description=Maximum number of passages to return"`
}

// SearchCorpusOutput contains the retrieved passages.
type SearchCorpusOutput struct {
	// ContextText is the selected passages as numbered blocks, ready to
	// paste into a prompt.
	ContextText string `json:"context_text"`
	// References describes each numbered block: chunk ID, source document,
	// and similarity score.
	References []retrieval.Reference `json:"references"`
	// Message provides informational context (e.g., "No matching passages").
	Message string `json:"message,omitempty"`
}

// CorpusStatusInput defines the input for the corpus_status tool.
// The tool takes no parameters.
type CorpusStatusInput struct{}

// CorpusStatusOutput describes the currently loaded corpus.
type CorpusStatusOutput struct {
	// Present indicates whether a dataset is loaded.
	Present bool `json:"present"`
	// Model is the embedding model the corpus was built with.
	Model string `json:"model,omitempty"`
	// ChunkCount is the number of embedded chunks.
	ChunkCount int `json:"chunk_count"`
	// CreatedAt is when the dataset was built (RFC 3339).
	CreatedAt string `json:"created_at,omitempty"`
	// DatasetPath is the file the corpus is served from.
	DatasetPath string `json:"dataset_path"`
}
