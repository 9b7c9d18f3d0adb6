package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its retrieval dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds the dependencies the tools serve from.
type Config struct {
	Retriever Searcher
	Corpus    Corpus
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "lore-retrieval-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the embedded document corpus semantically. Returns ranked passages with source references, ready to use as grounding context.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "corpus_status",
		Description: "Report the loaded corpus: embedding model, chunk count, and when it was built.",
	}, makeStatusHandler(cfg.Corpus))

	return &Server{server: server}
}

// Run starts the server on stdio transport (blocks until the client
// disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance for transport
// handlers that need to wrap it.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
