// Package main provides the lore server entry point.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"

	"github.com/lorebot/lore/internal/api"
	"github.com/lorebot/lore/internal/chat"
	"github.com/lorebot/lore/internal/config"
	"github.com/lorebot/lore/internal/corpus"
	"github.com/lorebot/lore/internal/database"
	"github.com/lorebot/lore/internal/embedding"
	mcpserver "github.com/lorebot/lore/internal/mcp"
	"github.com/lorebot/lore/internal/retrieval"
	"github.com/lorebot/lore/internal/session"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.LoadServer()

	// Logs go to stderr; stdout carries the MCP protocol in stdio mode.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Open the session database and bring the schema up to date
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize embedding client and probe it. A down Ollama is not
	// fatal: sessions and ungrounded chat still work, and readiness
	// reports the outage.
	embedder := embedding.NewClient(cfg.OllamaURL, cfg.EmbedModel)
	if err := probeEmbedding(ctx, embedder); err != nil {
		logger.Warn("embedding service unreachable, retrieval will be degraded",
			"url", cfg.OllamaURL, "error", err)
	}

	// Wire retrieval over the dataset file
	cache := corpus.NewCache(cfg.EmbedFile, logger)
	retriever := retrieval.NewRetriever(cache, embedder, cfg.ContextLimit, logger)

	// Chat service persists sessions and calls the chat model
	store := session.NewStore(db)
	chatService := chat.NewService(store, retriever, chat.NewOllamaClient(cfg.OllamaURL), cfg.ChatModel, logger)

	// Create MCP server
	mcpSrv := mcpserver.NewServer(&mcpserver.Config{
		Retriever: retriever,
		Corpus:    cache,
	})

	// Stdio mode: run MCP over stdin/stdout for local clients
	if cfg.ServerMode != "http" {
		logger.Info("starting MCP server (stdio mode)")
		if err := mcpSrv.Run(ctx); err != nil {
			logger.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}

	// HTTP mode: REST API plus MCP at /mcp
	srv := api.NewServer(api.Deps{
		Chat:      chatService,
		Retriever: retriever,
		Sessions:  store,
		DB:        db,
		Embedding: embedder,
		Corpus:    cache,
	}, logger)
	srv.Mount("/mcp", mcpserver.NewHTTPHandler(mcpSrv, nil))

	if err := srv.Run(ctx, "0.0.0.0:"+cfg.Port); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}

// probeEmbedding retries the embedding health check for up to 30 seconds,
// covering the window where Ollama starts alongside the server.
func probeEmbedding(ctx context.Context, client *embedding.Client) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return client.Health(ctx)
	}, backoff.WithContext(b, ctx))
}
