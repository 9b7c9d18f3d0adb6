// Package main provides the lore-index CLI for building the retrieval corpus.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lorebot/lore/internal/chunker"
	"github.com/lorebot/lore/internal/config"
	"github.com/lorebot/lore/internal/embedding"
	ghclient "github.com/lorebot/lore/internal/github"
	"github.com/lorebot/lore/internal/indexer"
)

var rootCmd = &cobra.Command{
	Use:   "lore-index",
	Short: "Corpus builder for the lore retrieval server",
	Long:  "CLI tool for fetching source documents and building the embedded dataset the server retrieves from",
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Chunk and embed local documents into a dataset file",
	Long: `Walks the source directory, chunks every recognized text file, embeds
the chunks through Ollama, and writes the dataset file the server loads.

Environment variables:
  RAG_SOURCE_DIR     Directory of source documents (default: data/documents)
  RAG_OUTPUT_FILE    Dataset file to write (default: data/embeddings.json)
  RAG_EMBED_MODEL    Ollama embedding model (default: nomic-embed-text)
  OLLAMA_URL         Ollama base URL (default: http://localhost:11434)
  RAG_CHUNK_WORDS    Words per chunk (default: 400)
  RAG_CHUNK_OVERLAP  Overlapping words between chunks (default: 80)
  RAG_EMBED_BATCH    Chunks per embedding request (default: 16)`,
	RunE: runBuild,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Mirror documents from a GitHub repository into the source directory",
	Long: `Downloads every recognized text file under a path in a GitHub repository
and writes it into the source directory, ready for a subsequent build.

Set GITHUB_TOKEN for higher rate limits on large repositories.`,
	RunE: runFetch,
}

var (
	fetchRepo string
	fetchPath string
	fetchRef  string
)

func init() {
	fetchCmd.Flags().StringVar(&fetchRepo, "repo", "", "repository as owner/name (required)")
	fetchCmd.Flags().StringVar(&fetchPath, "path", "docs", "path within the repository to mirror")
	fetchCmd.Flags().StringVar(&fetchRef, "ref", "", "branch, tag, or commit (default: repository default branch)")
	_ = fetchCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(fetchCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	fmt.Println("Starting build...")
	fmt.Println()

	cfg := config.LoadBuilder()

	// 1. Check the embedding service before touching any files
	fmt.Printf("Connecting to Ollama at %s...\n", cfg.OllamaURL)
	client := embedding.NewClient(cfg.OllamaURL, cfg.EmbedModel)
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("Ollama health check failed: %w", err)
	}
	fmt.Println("Ollama healthy")

	// 2. Build the dataset
	fmt.Println()
	fmt.Printf("Indexing documents from %s...\n", cfg.SourceDir)
	builder := indexer.NewBuilder(indexer.Config{
		SourceDir:  cfg.SourceDir,
		OutputFile: cfg.OutputFile,
		BatchSize:  cfg.EmbedBatch,
	}, chunker.NewChunker(cfg.ChunkWords, cfg.ChunkOverlap), client, slog.Default())

	result, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("Build failed: %w", err)
	}

	// 3. Print results
	fmt.Println()
	fmt.Println("Build complete!")
	fmt.Printf("  Files: %d\n", result.TotalFiles)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Batches: %d\n", result.TotalBatches)
	fmt.Printf("  Output: %s\n", cfg.OutputFile)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	// 4. Print failed files if any
	if len(result.FailedFiles) > 0 {
		fmt.Println()
		fmt.Println("Skipped files:")
		for _, failed := range result.FailedFiles {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))

	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	owner, name, ok := strings.Cut(fetchRepo, "/")
	if !ok || owner == "" || name == "" {
		return fmt.Errorf("--repo must be owner/name, got %q", fetchRepo)
	}

	cfg := config.LoadBuilder()

	fmt.Printf("Fetching %s/%s (%s) into %s...\n", owner, name, fetchPath, cfg.SourceDir)
	fmt.Println()

	client, err := ghclient.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Failed to create GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, owner, name, fetchPath, fetchRef)

	written, err := fetcher.MirrorTo(ctx, cfg.SourceDir)
	if err != nil {
		return fmt.Errorf("Fetch failed: %w", err)
	}

	for _, path := range written {
		fmt.Printf("  %s\n", path)
	}

	fmt.Println()
	fmt.Println("Fetch complete!")
	fmt.Printf("  Documents: %d\n", len(written))
	if sha, err := fetcher.LatestCommitSHA(ctx); err == nil {
		fmt.Printf("  Commit: %s\n", sha)
	}
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))

	return nil
}
