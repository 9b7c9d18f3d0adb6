// Package config loads builder and server configuration from the
// environment. Callers load a .env file first if they want one; this
// package only reads what is already set.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultSourceDir    = "data/documents"
	DefaultOutputFile   = "data/embeddings.json"
	DefaultEmbedModel   = "nomic-embed-text"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultChunkWords   = 400
	DefaultChunkOverlap = 80
	DefaultEmbedBatch   = 16
	DefaultContextLimit = 3
	DefaultChatModel    = "llama3.2"
	DefaultPort         = "8080"
	DefaultDatabase     = "data/lore.db"
	DefaultServerMode   = "http"
)

// Builder holds everything the dataset builder needs.
type Builder struct {
	SourceDir    string
	OutputFile   string
	EmbedModel   string
	OllamaURL    string
	ChunkWords   int
	ChunkOverlap int
	EmbedBatch   int
}

// LoadBuilder reads builder configuration from the environment, falling
// back to defaults for anything unset.
func LoadBuilder() Builder {
	return Builder{
		SourceDir:    getEnv("RAG_SOURCE_DIR", DefaultSourceDir),
		OutputFile:   getEnv("RAG_OUTPUT_FILE", DefaultOutputFile),
		EmbedModel:   getEnv("RAG_EMBED_MODEL", DefaultEmbedModel),
		OllamaURL:    getEnv("OLLAMA_URL", DefaultOllamaURL),
		ChunkWords:   getEnvInt("RAG_CHUNK_WORDS", DefaultChunkWords),
		ChunkOverlap: getEnvInt("RAG_CHUNK_OVERLAP", DefaultChunkOverlap),
		EmbedBatch:   getEnvInt("RAG_EMBED_BATCH", DefaultEmbedBatch),
	}
}

// Server holds everything the chat and retrieval server needs.
type Server struct {
	EmbedFile    string
	EmbedModel   string
	OllamaURL    string
	ContextLimit int
	Port         string
	Database     string
	ChatModel    string
	ServerMode   string
	LogLevel     string
}

// LoadServer reads server configuration from the environment. The dataset
// location honors RAG_EMBED_FILE and falls back to the builder's output
// path, so the default build feeds the default server.
func LoadServer() Server {
	return Server{
		EmbedFile:    getEnv("RAG_EMBED_FILE", getEnv("RAG_OUTPUT_FILE", DefaultOutputFile)),
		EmbedModel:   getEnv("RAG_EMBED_MODEL", DefaultEmbedModel),
		OllamaURL:    getEnv("OLLAMA_URL", DefaultOllamaURL),
		ContextLimit: getEnvInt("RAG_CONTEXT_LIMIT", DefaultContextLimit),
		Port:         getEnv("PORT", DefaultPort),
		Database:     getEnv("LORE_DB", DefaultDatabase),
		ChatModel:    getEnv("CHAT_MODEL", DefaultChatModel),
		ServerMode:   getEnv("SERVER_MODE", DefaultServerMode),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps the configured LOG_LEVEL to a slog level, defaulting to
// info for anything unrecognized.
func (s Server) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
