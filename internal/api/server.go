// Package api serves the HTTP surface: chat, search, session management,
// and health probes.
package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorebot/lore/internal/chat"
	"github.com/lorebot/lore/internal/corpus"
	"github.com/lorebot/lore/internal/retrieval"
	"github.com/lorebot/lore/internal/session"
)

const (
	// ShutdownTimeout is how long in-flight requests get to finish.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header attacks.
	ReadHeaderTimeout = 10 * time.Second
	// ReadTimeout is the maximum time to read the full request.
	ReadTimeout = 30 * time.Second
	// WriteTimeout is generous because chat streaming holds the response
	// open while the model generates.
	WriteTimeout = 5 * time.Minute
	// IdleTimeout closes idle keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// ChatService produces assistant replies. *chat.Service satisfies it.
type ChatService interface {
	Chat(ctx context.Context, in chat.Input) (*chat.Output, error)
	ChatStream(ctx context.Context, in chat.Input, onDelta func(delta string) error) (*chat.Output, error)
}

// Searcher ranks corpus chunks for a query. *retrieval.Retriever
// satisfies it.
type Searcher interface {
	Retrieve(ctx context.Context, query string, limit int) (*retrieval.Result, error)
}

// Deps carries everything the handlers serve from.
type Deps struct {
	Chat      ChatService
	Retriever Searcher
	Sessions  *session.Store
	DB        *sql.DB
	Embedding HealthChecker
	Corpus    *corpus.Cache
}

// Server is the HTTP server with all routes registered.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a server and registers all routes.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
	}

	chatH := &chatHandler{service: deps.Chat, logger: logger}
	s.mux.HandleFunc("POST /api/chat", chatH.chat)
	s.mux.HandleFunc("POST /api/chat/stream", chatH.stream)

	searchH := &searchHandler{retriever: deps.Retriever, logger: logger}
	s.mux.HandleFunc("POST /api/search", searchH.search)

	sessionH := &sessionHandler{store: deps.Sessions, logger: logger}
	s.mux.HandleFunc("GET /api/sessions", sessionH.list)
	s.mux.HandleFunc("POST /api/sessions", sessionH.create)
	s.mux.HandleFunc("GET /api/sessions/{id}", sessionH.get)
	s.mux.HandleFunc("PATCH /api/sessions/{id}", sessionH.rename)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", sessionH.delete)
	s.mux.HandleFunc("GET /api/sessions/{id}/messages", sessionH.messages)

	healthH := &healthHandler{
		db:        deps.DB,
		embedding: deps.Embedding,
		corpus:    deps.Corpus,
		logger:    logger,
	}
	s.mux.HandleFunc("GET /health", healthH.live)
	s.mux.HandleFunc("GET /health/ready", healthH.ready)

	s.mux.HandleFunc("GET /{$}", landing)

	return s
}

// Mount attaches an extra handler, such as the MCP transport, under the
// given pattern.
func (s *Server) Mount(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler returns the complete handler chain: recovery wraps logging
// wraps the mux.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the server on addr and shuts down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
