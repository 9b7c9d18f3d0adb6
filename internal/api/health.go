package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorebot/lore/internal/corpus"
)

// healthCheckTimeout bounds how long a readiness probe may block.
const healthCheckTimeout = 3 * time.Second

// HealthChecker is the reachability probe for the embedding service.
// *embedding.Client satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CorpusStatus is the corpus portion of the readiness response. An
// absent corpus is a valid state, not a failure.
type CorpusStatus struct {
	Present bool   `json:"present"`
	Chunks  int    `json:"chunks"`
	Model   string `json:"model,omitempty"`
}

// ReadyResponse is the JSON body of the readiness endpoint.
type ReadyResponse struct {
	Status    string       `json:"status"`
	Database  string       `json:"database"`
	Embedding string       `json:"embedding"`
	Corpus    CorpusStatus `json:"corpus"`
	Timestamp string       `json:"timestamp"`
}

type healthHandler struct {
	db        *sql.DB
	embedding HealthChecker
	corpus    *corpus.Cache
	logger    *slog.Logger
}

// live handles GET /health: the process is up.
func (h *healthHandler) live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ready handles GET /health/ready: database and embedding service must
// answer; the corpus is reported but never fails the probe.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := ReadyResponse{
		Status:    "ready",
		Database:  "connected",
		Embedding: "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("readiness: database ping failed", "error", err)
		response.Status = "unavailable"
		response.Database = "disconnected"
		status = http.StatusServiceUnavailable
	}

	if err := h.embedding.Health(ctx); err != nil {
		h.logger.Warn("readiness: embedding service unreachable", "error", err)
		response.Status = "unavailable"
		response.Embedding = "disconnected"
		status = http.StatusServiceUnavailable
	}

	if dataset, ok := h.corpus.Load(); ok {
		response.Corpus = CorpusStatus{
			Present: true,
			Chunks:  len(dataset.Chunks),
			Model:   dataset.Model,
		}
	}

	writeJSON(w, status, response)
}
