package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// maxSearchLimit caps how many chunks one search may request.
const maxSearchLimit = 20

type searchHandler struct {
	retriever Searcher
	logger    *slog.Logger
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// search handles POST /api/search: retrieval without the chat layer,
// returning the ranked references and assembled context text.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(req.Query) > maxMessageBytes {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long")
		return
	}
	if req.Limit < 0 || req.Limit > maxSearchLimit {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 20")
		return
	}

	result, err := h.retriever.Retrieve(r.Context(), req.Query, req.Limit)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		writeError(w, http.StatusBadGateway, "search_failed", "embedding service is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
