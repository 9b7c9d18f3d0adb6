package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lorebot/lore/internal/session"
)

const (
	// maxTitleLength bounds session titles.
	maxTitleLength = 200

	defaultListLimit = 50
	maxListLimit     = 200
)

type sessionHandler struct {
	store  *session.Store
	logger *slog.Logger
}

type sessionListResponse struct {
	Sessions []session.Session `json:"sessions"`
}

type messageListResponse struct {
	Messages []session.Message `json:"messages"`
}

type titleRequest struct {
	Title string `json:"title"`
}

// list handles GET /api/sessions?limit=N, most recently active first.
func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	sessions, err := h.store.ListSessions(r.Context(), limit)
	if err != nil {
		h.logger.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, sessionListResponse{Sessions: sessions})
}

// create handles POST /api/sessions.
func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New session"
	}
	if len(title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long")
		return
	}

	sess, err := h.store.CreateSession(r.Context(), title)
	if err != nil {
		h.logger.Error("create session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// get handles GET /api/sessions/{id}.
func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// rename handles PATCH /api/sessions/{id}.
func (h *sessionHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if len(title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long")
		return
	}

	if err := h.store.RenameSession(r.Context(), r.PathValue("id"), title); err != nil {
		h.writeStoreError(w, err, "failed to rename session")
		return
	}

	sess, err := h.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// delete handles DELETE /api/sessions/{id}.
func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// messages handles GET /api/sessions/{id}/messages, in insertion order.
func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.Messages(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messageListResponse{Messages: messages})
}

func (h *sessionHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", "unknown session id")
		return
	}
	h.logger.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, "storage_error", message)
}
