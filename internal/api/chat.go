package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lorebot/lore/internal/chat"
	"github.com/lorebot/lore/internal/session"
)

// maxMessageBytes bounds a chat or search message body field.
const maxMessageBytes = 8000

type chatHandler struct {
	service ChatService
	logger  *slog.Logger
}

type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

func (c chatRequest) validate() (code, message string, ok bool) {
	if strings.TrimSpace(c.Message) == "" {
		return "invalid_request", "message is required", false
	}
	if len(c.Message) > maxMessageBytes {
		return "invalid_request", fmt.Sprintf("message exceeds %d bytes", maxMessageBytes), false
	}
	return "", "", true
}

// chat handles POST /api/chat: one full request/response turn.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if code, message, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, code, message)
		return
	}

	out, err := h.service.Chat(r.Context(), chat.Input{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "unknown session id")
			return
		}
		h.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusBadGateway, "chat_failed", "assistant is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// sseChunk is the payload of a "chunk" event.
type sseChunk struct {
	Text string `json:"text"`
}

// stream handles POST /api/chat/stream: the same turn as chat, delivered
// as server-sent events. Events: "chunk" per response delta, one "done"
// with the full Output, or one "error" if the turn fails mid-stream.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if code, message, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, code, message)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	out, err := h.service.ChatStream(ctx, chat.Input{
		SessionID: req.SessionID,
		Message:   req.Message,
	}, func(delta string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		writeSSE(w, flusher, "chunk", sseChunk{Text: delta})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Debug("client disconnected during stream")
			return
		}
		code := "chat_failed"
		message := "assistant is unavailable"
		if errors.Is(err, session.ErrNotFound) {
			code, message = "session_not_found", "unknown session id"
		} else {
			h.logger.Error("chat stream failed", "error", err)
		}
		writeSSE(w, flusher, "error", ErrorResponse{Error: code, Message: message})
		return
	}

	writeSSE(w, flusher, "done", out)
}

// writeSSE emits one server-sent event and flushes it to the client.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode sse event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
