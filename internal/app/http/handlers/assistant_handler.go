package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/http/handlers/assistant"
)

func (h *Handlers) decodeAssistantRequest(w http.ResponseWriter, r *http.Request) (assistant.Request, bool) {
	var req assistant.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return req, false
	}
	req.Input = strings.TrimSpace(req.Input)
	if req.Store == "" || req.ClientID == "" {
		http.Error(w, "store and client_id are required", http.StatusBadRequest)
		return req, false
	}
	if req.InteractionType == "" {
		req.InteractionType = assistant.InteractionChat
	}
	if req.RequestUUID == "" {
		req.RequestUUID = uuid.NewString()
	}
	return req, true
}

func (h *Handlers) AssistantChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAssistantRequest(w, r)
	if !ok {
		return
	}
	if req.Input == "" && req.InteractionType == assistant.InteractionChat {
		http.Error(w, "input is required", http.StatusBadRequest)
		return
	}

	reply, err := h.Assistant.Run(r.Context(), req)
	if err != nil {
		h.Log.Warn("assistant request failed", zap.String("req", req.RequestUUID), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, assistant.ErrEmptyIndex) {
			status = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(assistant.Response{Show: false})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assistant.Response{Show: true, Reply: reply})
}

// AssistantStream serves the streaming interaction as server-sent events:
// every channel event becomes a "chunk" SSE event, and the guaranteed
// terminal End event becomes "end".
func (h *Handlers) AssistantStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAssistantRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Drain the channel fully even after a write error so the producer
	// never blocks.
	clientGone := false
	for ev := range h.Assistant.Stream(r.Context(), req) {
		if clientGone {
			continue
		}
		name := "chunk"
		if ev.Kind == assistant.EventEnd {
			name = "end"
		}
		if err := writeSSE(w, name, ev.Payload); err != nil {
			clientGone = true
			continue
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, event, payload string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteString("\n")
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := w.Write([]byte(b.String()))
	return err
}
