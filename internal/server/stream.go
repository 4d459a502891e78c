// Package server exposes the HTTP surface: the interview response
// stream, the duplex transcription socket, and session discovery.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"interview-voice-service/internal/conversation"
	"interview-voice-service/internal/models"
	"interview-voice-service/internal/service/llm"
	"interview-voice-service/internal/service/stream"
)

// StreamRequest is the body of POST /v1/interview/stream.
type StreamRequest struct {
	UserMessage string              `json:"userMessage"`
	Question    string              `json:"question"`
	History     []conversation.Turn `json:"history"`
}

// Streamer runs one response stream to completion.
type Streamer interface {
	Stream(ctx context.Context, sessionID string, p llm.Prompt, sink stream.Sink) error
}

// StreamHandler serves the server-sent event response stream.
type StreamHandler struct {
	streamer    Streamer
	ids         *SessionIDGenerator
	logger      zerolog.Logger
	credentials func() bool
}

// NewStreamHandler creates the stream handler. credentials reports
// whether the generation and synthesis collaborators are configured.
func NewStreamHandler(streamer Streamer, ids *SessionIDGenerator, logger zerolog.Logger, credentials func() bool) *StreamHandler {
	return &StreamHandler{
		streamer:    streamer,
		ids:         ids,
		logger:      logger,
		credentials: credentials,
	}
}

// sseSink writes stream events in server-sent event framing.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(ev models.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ServeHTTP handles POST /v1/interview/stream. Request validation
// failures are reported before any SSE stream is opened.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserMessage == "" {
		writeJSONError(w, http.StatusBadRequest, "userMessage is required")
		return
	}
	if req.Question == "" {
		writeJSONError(w, http.StatusBadRequest, "question is required")
		return
	}
	if h.credentials != nil && !h.credentials() {
		writeJSONError(w, http.StatusServiceUnavailable, "speech services are not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sessionID := h.ids.Next("interview")
	prompt := llm.Prompt{
		Question:    req.Question,
		UserMessage: req.UserMessage,
		History:     req.History,
	}

	if err := h.streamer.Stream(r.Context(), sessionID, prompt, &sseSink{w: w, flusher: flusher}); err != nil {
		// The terminal error event already went out on the stream.
		h.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Response stream ended with error")
	}
}
