package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"interview-voice-service/internal/observability"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(streamHandler *StreamHandler, transcribeHandler *TranscribeHandler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/interview/stream", streamHandler.ServeHTTP)
		r.Get("/transcribe/session", transcribeHandler.ServeSession)
		r.Get("/transcribe", transcribeHandler.ServeSocket)
	})

	return r
}
