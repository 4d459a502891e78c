package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"interview-voice-service/internal/events"
	"interview-voice-service/internal/models"
	"interview-voice-service/internal/service/stt"
	"interview-voice-service/internal/service/transcribe"
)

// AdapterFactory creates one STT adapter per transcription session.
type AdapterFactory func(ctx context.Context) (stt.Adapter, error)

// TranscribeHandler serves the duplex transcription socket and the
// session discovery endpoint.
type TranscribeHandler struct {
	factory    AdapterFactory
	publisher  *events.Publisher
	limits     transcribe.SessionLimits
	ids        *SessionIDGenerator
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
	sampleRate int
	publicHost string
}

// NewTranscribeHandler creates the transcription handler.
func NewTranscribeHandler(
	factory AdapterFactory,
	publisher *events.Publisher,
	limits transcribe.SessionLimits,
	ids *SessionIDGenerator,
	logger zerolog.Logger,
	sampleRate int,
	publicHost string,
) *TranscribeHandler {
	return &TranscribeHandler{
		factory:    factory,
		publisher:  publisher,
		limits:     limits,
		ids:        ids,
		logger:     logger,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		sampleRate: sampleRate,
		publicHost: publicHost,
	}
}

// ServeSession handles GET /v1/transcribe/session: it tells the capture
// pipeline where to connect and what the socket expects.
func (h *TranscribeHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	desc := models.SessionDescriptor{
		SocketURL:  "ws://" + h.publicHost + "/v1/transcribe",
		SampleRate: h.sampleRate,
		Encoding:   "linear16",
		Channels:   1,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(desc)
}

// wsSink writes session messages as JSON text frames. The transcribe
// handler serializes calls, so no extra locking is needed here.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) SendTranscript(text string, isFinal bool) error {
	return s.conn.WriteJSON(models.TranscriptMessage{
		Type:    models.MessageTypeTranscript,
		Text:    text,
		IsFinal: isFinal,
	})
}

func (s *wsSink) SendFlushDone() error {
	return s.conn.WriteJSON(models.TranscriptMessage{Type: models.MessageTypeFlushDone})
}

func (s *wsSink) SendDone() error {
	return s.conn.WriteJSON(models.TranscriptMessage{Type: models.MessageTypeDone})
}

func (s *wsSink) SendError(msg string) error {
	return s.conn.WriteJSON(models.TranscriptMessage{Type: models.MessageTypeError, Error: msg})
}

// ServeSocket handles GET /v1/transcribe: binary frames carry raw
// little-endian PCM16 audio up; JSON text frames carry transcription
// results down. A text frame with the finalize sentinel flushes the
// session and closes the socket with a normal close code.
func (h *TranscribeHandler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := h.ids.Next("transcribe")
	logger := h.logger.With().Str("sessionId", sessionID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter, err := h.factory(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create STT adapter")
		sink := &wsSink{conn: conn}
		_ = sink.SendError("transcription unavailable")
		return
	}

	handler := transcribe.NewHandlerWithLimits(adapter, h.publisher, &wsSink{conn: conn}, sessionID, logger, h.limits)
	defer handler.Close()

	if err := handler.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start transcription session")
		handler.SendError("transcription unavailable")
		return
	}
	logger.Info().Msg("Transcription session started")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info().Err(err).Msg("Transcription socket closed unexpectedly")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := handler.SendAudio(ctx, data); err != nil {
				// Route through the handler so the error frame cannot
				// interleave with a concurrent callback write.
				logger.Warn().Err(err).Msg("Rejecting audio frame")
				handler.SendError(err.Error())
				return
			}
		case websocket.TextMessage:
			if string(data) == models.FinalizeSentinel {
				if err := handler.Finalize(ctx); err != nil {
					logger.Warn().Err(err).Msg("Finalize failed")
				}
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				logger.Info().Msg("Transcription session finalized")
				return
			}
			logger.Warn().Str("frame", string(data)).Msg("Unknown control frame")
		}
	}
}
