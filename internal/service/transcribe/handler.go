// Package transcribe coordinates one duplex transcription session: it
// forwards client audio to the STT adapter and relays recognition
// results back to the socket, enforcing per-session resource limits.
package transcribe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interview-voice-service/internal/events"
	"interview-voice-service/internal/observability/metrics"
	"interview-voice-service/internal/service/stt"
)

// FinalizeGrace bounds how long a finalize request waits for the
// provider to flush buffered audio before the session is closed anyway.
const FinalizeGrace = 3 * time.Second

// SessionLimits defines safety guardrails for a transcription session.
// These prevent unbounded resource usage from a misbehaving client.
type SessionLimits struct {
	MaxAudioBytes int64         // Max audio accepted per session
	MaxDuration   time.Duration // Max session duration
	MaxPartials   int           // Max interim transcripts per session
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() SessionLimits {
	return SessionLimits{
		MaxAudioBytes: 20 * 1024 * 1024, // 20MB (~10 minutes at 16kHz 16-bit mono)
		MaxDuration:   15 * time.Minute,
		MaxPartials:   2000,
	}
}

// Sink receives session output messages. The handler serializes all
// calls, so implementations backed by a websocket need no extra locking.
type Sink interface {
	SendTranscript(text string, isFinal bool) error
	SendFlushDone() error
	SendDone() error
	SendError(msg string) error
}

// Handler manages one transcription session. It implements stt.Callback
// to receive recognition results and relay them to the sink.
type Handler struct {
	adapter   stt.Adapter
	publisher *events.Publisher
	sessionID string
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	limits    SessionLimits

	// done is closed when the provider signals it will produce no
	// further results.
	done     chan struct{}
	doneOnce sync.Once

	sendMu sync.Mutex
	sink   Sink
	failed bool

	mu           sync.Mutex
	startTime    time.Time
	audioBytes   int64
	partialCount int
	dropped      bool
}

// NewHandler creates a session handler with default limits.
func NewHandler(adapter stt.Adapter, publisher *events.Publisher, sink Sink, sessionID string, logger zerolog.Logger) *Handler {
	return NewHandlerWithLimits(adapter, publisher, sink, sessionID, logger, DefaultLimits())
}

// NewHandlerWithLimits creates a session handler with custom limits.
func NewHandlerWithLimits(adapter stt.Adapter, publisher *events.Publisher, sink Sink, sessionID string, logger zerolog.Logger, limits SessionLimits) *Handler {
	return &Handler{
		adapter:   adapter,
		publisher: publisher,
		sessionID: sessionID,
		logger:    logger.With().Str("sessionId", sessionID).Logger(),
		metrics:   metrics.DefaultMetrics,
		limits:    limits,
		done:      make(chan struct{}),
		sink:      sink,
		startTime: time.Now(),
	}
}

// Start begins the STT session with this handler as the callback receiver.
func (h *Handler) Start(ctx context.Context) error {
	h.metrics.RecordSessionStart()
	return h.adapter.Start(ctx, h)
}

// SendAudio forwards one binary audio frame to the STT adapter.
// Returns an error when session limits are exceeded; the session should
// then be torn down.
func (h *Handler) SendAudio(ctx context.Context, audio []byte) error {
	h.mu.Lock()
	if h.dropped {
		h.mu.Unlock()
		return fmt.Errorf("session dropped")
	}
	h.audioBytes += int64(len(audio))
	currentBytes := h.audioBytes
	startTime := h.startTime
	h.mu.Unlock()

	if h.limits.MaxAudioBytes > 0 && currentBytes > h.limits.MaxAudioBytes {
		reason := fmt.Sprintf("max audio bytes exceeded: %d > %d", currentBytes, h.limits.MaxAudioBytes)
		h.drop(reason)
		return fmt.Errorf("session limit exceeded: %s", reason)
	}
	if h.limits.MaxDuration > 0 && time.Since(startTime) > h.limits.MaxDuration {
		reason := fmt.Sprintf("max duration exceeded: %v > %v", time.Since(startTime).Round(time.Second), h.limits.MaxDuration)
		h.drop(reason)
		return fmt.Errorf("session limit exceeded: %s", reason)
	}

	h.metrics.RecordAudioReceived(len(audio))
	return h.adapter.SendAudio(ctx, audio)
}

// Finalize flushes buffered recognition and completes the session. Any
// trailing finals arrive through the callback before the provider
// signals done; flush_done and done are then sent in that order. If the
// provider does not settle within FinalizeGrace the session completes
// anyway.
func (h *Handler) Finalize(ctx context.Context) error {
	if err := h.adapter.Flush(); err != nil {
		h.logger.Warn().Err(err).Msg("STT flush failed")
	}

	select {
	case <-h.done:
	case <-time.After(FinalizeGrace):
		h.logger.Warn().Dur("grace", FinalizeGrace).Msg("Finalize grace expired before provider settled")
	case <-ctx.Done():
	}

	h.send(func(s Sink) error { return s.SendFlushDone() })
	h.send(func(s Sink) error { return s.SendDone() })
	return nil
}

// SendError forwards a session-level error to the client. It shares the
// serialized send path with the recognition callbacks, so callers may
// use it while the adapter is still delivering results.
func (h *Handler) SendError(msg string) {
	h.send(func(s Sink) error { return s.SendError(msg) })
}

// Close ends the STT session and releases resources.
func (h *Handler) Close() error {
	h.metrics.RecordSessionEnd()
	return h.adapter.Close()
}

// --- stt.Callback implementation ---

// OnPartial relays an interim transcript to the client.
func (h *Handler) OnPartial(text string) {
	h.mu.Lock()
	if h.dropped {
		h.mu.Unlock()
		return
	}
	h.partialCount++
	count := h.partialCount
	h.mu.Unlock()

	if h.limits.MaxPartials > 0 && count > h.limits.MaxPartials {
		h.drop(fmt.Sprintf("max partials exceeded: %d > %d", count, h.limits.MaxPartials))
		return
	}

	h.metrics.RecordPartialTranscript()
	h.send(func(s Sink) error { return s.SendTranscript(text, false) })
}

// OnFinal relays a committed transcript to the client and publishes it
// for analytics.
func (h *Handler) OnFinal(text string, confidence float64) {
	h.mu.Lock()
	if h.dropped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.metrics.RecordFinalTranscript()
	h.send(func(s Sink) error { return s.SendTranscript(text, true) })

	if h.publisher != nil {
		if err := h.publisher.PublishTranscriptFinal(context.Background(), h.sessionID, events.TranscriptFinal{
			SessionID:  h.sessionID,
			Text:       text,
			Confidence: confidence,
		}); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to publish final transcript event")
		}
	}
}

// OnDone marks the provider as settled; a pending Finalize unblocks.
func (h *Handler) OnDone() {
	h.doneOnce.Do(func() { close(h.done) })
}

// OnError relays a recognition failure. The session is dropped; no
// further transcripts will be forwarded.
func (h *Handler) OnError(err error) {
	h.logger.Error().Err(err).Msg("STT recognition failed")
	h.drop("recognition error")
	h.send(func(s Sink) error { return s.SendError("transcription failed") })
	// Unblock a pending finalize; the provider will not settle cleanly.
	h.OnDone()
}

func (h *Handler) drop(reason string) {
	h.mu.Lock()
	already := h.dropped
	h.dropped = true
	h.mu.Unlock()
	if !already {
		h.logger.Warn().Str("reason", reason).Msg("Transcription session dropped")
	}
}

// send serializes sink writes. After the first failure (client gone)
// later messages are discarded.
func (h *Handler) send(fn func(Sink) error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	if h.failed {
		return
	}
	if err := fn(h.sink); err != nil {
		h.failed = true
	}
}
