// Package stt defines the interface for streaming speech-to-text
// providers used by the transcription bridge.
package stt

import "context"

// Callback receives recognition results from the STT provider.
type Callback interface {
	// OnPartial is called for an interim transcript; later partials
	// supersede earlier ones for the same utterance.
	OnPartial(text string)

	// OnFinal is called for a committed transcript segment.
	OnFinal(text string, confidence float64)

	// OnDone is called once the provider has flushed all buffered
	// audio and will produce no further results.
	OnDone()

	// OnError is called when recognition fails.
	OnError(err error)
}

// Adapter is a streaming STT provider session.
type Adapter interface {
	// Start begins a streaming recognition session. Results arrive on
	// the callback from a provider-owned goroutine.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends one frame of raw PCM16 audio.
	SendAudio(ctx context.Context, audio []byte) error

	// Flush asks the provider to finalize buffered audio. Trailing
	// finals are delivered before OnDone fires.
	Flush() error

	// Close ends the session and releases resources.
	Close() error
}
