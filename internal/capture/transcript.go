package capture

import (
	"strings"
	"sync"
)

// Transcript holds the live transcript state of one capture session.
// Final parts only grow; the interim is replaced wholesale on every
// update and cleared when a final for the same utterance arrives.
// Thread-safe: the audio-producing path and the message-receiving path
// both touch it.
type Transcript struct {
	mu         sync.Mutex
	finalParts []string
	interim    string
	connected  bool
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AppendFinal commits a final transcript part and clears the interim.
func (t *Transcript) AppendFinal(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalParts = append(t.finalParts, text)
	t.interim = ""
}

// SetInterim replaces the interim transcript wholesale.
func (t *Transcript) SetInterim(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interim = text
}

// SetConnected records the connection state.
func (t *Transcript) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
}

// Connected reports whether the socket is currently connected.
func (t *Transcript) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Display returns the externally observable transcript: the committed
// parts followed by the current interim, trimmed.
func (t *Transcript) Display() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.finalParts, " ") + " " + t.interim)
}

// FlushInterim promotes any pending interim text into the committed
// parts and returns the full transcript. Called on finalize so trailing
// speech that never received a final is not lost.
func (t *Transcript) FlushInterim() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.interim != "" {
		t.finalParts = append(t.finalParts, t.interim)
		t.interim = ""
	}
	return strings.TrimSpace(strings.Join(t.finalParts, " "))
}

// Reset clears all transcript state.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalParts = nil
	t.interim = ""
	t.connected = false
}
