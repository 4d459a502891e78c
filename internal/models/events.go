// Package models defines the stream event wire contract.
package models

// Event type discriminants as they appear on the wire.
const (
	EventTypeToken = "token"
	EventTypeAudio = "audio"
	EventTypeSkip  = "skip"
	EventTypeDone  = "done"
	EventTypeError = "error"
)

// StreamEvent is the closed set of events emitted on a response stream.
// Each variant marshals to a JSON object with a "type" discriminant.
type StreamEvent interface {
	EventType() string
}

// TokenEvent carries one incremental text chunk from the generator.
type TokenEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AudioEvent carries synthesized speech for one sentence.
type AudioEvent struct {
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Sentence string `json:"sentence"`
	Audio    string `json:"audio"` // base64-encoded audio bytes
}

// SkipEvent signals a sentence whose audio could not be produced.
// The conversation continues without audio for that sentence.
type SkipEvent struct {
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Sentence string `json:"sentence"`
}

// DoneEvent terminates a successful stream. Exactly one per stream.
type DoneEvent struct {
	Type     string `json:"type"`
	FullText string `json:"fullText"`
}

// ErrorEvent terminates a failed stream.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewTokenEvent(text string) TokenEvent {
	return TokenEvent{Type: EventTypeToken, Text: text}
}

func NewAudioEvent(index int, sentence, audioBase64 string) AudioEvent {
	return AudioEvent{Type: EventTypeAudio, Index: index, Sentence: sentence, Audio: audioBase64}
}

func NewSkipEvent(index int, sentence string) SkipEvent {
	return SkipEvent{Type: EventTypeSkip, Index: index, Sentence: sentence}
}

func NewDoneEvent(fullText string) DoneEvent {
	return DoneEvent{Type: EventTypeDone, FullText: fullText}
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventTypeError, Error: message}
}

func (e TokenEvent) EventType() string { return e.Type }
func (e AudioEvent) EventType() string { return e.Type }
func (e SkipEvent) EventType() string  { return e.Type }
func (e DoneEvent) EventType() string  { return e.Type }
func (e ErrorEvent) EventType() string { return e.Type }
