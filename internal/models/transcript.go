package models

// Duplex transcription socket message types.
const (
	MessageTypeTranscript = "transcript"
	MessageTypeFlushDone  = "flush_done"
	MessageTypeDone       = "done"
	MessageTypeError      = "error"
)

// FinalizeSentinel is the text control frame a client sends to request
// a flush of any buffered partial recognition.
const FinalizeSentinel = "finalize"

// TranscriptMessage is a transcription-side JSON message. The same shape
// covers all four message types; Text and IsFinal are meaningful only for
// "transcript", Error only for "error".
type TranscriptMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"is_final"`
	Error   string `json:"error,omitempty"`
}

// SessionDescriptor is returned by the session endpoint and tells the
// capture pipeline where to connect and what the socket expects.
type SessionDescriptor struct {
	SocketURL  string `json:"socketUrl"`
	SampleRate int    `json:"sampleRate"`
	Encoding   string `json:"encoding"` // always "linear16"
	Channels   int    `json:"channels"`
}
