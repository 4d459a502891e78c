// Package llm defines the interface for the token-streaming
// text-generation collaborator.
package llm

import (
	"context"

	"interview-voice-service/internal/conversation"
)

// Prompt is one generation request: the current candidate message plus
// the interview context.
type Prompt struct {
	Question    string
	UserMessage string
	History     []conversation.Turn
}

// TokenStream yields incremental text chunks. Recv returns io.EOF when
// the generation completes normally.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// TokenStreamer opens a streaming generation for a prompt.
type TokenStreamer interface {
	StreamGenerate(ctx context.Context, p Prompt) (TokenStream, error)
}
