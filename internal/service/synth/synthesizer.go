// Package synth dispatches sentence segments to the speech-synthesis
// collaborator with classified retry and capped exponential backoff.
package synth

import (
	"context"
	"errors"
	"fmt"
)

// Outcome classifies the end result of synthesizing one segment.
type Outcome int

const (
	// OutcomeOK means audio was produced.
	OutcomeOK Outcome = iota
	// OutcomeSkipped means synthesis failed; the segment is delivered
	// as a skip event and the stream continues.
	OutcomeSkipped
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", o)
	}
}

// Result is the product of one synthesis worker, consumed exactly once
// by the reassembler.
type Result struct {
	Index    int
	Sentence string
	Audio    []byte // nil when skipped
	Outcome  Outcome
	Attempts int
}

// Synthesizer converts one sentence of text into opaque audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// StatusError reports a non-2xx response from the synthesis collaborator.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("synthesis failed with status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the error is worth retrying: rate limiting
// (429) and server errors (5xx). Auth and validation failures (other
// 4xx) and transport aborts fail immediately.
func Retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode >= 500
	}
	return false
}
