package synth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"interview-voice-service/internal/service/segmenter"
)

// scriptedSynthesizer returns one scripted response per call.
type scriptedSynthesizer struct {
	calls     int
	responses []error
	audio     []byte
}

func (s *scriptedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	i := s.calls
	s.calls++
	if i < len(s.responses) && s.responses[i] != nil {
		return nil, s.responses[i]
	}
	return s.audio, nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestWorker_SucceedsFirstAttempt(t *testing.T) {
	s := &scriptedSynthesizer{audio: []byte("pcm")}
	w := NewWorker(s, fastPolicy(), zerolog.Nop())

	res := w.Synthesize(context.Background(), segmenter.Segment{Index: 0, Text: "Hello. "})

	if res.Outcome != OutcomeOK {
		t.Fatalf("expected OK, got %v", res.Outcome)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	if string(res.Audio) != "pcm" {
		t.Errorf("unexpected audio %q", res.Audio)
	}
	if res.Sentence != "Hello. " {
		t.Errorf("unexpected sentence %q", res.Sentence)
	}
}

func TestWorker_RetriesOn429ThenSucceeds(t *testing.T) {
	s := &scriptedSynthesizer{
		responses: []error{&StatusError{StatusCode: 429, Body: "rate limited"}},
		audio:     []byte("pcm"),
	}
	w := NewWorker(s, fastPolicy(), zerolog.Nop())

	res := w.Synthesize(context.Background(), segmenter.Segment{Index: 2, Text: "Again. "})

	if res.Outcome != OutcomeOK {
		t.Fatalf("expected OK after retry, got %v", res.Outcome)
	}
	if res.Attempts < 2 {
		t.Errorf("expected attempt count >= 2, got %d", res.Attempts)
	}
	if s.calls != 2 {
		t.Errorf("expected 2 synthesis calls, got %d", s.calls)
	}
}

func TestWorker_ExhaustsRetriesOn500(t *testing.T) {
	s := &scriptedSynthesizer{
		responses: []error{
			&StatusError{StatusCode: 500, Body: "boom"},
			&StatusError{StatusCode: 500, Body: "boom"},
			&StatusError{StatusCode: 500, Body: "boom"},
		},
	}
	w := NewWorker(s, fastPolicy(), zerolog.Nop())

	res := w.Synthesize(context.Background(), segmenter.Segment{Index: 1, Text: "Bad. "})

	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected Skipped, got %v", res.Outcome)
	}
	if res.Attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", res.Attempts)
	}
	if s.calls != 3 {
		t.Errorf("expected 3 synthesis calls, got %d", s.calls)
	}
	if res.Audio != nil {
		t.Error("skipped result should carry no audio")
	}
}

func TestWorker_NonRetryableFailsImmediately(t *testing.T) {
	s := &scriptedSynthesizer{
		responses: []error{&StatusError{StatusCode: 401, Body: "bad key"}},
	}
	w := NewWorker(s, fastPolicy(), zerolog.Nop())

	res := w.Synthesize(context.Background(), segmenter.Segment{Index: 0, Text: "Nope. "})

	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected Skipped, got %v", res.Outcome)
	}
	if s.calls != 1 {
		t.Errorf("expected a single call for a non-retryable error, got %d", s.calls)
	}
}

func TestWorker_NetworkErrorNotRetried(t *testing.T) {
	s := &scriptedSynthesizer{
		responses: []error{errors.New("connection reset")},
	}
	w := NewWorker(s, fastPolicy(), zerolog.Nop())

	res := w.Synthesize(context.Background(), segmenter.Segment{Index: 0, Text: "Hi. "})

	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected Skipped, got %v", res.Outcome)
	}
	if s.calls != 1 {
		t.Errorf("expected 1 call, got %d", s.calls)
	}
}

func TestRetryable_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &StatusError{StatusCode: 429}, true},
		{"server error", &StatusError{StatusCode: 500}, true},
		{"bad gateway", &StatusError{StatusCode: 502}, true},
		{"unauthorized", &StatusError{StatusCode: 401}, false},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"not found", &StatusError{StatusCode: 404}, false},
		{"network abort", errors.New("broken pipe"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
