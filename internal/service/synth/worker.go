package synth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"interview-voice-service/internal/observability/metrics"
	"interview-voice-service/internal/service/segmenter"
)

// RetryPolicy bounds the retry behavior for one segment.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, first try included
	BaseBackoff time.Duration // backoff before the second attempt
	MaxBackoff  time.Duration // backoff cap
}

// DefaultRetryPolicy returns the default policy: 3 attempts,
// 500ms doubling backoff capped at 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  4 * time.Second,
	}
}

// Worker synthesizes one segment at a time with bounded retry. Workers
// are dispatched concurrently, one goroutine per segment; exhausting
// retries on a retryable error yields a Skipped result, never a stream
// failure.
type Worker struct {
	synth   Synthesizer
	policy  RetryPolicy
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewWorker creates a synthesis worker.
func NewWorker(s Synthesizer, policy RetryPolicy, logger zerolog.Logger) *Worker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Worker{
		synth:   s,
		policy:  policy,
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
}

// Synthesize runs the retry loop for one segment and always returns a
// result: OK with audio, or Skipped.
func (w *Worker) Synthesize(ctx context.Context, seg segmenter.Segment) Result {
	start := time.Now()
	backoff := w.policy.BaseBackoff
	var elapsedBackoff time.Duration

	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
				elapsedBackoff += backoff
			case <-ctx.Done():
				w.logger.Warn().
					Int("index", seg.Index).
					Int("attempt", attempt).
					Msg("Synthesis canceled during backoff")
				return w.skipped(seg, attempt-1, start)
			}
			backoff *= 2
			if backoff > w.policy.MaxBackoff {
				backoff = w.policy.MaxBackoff
			}
		}

		w.logger.Debug().
			Int("index", seg.Index).
			Int("attempt", attempt).
			Dur("elapsedBackoff", elapsedBackoff).
			Msg("Synthesis attempt")

		audio, err := w.synth.Synthesize(ctx, seg.Text)
		if err == nil {
			w.metrics.RecordSynthesisAttempt("ok", attempt > 1)
			w.metrics.RecordSynthesisLatency(time.Since(start).Seconds())
			return Result{
				Index:    seg.Index,
				Sentence: seg.Text,
				Audio:    audio,
				Outcome:  OutcomeOK,
				Attempts: attempt,
			}
		}

		w.metrics.RecordSynthesisAttempt("error", attempt > 1)

		if !Retryable(err) {
			w.logger.Error().
				Err(err).
				Int("index", seg.Index).
				Int("attempt", attempt).
				Msg("Synthesis failed with non-retryable error")
			return w.skipped(seg, attempt, start)
		}

		w.logger.Warn().
			Err(err).
			Int("index", seg.Index).
			Int("attempt", attempt).
			Dur("elapsedBackoff", elapsedBackoff).
			Msg("Synthesis attempt failed, will retry")
	}

	w.logger.Error().
		Int("index", seg.Index).
		Int("attempts", w.policy.MaxAttempts).
		Msg("Synthesis retries exhausted, skipping segment")
	return w.skipped(seg, w.policy.MaxAttempts, start)
}

func (w *Worker) skipped(seg segmenter.Segment, attempts int, start time.Time) Result {
	w.metrics.RecordSegmentSkipped()
	w.metrics.RecordSynthesisLatency(time.Since(start).Seconds())
	return Result{
		Index:    seg.Index,
		Sentence: seg.Text,
		Outcome:  OutcomeSkipped,
		Attempts: attempts,
	}
}
