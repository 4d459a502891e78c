// Package stream orchestrates the response pipeline: token consumption,
// sentence segmentation, concurrent synthesis fan-out, and in-order
// event emission.
package stream

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interview-voice-service/internal/events"
	"interview-voice-service/internal/models"
	"interview-voice-service/internal/observability/metrics"
	"interview-voice-service/internal/service/llm"
	"interview-voice-service/internal/service/reassembly"
	"interview-voice-service/internal/service/segmenter"
	"interview-voice-service/internal/service/synth"
)

// Sink receives stream events in emission order. Implementations are
// not required to be safe for concurrent use; the streamer serializes
// all sends.
type Sink interface {
	Send(ev models.StreamEvent) error
}

// Streamer drives one response stream per call. A single sequential
// loop consumes generation tokens and fans out one synthesis goroutine
// per segment; results funnel back through the reassembler so that
// audio and skip events leave in strict index order.
type Streamer struct {
	generator llm.TokenStreamer
	worker    *synth.Worker
	publisher *events.Publisher
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// New creates a streamer.
func New(generator llm.TokenStreamer, worker *synth.Worker, publisher *events.Publisher, logger zerolog.Logger) *Streamer {
	return &Streamer{
		generator: generator,
		worker:    worker,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics.DefaultMetrics,
	}
}

// emitter serializes writes to the sink. After the first send failure
// (client gone) all later events are discarded.
type emitter struct {
	mu      sync.Mutex
	sink    Sink
	failed  bool
	skipped int
}

func (e *emitter) send(evs ...models.StreamEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendLocked(evs)
}

// submit funnels one synthesis result through the reassembler and emits
// whatever became ready. Draining and sending happen under the same
// lock: once a worker drains the watermark forward, no other worker can
// reach the sink before those events do.
func (e *emitter) submit(re *reassembly.Reassembler, res synth.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendLocked(re.Submit(res))
}

func (e *emitter) sendLocked(evs []models.StreamEvent) {
	for _, ev := range evs {
		if e.failed {
			return
		}
		if _, ok := ev.(models.SkipEvent); ok {
			e.skipped++
		}
		if err := e.sink.Send(ev); err != nil {
			e.failed = true
		}
	}
}

func (e *emitter) skipCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.skipped
}

// Stream runs one full response stream and blocks until it terminates
// with exactly one done or error event.
func (s *Streamer) Stream(ctx context.Context, sessionID string, p llm.Prompt, sink Sink) error {
	start := time.Now()
	s.metrics.RecordStreamStart()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := s.logger.With().Str("sessionId", sessionID).Logger()

	ts, err := s.generator.StreamGenerate(ctx, p)
	if err != nil {
		logger.Error().Err(err).Msg("Generation stream failed to open")
		em := &emitter{sink: sink}
		em.send(models.NewErrorEvent("failed to start response generation"))
		s.metrics.RecordStreamEnd(false, time.Since(start).Seconds())
		return err
	}
	defer ts.Close()

	seg := segmenter.New()
	re := reassembly.New()
	em := &emitter{sink: sink}
	var wg sync.WaitGroup

	dispatch := func(sg segmenter.Segment) {
		s.metrics.RecordSegmentCreated()
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.worker.Synthesize(ctx, sg)
			em.submit(re, res)
		}()
	}

	var full strings.Builder
	for {
		token, err := ts.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Partial text already streamed to the client stands.
			logger.Error().Err(err).Int("segments", seg.Count()).Msg("Generation stream failed")
			cancel()
			wg.Wait()
			em.send(models.NewErrorEvent("response generation failed"))
			s.metrics.RecordStreamEnd(false, time.Since(start).Seconds())
			return err
		}

		full.WriteString(token)
		em.send(models.NewTokenEvent(token))
		s.metrics.RecordToken()

		for _, sg := range seg.Feed(token) {
			dispatch(sg)
		}
	}

	if sg, ok := seg.Flush(); ok {
		dispatch(sg)
	}
	re.SetTotal(seg.Count())

	wg.Wait()
	em.send(re.Drain()...)

	if !re.Complete() {
		logger.Error().Int("total", seg.Count()).Msg("Reassembly incomplete after all workers settled")
	}

	em.send(models.NewDoneEvent(full.String()))
	logger.Info().
		Int("segments", seg.Count()).
		Int("skipped", em.skipCount()).
		Dur("duration", time.Since(start)).
		Msg("Response stream completed")

	if s.publisher != nil {
		if err := s.publisher.PublishTurnCompleted(ctx, sessionID, events.TurnCompleted{
			SessionID: sessionID,
			Question:  p.Question,
			FullText:  full.String(),
			Segments:  seg.Count(),
			Skipped:   em.skipCount(),
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish turn completed event")
		}
	}

	s.metrics.RecordStreamEnd(true, time.Since(start).Seconds())
	return nil
}
