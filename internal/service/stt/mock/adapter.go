// Package mock provides a mock STT adapter for running the transcription
// bridge without cloud credentials. It simulates realistic recognition:
// progressive interim transcripts, one final per utterance, and trailing
// finals on flush.
package mock

import (
	"context"
	"sync"
	"time"

	"interview-voice-service/internal/service/stt"
)

// SimulatedUtterance is a scripted utterance with progressive partials.
type SimulatedUtterance struct {
	Partials   []string
	Final      string
	Confidence float64
}

// DefaultUtterances provides sample candidate answers for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"I worked", "I worked on a", "I worked on a payment"},
		Final:      "I worked on a payment processing system",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"We used", "We used Go and"},
		Final:      "We used Go and Kafka for the backend",
		Confidence: 0.96,
	},
	{
		Partials:   []string{"The hardest", "The hardest part was"},
		Final:      "The hardest part was handling retries",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"Yes", "Yes I can"},
		Final:      "Yes I can walk you through the design",
		Confidence: 0.97,
	},
}

// Adapter implements stt.Adapter with scripted responses: one partial
// per audio frame, a final once the script is exhausted, and a trailing
// final plus OnDone on Flush. Results are delivered asynchronously from
// a single dispatcher goroutine so their order matches real providers.
type Adapter struct {
	mu           sync.Mutex
	cb           stt.Callback
	utterance    SimulatedUtterance
	partialIndex int
	finalSent    bool
	doneSent     bool
	closed       bool
	delay        time.Duration
	queue        chan func(stt.Callback)
}

var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a mock adapter cycling through DefaultUtterances.
func New() *Adapter {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	return &Adapter{
		utterance: DefaultUtterances[idx],
		delay:     20 * time.Millisecond,
	}
}

// NewWithUtterance creates a mock adapter with a fixed script and no
// simulated processing delay; used by tests.
func NewWithUtterance(u SimulatedUtterance) *Adapter {
	return &Adapter{utterance: u}
}

// Start begins a mock recognition session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	a.queue = make(chan func(stt.Callback), 64)
	go a.dispatch(cb)
	return nil
}

// dispatch delivers queued results in order, one at a time.
func (a *Adapter) dispatch(cb stt.Callback) {
	for fn := range a.queue {
		if a.delay > 0 {
			time.Sleep(a.delay)
		}
		fn(cb)
	}
}

// SendAudio consumes one frame and emits the next scripted partial, or
// the final once partials are exhausted.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}

	if a.partialIndex < len(a.utterance.Partials) {
		partial := a.utterance.Partials[a.partialIndex]
		a.partialIndex++
		a.deliver(func(cb stt.Callback) { cb.OnPartial(partial) })
		return nil
	}

	if !a.finalSent {
		a.finalSent = true
		utt := a.utterance
		a.deliver(func(cb stt.Callback) { cb.OnFinal(utt.Final, utt.Confidence) })
	}
	return nil
}

// Flush finalizes buffered recognition: if no final was emitted yet the
// scripted final is delivered now, then OnDone fires.
func (a *Adapter) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil || a.doneSent {
		return nil
	}
	a.doneSent = true

	utt := a.utterance
	sendFinal := !a.finalSent && a.partialIndex > 0
	a.finalSent = true

	a.deliver(func(cb stt.Callback) {
		if sendFinal {
			cb.OnFinal(utt.Final, utt.Confidence)
		}
		cb.OnDone()
	})
	return nil
}

// Close ends the mock session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		if a.queue != nil {
			close(a.queue)
		}
	}
	return nil
}

// deliver enqueues a result for the dispatcher. Caller must hold a.mu.
func (a *Adapter) deliver(fn func(stt.Callback)) {
	if a.queue == nil {
		return
	}
	select {
	case a.queue <- fn:
	default:
		// Queue full: a misbehaving consumer; drop the result.
	}
}
