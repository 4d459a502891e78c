// Package reassembly re-serializes out-of-order synthesis results into
// a strictly index-ordered event sequence.
package reassembly

import (
	"encoding/base64"
	"sync"

	"interview-voice-service/internal/models"
	"interview-voice-service/internal/service/synth"
)

// Reassembler buffers synthesis results keyed by segment index and
// drains them contiguously from a watermark starting at 0. Results may
// be submitted in any order; emission order is always 0..N-1 with no
// gaps and no repeats. The pending map and watermark are mutated only
// inside the submit/drain critical section.
type Reassembler struct {
	mu      sync.Mutex
	pending map[int]synth.Result
	next    int // watermark: next index expected for emission
	total   int // final segment count, -1 until known
}

// New creates an empty reassembler with an unknown total.
func New() *Reassembler {
	return &Reassembler{
		pending: make(map[int]synth.Result),
		total:   -1,
	}
}

// SetTotal records the final segment count, known once the segmenter
// has flushed. Completion cannot be reported before this is called.
func (r *Reassembler) SetTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = n
}

// Submit stores one result and returns every event that became ready:
// the contiguous run of pending results starting at the watermark,
// converted to audio or skip events.
func (r *Reassembler) Submit(res synth.Result) []models.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[res.Index] = res
	return r.drainLocked()
}

// Drain returns any events ready at the watermark without submitting a
// new result.
func (r *Reassembler) Drain() []models.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drainLocked()
}

func (r *Reassembler) drainLocked() []models.StreamEvent {
	var out []models.StreamEvent
	for {
		res, ok := r.pending[r.next]
		if !ok {
			return out
		}
		delete(r.pending, r.next)

		if res.Outcome == synth.OutcomeOK {
			out = append(out, models.NewAudioEvent(
				res.Index, res.Sentence, base64.StdEncoding.EncodeToString(res.Audio)))
		} else {
			out = append(out, models.NewSkipEvent(res.Index, res.Sentence))
		}
		r.next++
	}
}

// Complete reports whether every segment up to the known total has been
// emitted. False while the total is unknown.
func (r *Reassembler) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total >= 0 && r.next >= r.total
}

// PendingCount returns the number of buffered out-of-order results.
func (r *Reassembler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
