// Package segmenter splits an incrementally growing text buffer into
// completed sentence segments for speech synthesis.
package segmenter

import (
	"strings"
	"unicode"
)

// Segment is one synthesis unit: a contiguous span of generated text.
// Index is the sole ordering key for the whole pipeline.
type Segment struct {
	Index int
	Text  string
}

// Segmenter accumulates token text and emits a segment each time the
// buffer contains a sentence-terminal mark (. ! ?) followed by
// whitespace. Abbreviations and decimal points are not special-cased;
// "Dr. Smith" over-segments and that behavior is covered by tests.
type Segmenter struct {
	buf     strings.Builder
	next    int
	flushed bool
}

// New creates an empty segmenter with the index counter at zero.
func New() *Segmenter {
	return &Segmenter{}
}

// Feed appends token text to the buffer and returns any segments it
// completed. Short segments are emitted as-is; no merging, to keep
// synthesis latency low.
func (s *Segmenter) Feed(token string) []Segment {
	s.buf.WriteString(token)
	text := s.buf.String()

	var out []Segment
	for {
		cut := sentenceEnd(text)
		if cut < 0 {
			break
		}
		out = append(out, Segment{Index: s.next, Text: text[:cut]})
		s.next++
		text = text[cut:]
	}

	if len(out) > 0 {
		s.buf.Reset()
		s.buf.WriteString(text)
	}
	return out
}

// Flush emits the trailing segment for any buffered remainder, even if
// it lacks terminal punctuation. It must be called exactly once, after
// the token stream completes; later calls report nothing to flush.
func (s *Segmenter) Flush() (Segment, bool) {
	if s.flushed {
		return Segment{}, false
	}
	s.flushed = true

	rest := s.buf.String()
	s.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return Segment{}, false
	}
	seg := Segment{Index: s.next, Text: rest}
	s.next++
	return seg, true
}

// Count returns the number of segments emitted so far. After Flush it is
// the final segment count of the stream.
func (s *Segmenter) Count() int {
	return s.next
}

// sentenceEnd returns the index one past the end of the first completed
// sentence in text, including the whitespace run that follows its
// terminal mark, or -1 if no sentence is complete yet.
func sentenceEnd(text string) int {
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		if j >= len(text) || !unicode.IsSpace(rune(text[j])) {
			continue
		}
		for j < len(text) && unicode.IsSpace(rune(text[j])) {
			j++
		}
		return j
	}
	return -1
}
