package server

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SessionIDGenerator produces unique session identifiers.
type SessionIDGenerator struct {
	counter uint64
}

// NewSessionIDGenerator creates a generator.
func NewSessionIDGenerator() *SessionIDGenerator {
	return &SessionIDGenerator{}
}

// Next returns a new session ID with the given prefix.
func (g *SessionIDGenerator) Next(prefix string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), n)
}
