// Package capture implements the client-side capture pipeline: it reads
// audio frames from a source, encodes them for the transcription socket,
// manages the duplex connection lifecycle, and maintains live transcript
// state.
package capture

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of the capture pipeline.
type State int

const (
	// StateIdle - Pipeline created or torn down, no connection.
	StateIdle State = iota
	// StateConnecting - Dialing the transcription socket.
	StateConnecting
	// StateStreaming - Connected, audio frames flowing.
	StateStreaming
	// StateReconnecting - Unexpected disconnect, retrying the dial.
	StateReconnecting
	// StateFinalizing - Flush requested, waiting for trailing results.
	StateFinalizing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateStreaming:
		return "STREAMING"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFinalizing:
		return "FINALIZING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrNotIdle      = errors.New("pipeline already started")
	ErrNotStreaming = errors.New("pipeline is not streaming")
	ErrFinalizing   = errors.New("pipeline is finalizing")
)

// Lifecycle manages the capture pipeline state machine.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → CONNECTING → STREAMING → FINALIZING → IDLE
//	                       │    ↑
//	                       ↓    │
//	                    RECONNECTING
//
// Rules:
//   - Connect is valid only from IDLE.
//   - Reconnect is valid only from STREAMING; a finalizing pipeline
//     never reconnects.
//   - Finalize is valid only from STREAMING.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Connect transitions IDLE → CONNECTING.
func (l *Lifecycle) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return ErrNotIdle
	}
	l.state = StateConnecting
	return nil
}

// StreamOpen transitions CONNECTING or RECONNECTING → STREAMING.
func (l *Lifecycle) StreamOpen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateConnecting && l.state != StateReconnecting {
		return fmt.Errorf("cannot open stream from %s", l.state)
	}
	l.state = StateStreaming
	return nil
}

// Reconnect transitions STREAMING → RECONNECTING. A pipeline that is
// finalizing or already idle refuses to reconnect.
func (l *Lifecycle) Reconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateFinalizing {
		return ErrFinalizing
	}
	if l.state != StateStreaming {
		return ErrNotStreaming
	}
	l.state = StateReconnecting
	return nil
}

// Finalize transitions STREAMING → FINALIZING.
func (l *Lifecycle) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateStreaming {
		return ErrNotStreaming
	}
	l.state = StateFinalizing
	return nil
}

// Reset returns the pipeline to IDLE from any state. Idempotent.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateIdle
}
