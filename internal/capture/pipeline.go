package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"interview-voice-service/internal/audio"
	"interview-voice-service/internal/models"
)

// FrameSamples is the capture buffer size requested from the audio
// source, in samples at the device's native rate.
const FrameSamples = 4096

// Connection lifecycle defaults.
const (
	DefaultMaxReconnects  = 5
	DefaultReconnectDelay = time.Second
	DefaultFinalizeGrace  = 3 * time.Second
)

// AudioFrameSource delivers raw floating-point audio frames at the
// device's native sample rate. ReadFrame returns io.EOF when capture
// ends. Abstracting the capture mechanism keeps the resample/encode
// path testable with synthetic buffers.
type AudioFrameSource interface {
	ReadFrame(ctx context.Context) ([]float32, error)
	SampleRate() int
}

// Config holds capture pipeline configuration.
type Config struct {
	SocketURL        string
	TargetSampleRate int
	MaxReconnects    int
	ReconnectDelay   time.Duration
	FinalizeGrace    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxReconnects == 0 {
		c.MaxReconnects = DefaultMaxReconnects
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.FinalizeGrace == 0 {
		c.FinalizeGrace = DefaultFinalizeGrace
	}
	return c
}

// Pipeline streams captured audio to the duplex transcription socket
// and maintains the live transcript. One frame in flight at a time; no
// additional buffering, to bound latency.
type Pipeline struct {
	cfg        Config
	source     AudioFrameSource
	transcript *Transcript
	lifecycle  *Lifecycle
	logger     zerolog.Logger
	dialer     *websocket.Dialer

	connMu sync.Mutex
	conn   *websocket.Conn

	// done is closed when the server signals the session has settled;
	// Finalize waits on it up to the grace period.
	done     chan struct{}
	doneOnce sync.Once

	errMu     sync.Mutex
	remoteErr error
}

// NewPipeline creates a capture pipeline. Start must be called before Run.
func NewPipeline(cfg Config, source AudioFrameSource, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg.withDefaults(),
		source:     source,
		transcript: NewTranscript(),
		lifecycle:  NewLifecycle(),
		logger:     logger,
		dialer:     websocket.DefaultDialer,
		done:       make(chan struct{}),
	}
}

// Transcript returns the live transcript state.
func (p *Pipeline) Transcript() *Transcript {
	return p.transcript
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return p.lifecycle.State()
}

// Start dials the transcription socket and begins receiving results.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.lifecycle.Connect(); err != nil {
		return err
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.lifecycle.Reset()
		return fmt.Errorf("failed to connect transcription socket: %w", err)
	}

	p.setConn(conn)
	if err := p.lifecycle.StreamOpen(); err != nil {
		return err
	}
	p.transcript.SetConnected(true)
	go p.readLoop(conn)

	p.logger.Info().Str("url", p.cfg.SocketURL).Msg("Transcription socket connected")
	return nil
}

// Run reads frames from the source until it is exhausted, encoding and
// sending each one immediately. Unexpected disconnects while streaming
// trigger bounded reconnection; exhausting the bound is a terminal error.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		frame, err := p.source.ReadFrame(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("audio capture failed: %w", err)
		}

		data := audio.EncodeFrame(frame, p.source.SampleRate(), p.cfg.TargetSampleRate)
		if err := p.sendFrame(ctx, data); err != nil {
			return err
		}
	}
}

// Finalize requests a flush of buffered recognition, waits a bounded
// grace period for trailing results, closes the connection with a
// normal close code, and returns the full accumulated transcript
// including any still-pending interim text.
func (p *Pipeline) Finalize(ctx context.Context) (string, error) {
	if err := p.lifecycle.Finalize(); err != nil {
		return p.transcript.FlushInterim(), err
	}

	if err := p.write(websocket.TextMessage, []byte(models.FinalizeSentinel)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to send finalize control frame")
	} else {
		select {
		case <-p.done:
		case <-time.After(p.cfg.FinalizeGrace):
			p.logger.Warn().Dur("grace", p.cfg.FinalizeGrace).Msg("Finalize grace expired before done arrived")
		case <-ctx.Done():
		}
	}

	p.closeConn(websocket.CloseNormalClosure)
	p.lifecycle.Reset()

	transcript := p.transcript.FlushInterim()

	p.errMu.Lock()
	remoteErr := p.remoteErr
	p.errMu.Unlock()
	return transcript, remoteErr
}

// Close tears the connection down without flushing. Idempotent.
func (p *Pipeline) Close() error {
	p.closeConn(websocket.CloseGoingAway)
	p.lifecycle.Reset()
	return nil
}

func (p *Pipeline) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := p.dialer.DialContext(ctx, p.cfg.SocketURL, nil)
	return conn, err
}

func (p *Pipeline) setConn(conn *websocket.Conn) {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	p.conn = conn
}

func (p *Pipeline) write(messageType int, data []byte) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.conn == nil {
		return errors.New("not connected")
	}
	return p.conn.WriteMessage(messageType, data)
}

func (p *Pipeline) closeConn(closeCode int) {
	p.connMu.Lock()
	conn := p.conn
	p.conn = nil
	p.connMu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(closeCode, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
	}
	p.transcript.SetConnected(false)
}

// sendFrame writes one binary frame, reconnecting on failure.
func (p *Pipeline) sendFrame(ctx context.Context, data []byte) error {
	if err := p.write(websocket.BinaryMessage, data); err == nil {
		return nil
	}
	return p.reconnectAndResend(ctx, data)
}

// reconnectAndResend retries the dial up to the configured bound with a
// fixed delay between attempts, then resends the in-flight frame.
func (p *Pipeline) reconnectAndResend(ctx context.Context, data []byte) error {
	if err := p.lifecycle.Reconnect(); err != nil {
		// Finalizing or already torn down: drop the frame quietly.
		return nil
	}
	p.transcript.SetConnected(false)
	p.closeCurrentConn()

	for attempt := 1; attempt <= p.cfg.MaxReconnects; attempt++ {
		select {
		case <-time.After(p.cfg.ReconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}

		conn, err := p.dial(ctx)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("maxAttempts", p.cfg.MaxReconnects).
				Msg("Reconnect attempt failed")
			continue
		}

		p.setConn(conn)
		if err := p.lifecycle.StreamOpen(); err != nil {
			return err
		}
		p.transcript.SetConnected(true)
		go p.readLoop(conn)
		p.logger.Info().Int("attempt", attempt).Msg("Transcription socket reconnected")

		return p.write(websocket.BinaryMessage, data)
	}

	return fmt.Errorf("transcription socket lost: %d reconnect attempts exhausted", p.cfg.MaxReconnects)
}

func (p *Pipeline) closeCurrentConn() {
	p.connMu.Lock()
	conn := p.conn
	p.conn = nil
	p.connMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// readLoop receives transcription messages for one connection. It exits
// when the connection closes; reconnection spawns a fresh loop.
func (p *Pipeline) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Debug().Err(err).Msg("Transcription socket read ended")
			}
			p.transcript.SetConnected(false)
			return
		}

		var msg models.TranscriptMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			p.logger.Warn().Err(err).Msg("Malformed transcription message")
			continue
		}

		switch msg.Type {
		case models.MessageTypeTranscript:
			if msg.IsFinal {
				p.transcript.AppendFinal(msg.Text)
			} else {
				p.transcript.SetInterim(msg.Text)
			}
		case models.MessageTypeFlushDone:
			// The done message right behind it is what Finalize waits on.
			p.logger.Debug().Msg("Flush acknowledged")
		case models.MessageTypeDone:
			p.doneOnce.Do(func() { close(p.done) })
		case models.MessageTypeError:
			p.errMu.Lock()
			p.remoteErr = fmt.Errorf("transcription failed: %s", msg.Error)
			p.errMu.Unlock()
			p.logger.Error().Str("error", msg.Error).Msg("Transcription socket reported error")
		default:
			p.logger.Warn().Str("type", msg.Type).Msg("Unknown transcription message type")
		}
	}
}
