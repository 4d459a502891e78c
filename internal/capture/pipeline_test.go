package capture

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"interview-voice-service/internal/models"
)

// fakeSource replays a fixed set of frames, then reports io.EOF.
type fakeSource struct {
	mu     sync.Mutex
	frames [][]float32
	rate   int
	pos    int
}

func (f *fakeSource) ReadFrame(ctx context.Context) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.frames) {
		return nil, io.EOF
	}
	frame := f.frames[f.pos]
	f.pos++
	return frame, nil
}

func (f *fakeSource) SampleRate() int { return f.rate }

func makeFrames(n, samples int) [][]float32 {
	frames := make([][]float32, n)
	for i := range frames {
		frames[i] = make([]float32, samples)
		for j := range frames[i] {
			frames[i][j] = 0.1
		}
	}
	return frames
}

var upgrader = websocket.Upgrader{}

func sendJSON(conn *websocket.Conn, msg models.TranscriptMessage) {
	data, _ := json.Marshal(msg)
	conn.WriteMessage(websocket.TextMessage, data)
}

// transcriptionServer is a scripted duplex socket: it counts binary
// frames, replies with scripted transcripts, and honors finalize.
func transcriptionServer(t *testing.T, frameBytes *int64, conns *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(conns, 1)
		defer conn.Close()

		framesSeen := 0
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch msgType {
			case websocket.BinaryMessage:
				atomic.AddInt64(frameBytes, int64(len(data)))
				framesSeen++
				if framesSeen == 1 {
					sendJSON(conn, models.TranscriptMessage{Type: models.MessageTypeTranscript, Text: "I worked", IsFinal: false})
				}
				if framesSeen == 2 {
					sendJSON(conn, models.TranscriptMessage{Type: models.MessageTypeTranscript, Text: "I worked on payments.", IsFinal: true})
				}
			case websocket.TextMessage:
				if string(data) == models.FinalizeSentinel {
					sendJSON(conn, models.TranscriptMessage{Type: models.MessageTypeFlushDone})
					sendJSON(conn, models.TranscriptMessage{Type: models.MessageTypeDone})
				}
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitForDisplay(t *testing.T, tr *Transcript, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr.Display() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("transcript never reached %q, got %q", want, tr.Display())
}

func TestPipeline_StreamAndFinalize(t *testing.T) {
	var frameBytes int64
	var conns int32
	server := transcriptionServer(t, &frameBytes, &conns)
	defer server.Close()

	source := &fakeSource{frames: makeFrames(2, 480), rate: 48000}
	p := NewPipeline(Config{
		SocketURL:        wsURL(server),
		TargetSampleRate: 16000,
	}, source, zerolog.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if p.State() != StateStreaming {
		t.Fatalf("expected STREAMING, got %s", p.State())
	}
	if !p.Transcript().Connected() {
		t.Error("expected connected after start")
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	waitForDisplay(t, p.Transcript(), "I worked on payments.")

	text, err := p.Finalize(context.Background())
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if text != "I worked on payments." {
		t.Errorf("unexpected transcript %q", text)
	}
	if p.State() != StateIdle {
		t.Errorf("expected IDLE after finalize, got %s", p.State())
	}
	if p.Transcript().Connected() {
		t.Error("expected disconnected after finalize")
	}

	// 480 samples at 48k downsampled to 16k is 160 samples = 320 bytes per frame.
	if got := atomic.LoadInt64(&frameBytes); got != 2*320 {
		t.Errorf("expected 640 frame bytes on the wire, got %d", got)
	}
}

func TestPipeline_FinalizeIncludesPendingInterim(t *testing.T) {
	var frameBytes int64
	var conns int32
	server := transcriptionServer(t, &frameBytes, &conns)
	defer server.Close()

	source := &fakeSource{frames: makeFrames(1, 160), rate: 16000}
	p := NewPipeline(Config{
		SocketURL:        wsURL(server),
		TargetSampleRate: 16000,
	}, source, zerolog.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Only the interim arrived (one frame sent); finalize must not lose it.
	waitForDisplay(t, p.Transcript(), "I worked")

	text, err := p.Finalize(context.Background())
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if text != "I worked" {
		t.Errorf("pending interim lost on finalize: %q", text)
	}
}

func TestPipeline_ReconnectAfterDrop(t *testing.T) {
	var conns int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := atomic.AddInt32(&conns, 1)
		if n == 1 {
			// Kill the first connection without a close handshake.
			conn.UnderlyingConn().Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source := &fakeSource{frames: makeFrames(10, 160), rate: 16000}
	p := NewPipeline(Config{
		SocketURL:        wsURL(server),
		TargetSampleRate: 16000,
		MaxReconnects:    3,
		ReconnectDelay:   10 * time.Millisecond,
	}, source, zerolog.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run should survive one dropped connection: %v", err)
	}

	if got := atomic.LoadInt32(&conns); got != 2 {
		t.Errorf("expected exactly 2 connections, got %d", got)
	}
	if p.State() != StateStreaming {
		t.Errorf("expected STREAMING after reconnect, got %s", p.State())
	}
}

func TestPipeline_ReconnectExhaustionIsTerminal(t *testing.T) {
	// The server kills every connection after one frame; with the
	// listener closed no reconnect attempt can succeed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.ReadMessage()
		conn.UnderlyingConn().Close()
	}))

	source := &fakeSource{frames: makeFrames(10, 160), rate: 16000}
	p := NewPipeline(Config{
		SocketURL:        wsURL(server),
		TargetSampleRate: 16000,
		MaxReconnects:    2,
		ReconnectDelay:   10 * time.Millisecond,
	}, source, zerolog.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	server.Close()

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected terminal error after exhausting reconnect attempts")
	}
	if !strings.Contains(err.Error(), "reconnect attempts exhausted") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestPipeline_FinalizeGraceExpires(t *testing.T) {
	// Server accepts frames but never answers the finalize sentinel.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source := &fakeSource{frames: nil, rate: 16000}
	p := NewPipeline(Config{
		SocketURL:        wsURL(server),
		TargetSampleRate: 16000,
		FinalizeGrace:    50 * time.Millisecond,
	}, source, zerolog.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	start := time.Now()
	if _, err := p.Finalize(context.Background()); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("finalize did not respect the grace bound: %v", elapsed)
	}
	if p.State() != StateIdle {
		t.Errorf("expected IDLE after finalize, got %s", p.State())
	}
}

func TestPipeline_StartTwiceFails(t *testing.T) {
	var frameBytes int64
	var conns int32
	server := transcriptionServer(t, &frameBytes, &conns)
	defer server.Close()

	source := &fakeSource{frames: nil, rate: 16000}
	p := NewPipeline(Config{SocketURL: wsURL(server), TargetSampleRate: 16000}, source, zerolog.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Error("second start must fail")
	}
	p.Close()
}
