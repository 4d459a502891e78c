package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"interview-voice-service/internal/audio"
	"interview-voice-service/internal/capture"
	"interview-voice-service/internal/models"
)

// wavSource streams a PCM WAV file as float frames, paced to real time
// so the server sees microphone-like timing.
type wavSource struct {
	file       *os.File
	sampleRate int
	frameSize  int
	realtime   bool
}

func openWAV(path string) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, audio.WAVHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	info, err := audio.ParseWAVHeader(header)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		info.Format, info.Channels, info.SampleRate, info.BitsPerSample)

	if !info.PCM16Mono() {
		f.Close()
		return nil, fmt.Errorf("only 16-bit mono PCM supported")
	}

	return &wavSource{
		file:       f,
		sampleRate: info.SampleRate,
		frameSize:  capture.FrameSamples,
		realtime:   true,
	}, nil
}

func (w *wavSource) ReadFrame(ctx context.Context) ([]float32, error) {
	buf := make([]byte, w.frameSize*2)
	n, err := w.file.Read(buf)
	if n == 0 {
		if err == io.EOF || err == nil {
			return nil, io.EOF
		}
		return nil, err
	}

	if w.realtime {
		frameDuration := time.Duration(n/2) * time.Second / time.Duration(w.sampleRate)
		select {
		case <-time.After(frameDuration):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return audio.PCM16ToFloat(audio.BytesToPCM16(buf[:n])), nil
}

func (w *wavSource) SampleRate() int { return w.sampleRate }

func (w *wavSource) Close() error { return w.file.Close() }

// fetchSession asks the server where the transcription socket lives.
func fetchSession(serverURL string) (*models.SessionDescriptor, error) {
	resp, err := http.Get(serverURL + "/v1/transcribe/session")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session endpoint returned %d", resp.StatusCode)
	}

	var desc models.SessionDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

func main() {
	audioFile := flag.String("audio", "../../testdata/sample-16khz.wav", "Path to WAV file (16-bit mono PCM)")
	serverURL := flag.String("server", "http://localhost:8080", "Service base URL")
	flag.Parse()

	desc, err := fetchSession(*serverURL)
	if err != nil {
		log.Fatalf("Failed to fetch session: %v", err)
	}
	log.Printf("Session: url=%s sampleRate=%d encoding=%s", desc.SocketURL, desc.SampleRate, desc.Encoding)

	source, err := openWAV(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer source.Close()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	pipeline := capture.NewPipeline(capture.Config{
		SocketURL:        desc.SocketURL,
		TargetSampleRate: desc.SampleRate,
	}, source, logger)

	ctx := context.Background()
	if err := pipeline.Start(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	log.Printf("Streaming audio to %s", desc.SocketURL)

	// Print transcript updates while streaming.
	stop := make(chan struct{})
	go func() {
		last := ""
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if current := pipeline.Transcript().Display(); current != last {
					last = current
					log.Printf("Transcript: %s", current)
				}
			case <-stop:
				return
			}
		}
	}()

	start := time.Now()
	if err := pipeline.Run(ctx); err != nil {
		log.Fatalf("Capture failed: %v", err)
	}
	close(stop)

	transcript, err := pipeline.Finalize(ctx)
	if err != nil {
		log.Fatalf("Finalize failed: %v", err)
	}

	log.Printf("Finished in %v", time.Since(start).Round(time.Millisecond))
	fmt.Println(transcript)
}
