// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"interview-voice-service/internal/service/stt"
)

// Config holds recognition settings for a session.
type Config struct {
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

// DefaultConfig returns the settings used by the transcription bridge:
// 16kHz LINEAR16 mono with interim results.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
	}
}

// parseAudioEncoding maps a config string onto the proto enum,
// falling back to LINEAR16.
func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	client *speech.Client
	cfg    Config

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	closed bool
}

// New creates a Google STT adapter. Requires the
// GOOGLE_APPLICATION_CREDENTIALS environment variable.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = DefaultConfig().SampleRateHz
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultConfig().LanguageCode
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start opens a streaming recognition session, sends the initial config
// and launches the receive loop.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.stream = stream
	a.mu.Unlock()

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        parseAudioEncoding(a.cfg.AudioEncoding),
					SampleRateHertz: int32(a.cfg.SampleRateHz),
					LanguageCode:    a.cfg.LanguageCode,
				},
				InterimResults: a.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return err
	}

	go a.listen(stream, cb)
	return nil
}

// SendAudio sends one PCM frame to the recognizer.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Flush half-closes the send side; Google finalizes buffered audio and
// delivers trailing results before ending the stream.
func (a *Adapter) Flush() error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.CloseSend()
}

// Close flushes and releases the client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	stream := a.stream
	a.mu.Unlock()

	if stream != nil {
		_ = stream.CloseSend()
	}
	return a.client.Close()
}

// listen receives recognition responses until the stream ends.
func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient, cb stt.Callback) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			cb.OnDone()
			return
		}
		if err != nil {
			if status.Code(err) == codes.Canceled {
				cb.OnDone()
				return
			}
			cb.OnError(err)
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			if r.IsFinal {
				cb.OnFinal(alt.Transcript, float64(alt.Confidence))
			} else {
				cb.OnPartial(alt.Transcript)
			}
		}
	}
}
