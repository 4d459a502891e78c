package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"interview-voice-service/internal/conversation"
)

const systemInstruction = `You are an experienced technical interviewer conducting a spoken mock interview.
Ask one question at a time and follow up on the candidate's answers.
Keep responses short and conversational - they will be read aloud.
Do not use markdown, bullet points, or code blocks; speak in plain sentences.`

// GeminiClient implements TokenStreamer against the Gemini streaming API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed token streamer.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

// StreamGenerate opens a streaming generation. Malformed history turns
// are filtered and the history is truncated to the most recent window
// before being sent.
func (g *GeminiClient) StreamGenerate(ctx context.Context, p Prompt) (TokenStream, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.7)
	model.SystemInstruction = genai.NewUserContent(genai.Text(
		systemInstruction + "\n\nInterview question under discussion: " + p.Question))

	chat := model.StartChat()
	history := conversation.Window(conversation.Sanitize(p.History))
	for _, turn := range history {
		role := "user"
		if turn.Role == conversation.RoleInterviewer {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	iter := chat.SendMessageStream(ctx, genai.Text(p.UserMessage))
	return &geminiStream{iter: iter}, nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
	buf  []string
}

func (s *geminiStream) Recv() (string, error) {
	for len(s.buf) == 0 {
		resp, err := s.iter.Next()
		if err == iterator.Done {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("generation stream failed: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if txt, ok := part.(genai.Text); ok && txt != "" {
					s.buf = append(s.buf, string(txt))
				}
			}
		}
	}
	chunk := s.buf[0]
	s.buf = s.buf[1:]
	return chunk, nil
}

func (s *geminiStream) Close() {}
