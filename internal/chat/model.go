package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is the chat model used for answers.
	DefaultModel = "llama-3.3-70b-versatile"
	// DefaultTemperature keeps answers close to the context.
	DefaultTemperature = 0.2
)

// Model streams a completion for a conversation.
type Model interface {
	Stream(ctx context.Context, messages []models.ChatMessage) (TokenStream, error)
}

// TokenStream yields text deltas until io.EOF.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// OpenAIModel talks to any OpenAI-compatible chat completions API.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIModel returns a Model for baseURL (DefaultBaseURL if empty).
func NewOpenAIModel(baseURL, apiKey, model string, temperature float32) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(cfg), model: model, temperature: temperature}
}

// Stream opens a streamed completion for messages.
func (m *OpenAIModel) Stream(ctx context.Context, messages []models.ChatMessage) (TokenStream, error) {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	stream, err := m.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    msgs,
		Temperature: m.temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next content delta, or io.EOF when the answer is done.
func (s *openAIStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("chat stream: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
