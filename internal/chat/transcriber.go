package chat

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// DefaultTranscriptionModel is the speech-to-text model.
const DefaultTranscriptionModel = "whisper-large-v3"

// Transcriber converts recorded speech into text.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewTranscriber returns a Transcriber for an OpenAI-compatible audio API.
func NewTranscriber(baseURL, apiKey, model, language string) *Transcriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL
	if model == "" {
		model = DefaultTranscriptionModel
	}
	if language == "" {
		language = "en"
	}
	return &Transcriber{client: openai.NewClientWithConfig(cfg), model: model, language: language}
}

// Transcribe sends audio and returns the recognized text. filename is used only
// to tell the service the audio format.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       t.model,
		FilePath:    filename,
		Reader:      audio,
		Temperature: 0,
		Language:    t.language,
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return resp.Text, nil
}
