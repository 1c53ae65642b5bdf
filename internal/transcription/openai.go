package transcription

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAITranscriber uses an OpenAI-compatible audio transcription endpoint.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAITranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAITranscriber{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Prompt:   BuildTranscriptionPrompt(),
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.Text, nil
}
