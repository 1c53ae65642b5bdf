// Package transcription turns an uploaded call recording into the raw,
// speaker-labeled transcript text returned by the model service.
package transcription

import (
	"context"
	"fmt"

	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
)

// Transcriber sends one staged audio file to a transcription backend. The
// returned text is unparsed model output.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// New picks the backend named by cfg.TranscribeBackend. USE_MOCK_TRANSCRIBE
// forces the mock regardless of the backend.
func New(cfg config.Config, log *logger.Logger) (Transcriber, error) {
	if cfg.MockTranscribe() {
		log.Component("transcription").Warn("using mock transcriber")
		return &MockTranscriber{}, nil
	}
	switch cfg.TranscribeBackend {
	case config.BackendGateway:
		return NewGateway(cfg.TranscribeURL, cfg.MaxRetryTime, log), nil
	case config.BackendOpenAI:
		return NewOpenAI(cfg.LLMAPIKey, cfg.LLMGatewayURL, cfg.TranscribeModel), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.TranscribeBackend)
	}
}

// BuildTranscriptionPrompt is the formatting instruction sent with the audio.
func BuildTranscriptionPrompt() string {
	return `Transcribe this customer support call between a support Agent and a Student.
Write one turn per line, in conversation order, exactly in this format:
Agent: (M:SS) <what the agent said>
Student: (M:SS) <what the student said>
The time in brackets is when the turn starts, measured from the beginning of the recording.
Keep the original language of the speakers. Do not translate, summarize or add commentary.
Use only the labels "Agent" and "Student".`
}
