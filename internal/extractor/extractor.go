// Package extractor asks the model service for a call summary and quality
// metrics. It returns the model's raw answer; normalizing it is the job of
// the analysis package.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

func New(cfg config.Config, log *logger.Logger) Analyzer {
	if cfg.UseMockLLM {
		log.Component("extractor").Warn("mock LLM mode on")
		return &MockAnalyzer{}
	}
	return NewChatAnalyzer(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.MaxRetryTime, log)
}

// BuildAnalysisPrompt asks for a summary plus every known metric, as a
// numbered two-part answer with the metrics in a json block.
func BuildAnalysisPrompt(transcript string) string {
	var params strings.Builder
	for _, m := range types.KnownMetrics {
		fmt.Fprintf(&params, "- %s\n", m)
	}

	return fmt.Sprintf(`You are a call quality analyst for a student support desk.
Read the transcript of a call between a support Agent and a Student and answer in two parts:

1. Call Summary: two or three sentences describing why the student called and how it ended.
2. Call Quality Metrics: a json code block with one key per parameter below and a short string value.
Use "Not specified" when the transcript does not say. Do not invent numbers.

Parameters:
%s
Return the summary inside the json block as well, under the key "summary".

TRANSCRIPT:
%s
`, params.String(), transcript)
}
