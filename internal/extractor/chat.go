package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"call-insights-go/internal/logger"
)

var ErrEmptyAnalysis = errors.New("model returned an empty analysis")

// ChatAnalyzer calls an OpenAI-compatible chat completion endpoint (the LLM
// gateway). Server errors and empty answers are retried until maxRetry
// elapses; 4xx replies are not.
type ChatAnalyzer struct {
	client   *openai.Client
	model    string
	maxRetry time.Duration
	log      *logrus.Entry
}

func NewChatAnalyzer(baseURL, apiKey, model string, maxRetry time.Duration, log *logger.Logger) *ChatAnalyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &ChatAnalyzer{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		maxRetry: maxRetry,
		log:      log.Component("extractor").WithField("model", model),
	}
}

func (a *ChatAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildAnalysisPrompt(transcript)},
		},
	}

	var (
		content string
		attempt int
	)
	op := func() error {
		attempt++
		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if isClientError(err) {
				return backoff.Permanent(err)
			}
			a.log.WithError(err).WithField("attempt", attempt).Warn("llm request failed")
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			a.log.WithField("attempt", attempt).Warn("llm returned no content")
			return ErrEmptyAnalysis
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = a.maxRetry
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("llm analysis failed: %w", err)
	}
	a.log.WithFields(logrus.Fields{"attempts": attempt, "chars": len(content)}).Debug("analysis received")
	return content, nil
}

func isClientError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= http.StatusBadRequest && apiErr.HTTPStatusCode < http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= http.StatusBadRequest && reqErr.HTTPStatusCode < http.StatusInternalServerError
	}
	return false
}
