package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/analysis"
	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func newGateway(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestChatAnalyzerReturnsContent(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "test-model", req.Model)
		if !assert.Len(t, req.Messages, 1) {
			return
		}
		assert.Contains(t, req.Messages[0].Content, "Agent: (0:01) hello")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion("Call Duration: 2 min"))
	})

	a := NewChatAnalyzer(srv.URL+"/v1/", "secret", "test-model", time.Second, logger.Discard())
	out, err := a.Analyze(context.Background(), "Agent: (0:01) hello")
	require.NoError(t, err)
	assert.Equal(t, "Call Duration: 2 min", out)
}

func TestChatAnalyzerRetriesServerErrorsAndEmptyAnswers(t *testing.T) {
	var calls int32
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
		case 2:
			fmt.Fprint(w, completion("  "))
		default:
			fmt.Fprint(w, completion("Hold Time: none"))
		}
	})

	a := NewChatAnalyzer(srv.URL+"/v1", "k", "m", 10*time.Second, logger.Discard())
	out, err := a.Analyze(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "Hold Time: none", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestChatAnalyzerDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	a := NewChatAnalyzer(srv.URL+"/v1", "k", "m", 10*time.Second, logger.Discard())
	_, err := a.Analyze(context.Background(), "t")
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChatAnalyzerHonorsDeadline(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewChatAnalyzer(srv.URL+"/v1", "k", "m", 5*time.Second, logger.Discard()).Analyze(ctx, "t")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockAnalysisParsesCompletely(t *testing.T) {
	out, err := MockAnalyzer{}.Analyze(context.Background(), "")
	require.NoError(t, err)

	res := analysis.Parse(out)
	assert.Equal(t, analysis.StrategyFencedJSON, res.Strategy)
	assert.Equal(t, analysis.StatusComplete, res.Status)
	assert.Equal(t, len(types.KnownMetrics)-1, res.Metrics.Len())
	assert.Contains(t, res.Summary, "new device")
}

func TestBuildAnalysisPromptListsKnownMetrics(t *testing.T) {
	p := BuildAnalysisPrompt("Student: (0:02) hi")
	for _, m := range types.KnownMetrics {
		assert.Contains(t, p, "- "+m+"\n")
	}
	assert.Contains(t, p, "Student: (0:02) hi")
}

func TestNewHonorsMockFlag(t *testing.T) {
	a := New(config.Config{UseMockLLM: true}, logger.Discard())
	assert.IsType(t, &MockAnalyzer{}, a)

	a = New(config.Config{LLMGatewayURL: "http://llm/v1", LLMModel: "m"}, logger.Discard())
	assert.IsType(t, &ChatAnalyzer{}, a)
}
