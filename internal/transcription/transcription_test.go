package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/config"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/transcript"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3 fake audio"), 0o600))
	return path
}

func TestGatewayTranscribeJSONReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		file, header, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "call.mp3", header.Filename)
		assert.Equal(t, "ID3 fake audio", string(data))
		assert.Contains(t, r.FormValue("prompt"), "Agent: (M:SS)")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Agent: (0:01) hello"}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL+"/", time.Second, logger.Discard())
	text, err := g.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "Agent: (0:01) hello", text)
}

func TestGatewayTranscribeRawTextReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("\nStudent: (0:02) hi there\n"))
	}))
	defer srv.Close()

	text, err := NewGateway(srv.URL, time.Second, logger.Discard()).Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "Student: (0:02) hi there", text)
}

func TestGatewayRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"transcript":"Agent: (0:05) ok"}`))
	}))
	defer srv.Close()

	text, err := NewGateway(srv.URL, 5*time.Second, logger.Discard()).Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "Agent: (0:05) ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGatewayDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewGateway(srv.URL, 5*time.Second, logger.Discard()).Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGatewayReplyErrors(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"empty", "   "},
		{"error field", `{"error":"quota exceeded"}`},
		{"no text", `{"text":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGateway(srv.URL, time.Second, logger.Discard()).Transcribe(context.Background(), writeAudio(t))
			assert.Error(t, err)
		})
	}
}

func TestGatewayHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewGateway(srv.URL, 5*time.Second, logger.Discard()).Transcribe(ctx, writeAudio(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGatewayMissingFile(t *testing.T) {
	_, err := NewGateway("http://127.0.0.1:0", time.Second, logger.Discard()).
		Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMockTranscriptParses(t *testing.T) {
	text, err := (&MockTranscriber{}).Transcribe(context.Background(), "ignored")
	require.NoError(t, err)

	utts := transcript.Parse(text)
	require.Len(t, utts, len(mockCall))
	for i := range mockCall {
		assert.True(t, mockCall[i].Equal(utts[i]), "utterance %d", i)
	}
}

func TestMockTranscriberDelayHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&MockTranscriber{Delay: time.Minute}).Transcribe(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPicksBackend(t *testing.T) {
	log := logger.Discard()
	base := config.Config{TranscribeURL: "http://gw", LLMGatewayURL: "http://llm/v1", TranscribeModel: "whisper-1"}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		want    any
		wantErr bool
	}{
		{"gateway", func(c *config.Config) { c.TranscribeBackend = config.BackendGateway }, &GatewayTranscriber{}, false},
		{"openai", func(c *config.Config) { c.TranscribeBackend = config.BackendOpenAI }, &OpenAITranscriber{}, false},
		{"mock backend", func(c *config.Config) { c.TranscribeBackend = config.BackendMock }, &MockTranscriber{}, false},
		{"mock flag", func(c *config.Config) { c.TranscribeBackend = config.BackendOpenAI; c.UseMockTranscribe = true }, &MockTranscriber{}, false},
		{"unknown", func(c *config.Config) { c.TranscribeBackend = "fax" }, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			tr, err := New(cfg, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, tr)
		})
	}
}

func TestDecodeReplyFallsBackToRawText(t *testing.T) {
	text, err := decodeReply([]byte(`{not json} Agent: (0:01) hi`))
	require.NoError(t, err)
	assert.Equal(t, `{not json} Agent: (0:01) hi`, text)
}
