package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendGateway, cfg.TranscribeBackend)
	assert.Equal(t, int64(25), cfg.MaxUploadSizeMB)
	assert.Equal(t, 120*time.Second, cfg.TranscribeTimeout)
	assert.Equal(t, 60*time.Second, cfg.AnalyzeTimeout)
	assert.Empty(t, cfg.LLMGatewayURL, "analysis must not default to this server's own port")
	assert.True(t, cfg.IsLocal())
	assert.False(t, cfg.MockTranscribe())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TRANSCRIBE_BACKEND", "Mock")
	t.Setenv("ANALYZE_TIMEOUT", "5s")
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendMock, cfg.TranscribeBackend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.AnalyzeTimeout)
	assert.True(t, cfg.UseMockLLM)
	assert.True(t, cfg.MockTranscribe())
	assert.False(t, cfg.IsLocal())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"backend", "TRANSCRIBE_BACKEND", "carrier-pigeon"},
		{"port", "PORT", "http"},
		{"upload size", "MAX_UPLOAD_MB", "0"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"gateway url", "LLM_GATEWAY_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
