package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	BackendGateway = "gateway"
	BackendOpenAI  = "openai"
	BackendMock    = "mock"
)

type Config struct {
	Environment     string `mapstructure:"ENVIRONMENT"`
	Port            string `mapstructure:"PORT" validate:"required,numeric"`
	LogLevel        string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	CORSAllowed     string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MaxUploadSizeMB int64  `mapstructure:"MAX_UPLOAD_MB" validate:"gt=0,lte=512"`
	UploadDir       string `mapstructure:"UPLOAD_DIR"`

	TranscribeBackend string        `mapstructure:"TRANSCRIBE_BACKEND" validate:"oneof=gateway openai mock"`
	TranscribeURL     string        `mapstructure:"TRANSCRIBE_URL" validate:"omitempty,url"`
	TranscribeModel   string        `mapstructure:"TRANSCRIBE_MODEL"`
	TranscribeTimeout time.Duration `mapstructure:"TRANSCRIBE_TIMEOUT" validate:"gt=0"`

	LLMGatewayURL  string        `mapstructure:"LLM_GATEWAY_URL" validate:"omitempty,url"`
	LLMAPIKey      string        `mapstructure:"LLM_API_KEY"`
	LLMModel       string        `mapstructure:"LLM_MODEL" validate:"required"`
	AnalyzeTimeout time.Duration `mapstructure:"ANALYZE_TIMEOUT" validate:"gt=0"`
	MaxRetryTime   time.Duration `mapstructure:"MAX_RETRY_TIME" validate:"gte=0"`

	UseMockTranscribe bool `mapstructure:"USE_MOCK_TRANSCRIBE"`
	UseMockLLM        bool `mapstructure:"USE_MOCK_LLM"`
}

var keys = []string{
	"ENVIRONMENT", "PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "MAX_UPLOAD_MB", "UPLOAD_DIR",
	"TRANSCRIBE_BACKEND", "TRANSCRIBE_URL", "TRANSCRIBE_MODEL", "TRANSCRIBE_TIMEOUT",
	"LLM_GATEWAY_URL", "LLM_API_KEY", "LLM_MODEL", "ANALYZE_TIMEOUT", "MAX_RETRY_TIME",
	"USE_MOCK_TRANSCRIBE", "USE_MOCK_LLM",
}

// Load reads the configuration from the environment. A .env file, if any,
// is expected to be loaded by the caller beforehand.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("ENVIRONMENT", "local")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 25)
	v.SetDefault("UPLOAD_DIR", "")
	v.SetDefault("TRANSCRIBE_BACKEND", BackendGateway)
	v.SetDefault("TRANSCRIBE_URL", "http://localhost:8000")
	v.SetDefault("TRANSCRIBE_MODEL", "whisper-1")
	v.SetDefault("TRANSCRIBE_TIMEOUT", "120s")
	// empty keeps the go-openai default base URL
	v.SetDefault("LLM_GATEWAY_URL", "")
	v.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	v.SetDefault("ANALYZE_TIMEOUT", "60s")
	v.SetDefault("MAX_RETRY_TIME", "20s")
	v.SetDefault("USE_MOCK_TRANSCRIBE", false)
	v.SetDefault("USE_MOCK_LLM", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.TranscribeBackend = strings.ToLower(strings.TrimSpace(cfg.TranscribeBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsLocal reports whether logs should be human-readable.
func (c Config) IsLocal() bool {
	return c.Environment == "" || c.Environment == "local"
}

// MockTranscribe is true when no real transcription backend should be called.
func (c Config) MockTranscribe() bool {
	return c.UseMockTranscribe || c.TranscribeBackend == BackendMock
}
