// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	DBPath         string

	Agora   AgoraConfig
	LLM     LLMConfig
	TTS     TTSConfig
	Avatar  AvatarConfig
	Session SessionConfig
	Log     LogConfig
}

// AgoraConfig holds RTC token issuing credentials.
type AgoraConfig struct {
	AppID          string
	AppCertificate string
	TokenTTL       time.Duration
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider     string // "anthropic" or "gemini"
	Model        string
	MaxTokens    int
	AnthropicKey string
	GeminiKey    string
}

// TTSConfig configures the ElevenLabs speech synthesis client.
type TTSConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
	BaseURL string
}

// AvatarConfig configures the D-ID talking-avatar client.
type AvatarConfig struct {
	APIKey       string
	BaseURL      string
	SourceURL    string
	TTSProvider  string
	VoiceID      string
	PollAttempts int
	PollInterval time.Duration
}

// SessionConfig controls conversation session retention.
type SessionConfig struct {
	Timeout         time.Duration
	CleanupInterval time.Duration
}

// LogConfig controls structured log output.
type LogConfig struct {
	Dir      string
	ToStdout bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("APP_ENV", "development"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
		DBPath:         getEnv("DB_PATH", "./data/tutor.db"),
		Agora: AgoraConfig{
			AppID:          getEnv("AGORA_APP_ID", ""),
			AppCertificate: getEnv("AGORA_APP_CERTIFICATE", ""),
			TokenTTL:       getEnvDuration("AGORA_TOKEN_TTL", 24*time.Hour),
		},
		LLM: LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "anthropic"),
			Model:        getEnv("LLM_MODEL", "claude-3-5-sonnet-20241022"),
			MaxTokens:    getEnvInt("LLM_MAX_TOKENS", 500),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			GeminiKey:    getEnv("GEMINI_API_KEY", ""),
		},
		TTS: TTSConfig{
			APIKey:  getEnv("ELEVENLABS_API_KEY", ""),
			VoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
			ModelID: getEnv("ELEVENLABS_MODEL_ID", "eleven_monolingual_v1"),
			BaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		},
		Avatar: AvatarConfig{
			APIKey:       getEnv("D_ID_API_KEY", ""),
			BaseURL:      getEnv("D_ID_BASE_URL", "https://api.d-id.com"),
			SourceURL:    getEnv("D_ID_SOURCE_URL", "https://create-images-results.d-id.com/default-presenter.jpg"),
			TTSProvider:  getEnv("D_ID_TTS_PROVIDER", "microsoft"),
			VoiceID:      getEnv("D_ID_VOICE_ID", "en-US-JennyNeural"),
			PollAttempts: getEnvInt("AVATAR_POLL_ATTEMPTS", 30),
			PollInterval: getEnvDuration("AVATAR_POLL_INTERVAL", time.Second),
		},
		Session: SessionConfig{
			Timeout:         getEnvDuration("SESSION_TIMEOUT", 30*time.Minute),
			CleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Log: LogConfig{
			Dir:      getEnv("LOG_DIR", "./logs"),
			ToStdout: getEnvBool("LOG_TO_STDOUT", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are coherent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.LLM.Provider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("LLM_PROVIDER must be \"anthropic\" or \"gemini\", got %q", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be > 0")
	}
	if c.Avatar.PollAttempts <= 0 {
		return fmt.Errorf("AVATAR_POLL_ATTEMPTS must be > 0")
	}
	if c.Avatar.PollInterval <= 0 {
		return fmt.Errorf("AVATAR_POLL_INTERVAL must be > 0")
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be > 0")
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
