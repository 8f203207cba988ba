package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("expected default port 3000, got %q", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected development env, got %q", cfg.Env)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment true by default")
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected anthropic provider, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("unexpected default model %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 500 {
		t.Errorf("expected 500 max tokens, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Avatar.PollAttempts != 30 || cfg.Avatar.PollInterval != time.Second {
		t.Errorf("unexpected poll defaults: %d x %v", cfg.Avatar.PollAttempts, cfg.Avatar.PollInterval)
	}
	if cfg.Session.Timeout != 30*time.Minute {
		t.Errorf("expected 30m session timeout, got %v", cfg.Session.Timeout)
	}
	if cfg.Session.CleanupInterval != 5*time.Minute {
		t.Errorf("expected 5m cleanup interval, got %v", cfg.Session.CleanupInterval)
	}
	if cfg.Agora.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %v", cfg.Agora.TokenTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("unexpected default origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("LLM_MAX_TOKENS", "1024")
	t.Setenv("SESSION_TIMEOUT", "10m")
	t.Setenv("AVATAR_POLL_INTERVAL", "250ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_TO_STDOUT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected gemini provider, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("expected 1024 max tokens, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Session.Timeout != 10*time.Minute {
		t.Errorf("expected 10m timeout, got %v", cfg.Session.Timeout)
	}
	if cfg.Avatar.PollInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms poll interval, got %v", cfg.Avatar.PollInterval)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != want[0] || cfg.AllowedOrigins[1] != want[1] {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Log.ToStdout {
		t.Error("expected stdout logging disabled")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gpt-next")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation failure for unknown provider")
	}
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "lots")
	t.Setenv("SESSION_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.MaxTokens != 500 {
		t.Errorf("malformed int should fall back to 500, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Session.Timeout != 30*time.Minute {
		t.Errorf("malformed duration should fall back to 30m, got %v", cfg.Session.Timeout)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Port: "3000",
			LLM:  LLMConfig{Provider: "anthropic", MaxTokens: 500},
			Avatar: AvatarConfig{
				PollAttempts: 30,
				PollInterval: time.Second,
			},
			Session: SessionConfig{
				Timeout:         30 * time.Minute,
				CleanupInterval: 5 * time.Minute,
			},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "oracle" }},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"zero poll attempts", func(c *Config) { c.Avatar.PollAttempts = 0 }},
		{"negative poll interval", func(c *Config) { c.Avatar.PollInterval = -time.Second }},
		{"zero session timeout", func(c *Config) { c.Session.Timeout = 0 }},
		{"zero cleanup interval", func(c *Config) { c.Session.CleanupInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}
