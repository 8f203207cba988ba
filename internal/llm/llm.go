// Package llm provides generation-provider adapters. Each upstream provider
// gets one concrete client behind the same call shape; the provider is
// selected once at construction from configuration.
package llm

import (
	"context"
	"fmt"

	"github.com/satlabs/voice-tutor/internal/config"
	"github.com/satlabs/voice-tutor/internal/domain"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Generator turns (system instruction, prior history, new user message) into
// one assistant reply. History is replayed as alternating role-tagged entries
// in original order, followed by the new user message as the final entry.
// Implementations do not retry and do not cache; retry policy belongs to the
// caller.
type Generator interface {
	GenerateReply(ctx context.Context, system, userMessage string, history []domain.Turn) (string, error)
}

// New constructs the Generator named by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
