package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/satlabs/voice-tutor/internal/config"
	"github.com/satlabs/voice-tutor/internal/domain"
)

// AnthropicClient implements Generator against the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates a Generator backed by Anthropic. Extra request
// options are appended after the API key, mainly for tests.
func NewAnthropicClient(cfg config.LLMConfig, opts ...option.RequestOption) (*AnthropicClient, error) {
	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY must be set for the anthropic provider")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.AnthropicKey)}, opts...)
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// buildMessages replays history as role-tagged entries in original order and
// appends the new user message last.
func buildMessages(history []domain.Turn, userMessage string) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, turn := range history {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == domain.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))
}

// GenerateReply implements Generator. History is replayed in order, the new
// user message goes last.
func (c *AnthropicClient) GenerateReply(ctx context.Context, system, userMessage string, history []domain.Turn) (string, error) {
	messages := buildMessages(history, userMessage)

	res, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message create: %w", err)
	}

	var reply string
	for _, block := range res.Content {
		if block.Type == "text" {
			reply += block.Text
		}
	}
	if reply == "" {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return reply, nil
}
