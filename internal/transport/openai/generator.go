package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// Generator produces free text via the chat completions API. Used as the
// moderation scorer's primary path.
type Generator struct {
	client *openai.Client
	model  string
}

// GeneratorConfig holds the text-generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Generate implements domain.Generator. Temperature is pinned to 0 so the
// moderation verdict is as stable as the model allows.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", parseGenerateError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrProviderUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func parseGenerateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrProviderUnavailable)
	}
	return fmt.Errorf("completion request failed: %w", domain.ErrProviderUnavailable)
}
