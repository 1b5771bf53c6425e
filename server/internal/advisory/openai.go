package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const systemPersona = "You are a safety expert for a pedestrian navigation app."

// OpenAIProvider calls an OpenAI-compatible chat completion endpoint. With
// the default base URL this is Gemini's OpenAI compatibility layer.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider for the given key, API root and model.
// An empty baseURL keeps the go-openai default.
func NewOpenAIProvider(apiKey, baseURL, model string, timeout time.Duration) *OpenAIProvider {
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	cc.HTTPClient = &http.Client{Timeout: timeout}
	slog.Info("advisory: initializing provider", "base_url", cc.BaseURL, "model", model)
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cc),
		model:  model,
	}
}

// Generate implements Provider.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	slog.Debug("advisory: generating text", "model", o.model)
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPersona},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.4,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
