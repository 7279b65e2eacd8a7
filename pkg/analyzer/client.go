package analyzer

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the subset of the OpenAI client used for analysis. Any
// OpenAI-compatible backend, or a stub in tests, can satisfy it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient creates a chat client for apiKey. An empty baseURL keeps the
// public OpenAI endpoint.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
