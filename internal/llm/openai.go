package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful AI assistant."

// OpenAIRunner uses the chat completions API. Any OpenAI-compatible server
// (llama.cpp server, vLLM, Ollama) works through OPENAI_BASE_URL.
type OpenAIRunner struct {
	client *openai.Client
	model  string
}

// NewOpenAIRunner creates the runner. baseURL may be empty for api.openai.com.
func NewOpenAIRunner(apiKey, baseURL, model string) *OpenAIRunner {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIRunner{client: openai.NewClientWithConfig(cfg), model: model}
}

func (r *OpenAIRunner) Name() string { return "openai" }

func (r *OpenAIRunner) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
