package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiRunner calls the Gemini API, rotating through API keys on rate limits.
type GeminiRunner struct {
	apiKeys []string
	model   string

	mu         sync.Mutex
	currentKey int

	generate func(ctx context.Context, key, prompt string) (string, error)
}

// NewGeminiRunner creates a runner over one or more API keys.
func NewGeminiRunner(apiKeys []string, model string) *GeminiRunner {
	r := &GeminiRunner{apiKeys: apiKeys, model: model}
	r.generate = r.callGemini
	return r
}

func (r *GeminiRunner) Name() string { return "gemini" }

// Generate tries each key at most once, moving on when a key is rate limited.
func (r *GeminiRunner) Generate(ctx context.Context, prompt string) (string, error) {
	if len(r.apiKeys) == 0 {
		return "", fmt.Errorf("gemini: no API keys configured")
	}

	var lastErr error
	for range len(r.apiKeys) {
		idx, key := r.key()
		text, err := r.generate(ctx, key, prompt)
		if err == nil {
			return text, nil
		}
		if !isRateLimited(err) {
			return "", fmt.Errorf("gemini generate content: %w", err)
		}
		slog.Warn("Gemini key rate limited, rotating", "key", idx+1)
		r.rotateKey(idx)
		lastErr = err
	}
	return "", fmt.Errorf("all Gemini API keys exhausted: %w", lastErr)
}

func (r *GeminiRunner) callGemini(ctx context.Context, key, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](1),
		TopP:             genai.Ptr[float32](0.95),
		TopK:             genai.Ptr[float32](64),
		ResponseMIMEType: "text/plain",
	}
	result, err := client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		if s := strings.TrimSpace(text.String()); s != "" {
			return s, nil
		}
	}
	return "", ErrEmptyResponse
}

func (r *GeminiRunner) key() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentKey, r.apiKeys[r.currentKey]
}

// rotateKey advances past failed, unless another request already rotated.
func (r *GeminiRunner) rotateKey(failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentKey == failed {
		r.currentKey = (r.currentKey + 1) % len(r.apiKeys)
	}
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
