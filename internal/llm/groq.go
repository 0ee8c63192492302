// internal/llm/groq.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"insight-agent/internal/common/config"
)

// GroqBackend talks to the Groq cloud API, which exposes the OpenAI
// chat-completions wire format.
type GroqBackend struct {
	cfg         config.GroqConfig
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewGroqBackend(cfg config.GroqConfig, maxTokens int, temperature float64) *GroqBackend {
	return &GroqBackend{
		cfg:         cfg,
		maxTokens:   maxTokens,
		temperature: temperature,
		// No client timeout; the per-call context carries the deadline.
		client: &http.Client{},
	}
}

func (b *GroqBackend) Name() string { return "groq" }

func (b *GroqBackend) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(b.cfg.Timeout))
	defer cancel()

	requestBody := map[string]interface{}{
		"model":       b.cfg.Model,
		"messages":    prompt.Messages,
		"temperature": b.temperature,
		"max_tokens":  b.maxTokens,
	}
	if prompt.JSONMode {
		requestBody["response_format"] = map[string]string{"type": "json_object"}
	}

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("groq: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("groq: status %d: %s", resp.StatusCode, snippet)
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("groq: decode error: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("groq: empty choices in response")
	}

	return apiResponse.Choices[0].Message.Content, nil
}
