// internal/llm/ollama.go
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

// OllamaBackend talks to a local Ollama runtime over its /api/chat
// endpoint.
type OllamaBackend struct {
	cfg         config.OllamaConfig
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewOllamaBackend(cfg config.OllamaConfig, maxTokens int, temperature float64) *OllamaBackend {
	return &OllamaBackend{
		cfg:         cfg,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{},
	}
}

func (b *OllamaBackend) Name() string { return "ollama" }

func (b *OllamaBackend) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(b.cfg.Timeout))
	defer cancel()

	requestBody := map[string]interface{}{
		"model":    b.cfg.Model,
		"messages": prompt.Messages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": b.temperature,
			"num_predict": b.maxTokens,
		},
	}
	if prompt.JSONMode {
		requestBody["format"] = "json"
	}

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Host+"/api/chat", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama: status %d: %s", resp.StatusCode, snippet)
	}

	var apiResponse struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("ollama: decode error: %w", err)
	}

	return apiResponse.Message.Content, nil
}
