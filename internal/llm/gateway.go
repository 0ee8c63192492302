// internal/llm/gateway.go
package llm

import (
	"context"
	"fmt"

	"insight-agent/internal/common/config"
	apperrors "insight-agent/internal/common/errors"
	"insight-agent/internal/common/logger"
	"insight-agent/internal/common/metrics"
)

// Backend is one model-serving implementation.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Gateway dispatches prompts to an ordered list of backends. Each backend
// gets exactly one attempt per call; a failure falls through to the next
// backend rather than retrying the same one. Only when every backend has
// failed does the call surface an error.
type Gateway struct {
	backends []Backend
	logger   logger.Logger
}

// NewGateway wires the configured chain: Groq first when its credential
// is present, the local Ollama runtime always last.
func NewGateway(cfg config.LLMConfig, log logger.Logger) *Gateway {
	var backends []Backend
	if cfg.Groq.APIKey != "" {
		backends = append(backends, NewGroqBackend(cfg.Groq, cfg.MaxTokens, cfg.Temperature))
	}
	backends = append(backends, NewOllamaBackend(cfg.Ollama, cfg.MaxTokens, cfg.Temperature))
	return NewGatewayWithBackends(backends, log)
}

// NewGatewayWithBackends builds a gateway over an explicit chain.
func NewGatewayWithBackends(backends []Backend, log logger.Logger) *Gateway {
	return &Gateway{
		backends: backends,
		logger:   log.WithFields(map[string]interface{}{"component": "gateway"}),
	}
}

// Complete runs the prompt through the chain and returns the first
// backend's raw text output.
func (g *Gateway) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var lastErr error
	for i, backend := range g.backends {
		text, err := backend.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if i < len(g.backends)-1 {
			metrics.BackendFallbacks.WithLabelValues(backend.Name()).Inc()
			g.logger.Warn("backend failed, falling back", map[string]interface{}{
				"backend": backend.Name(),
				"next":    g.backends[i+1].Name(),
				"error":   err.Error(),
			})
		} else {
			g.logger.Error("backend failed, chain exhausted", map[string]interface{}{
				"backend": backend.Name(),
				"error":   err.Error(),
			})
		}

		if ctx.Err() != nil {
			// The request deadline is gone; later backends would only
			// inherit the same dead context.
			break
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no backends configured")
	}
	return "", apperrors.NewBackendUnavailableError(lastErr)
}
