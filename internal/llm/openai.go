package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/config"
	"github.com/RyanProMax/stock-analysis/internal/logging"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, DeepSeek, and most self-hosted gateways). Reasoning-capable
// models deliver thoughts in the delta's reasoning_content side channel,
// which maps directly onto Delta.Reasoning.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient builds a client from the LLM section of the service config.
// Provider presets fill in the base URL and default model the same way the
// original service did.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key not configured for provider %q", cfg.Provider)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	model := cfg.Model
	switch cfg.Provider {
	case "deepseek":
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		if model == "" {
			model = "deepseek-reasoner"
		}
	case "openai":
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		if model == "" {
			model = "gpt-4o-mini"
		}
	default:
		if baseURL == "" {
			return nil, fmt.Errorf("llm: base_url required for provider %q", cfg.Provider)
		}
		if model == "" {
			return nil, fmt.Errorf("llm: model required for provider %q", cfg.Provider)
		}
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Component(logger, "llm"),
	}, nil
}

// ChatStream implements Client.
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message) (<-chan Delta, <-chan error) {
	deltaChan := make(chan Delta, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(deltaChan)
		defer close(errChan)

		// Apply the client timeout when the caller did not set a deadline.
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
			defer cancel()
		}

		start := time.Now()
		if err := c.stream(ctx, messages, deltaChan); err != nil {
			c.logger.Warn("chat stream failed",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			errChan <- err
			return
		}
		c.logger.Debug("chat stream complete", zap.Duration("elapsed", time.Since(start)))
	}()

	return deltaChan, errChan
}

func (c *OpenAIClient) stream(ctx context.Context, messages []Message, out chan<- Delta) error {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 1.0,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.ReasoningContent != "" {
			if err := send(ctx, out, Delta{Content: delta.ReasoningContent, Reasoning: true}); err != nil {
				return err
			}
		}
		if delta.Content != "" {
			if err := send(ctx, out, Delta{Content: delta.Content}); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

func send(ctx context.Context, out chan<- Delta, d Delta) error {
	select {
	case out <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
