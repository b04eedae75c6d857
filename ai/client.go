// Package ai implements the outbound language-model boundary as an
// OpenAI-compatible chat-completions client. The client performs no
// retries of its own; it classifies every failure with the core sentinel
// errors so the retry executor above it can decide what to do.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tripweaver/tripweaver/core"
)

// Client implements core.AIClient against an OpenAI-compatible endpoint
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     core.Logger
	telemetry  core.Telemetry
}

// Option configures the client
type Option func(*Client)

// WithTelemetry attaches a telemetry provider for span creation
func WithTelemetry(telemetry core.Telemetry) Option {
	return func(c *Client) {
		if telemetry != nil {
			c.telemetry = telemetry
		}
	}
}

// WithHTTPClient overrides the HTTP client (tests)
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a chat client from configuration
func NewClient(cfg core.AIConfig, logger core.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:    logger,
		telemetry: &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateResponse sends one chat completion request
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "ai.generate_response")
	defer span.End()
	span.SetAttribute("ai.prompt_length", len(prompt))

	if c.apiKey == "" {
		err := fmt.Errorf("API key not configured: %w", core.ErrUnauthorized)
		span.RecordError(err)
		return nil, err
	}

	if options == nil {
		options = &core.AIOptions{}
	}
	model := options.Model
	if model == "" {
		model = c.model
	}
	span.SetAttribute("ai.model", model)

	messages := make([]chatMessage, 0, 2)
	if options.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: options.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := classifyTransportError(err)
		c.logger.Warn("LLM request failed", map[string]interface{}{
			"operation": "ai_request",
			"model":     model,
			"error":     err.Error(),
		})
		span.RecordError(classified)
		return nil, classified
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", core.ErrConnectionFailed)
	}

	if resp.StatusCode != http.StatusOK {
		classified := classifyStatus(resp.StatusCode)
		c.logger.Warn("LLM request rejected", map[string]interface{}{
			"operation":   "ai_request",
			"model":       model,
			"status_code": resp.StatusCode,
			"body":        truncateForLog(string(respBody), 200),
		})
		span.SetAttribute("http.status_code", resp.StatusCode)
		span.RecordError(classified)
		return nil, classified
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", core.ErrServerError)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response: %w", core.ErrServerError)
	}

	c.logger.Debug("LLM request completed", map[string]interface{}{
		"operation":    "ai_request",
		"model":        parsed.Model,
		"total_tokens": parsed.Usage.TotalTokens,
	})

	return &core.AIResponse{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: core.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// classifyStatus maps HTTP status codes onto the retryability taxonomy
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", status, core.ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", status, core.ErrUnauthorized)
	case status >= 500:
		return fmt.Errorf("status %d: %w", status, core.ErrServerError)
	default:
		return fmt.Errorf("status %d: %w", status, core.ErrInvalidRequest)
	}
}

// classifyTransportError maps network-level failures
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, core.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, core.ErrConnectionFailed)
}

// truncateForLog truncates a string for logging purposes
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
