package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/telemetry"
)

const providerName = "openai"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient constructs a new OpenAI client. baseURL may be empty.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("llm model is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: strings.TrimSpace(model)}, nil
}

// Generate sends the prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// gpt-5 models reject sampling overrides and the legacy max_tokens field.
	if isGPT5(c.model) {
		req.MaxCompletionTokens = opts.MaxOutputTokens
	} else {
		req.Temperature = float32(opts.Temperature)
		req.TopP = float32(opts.TopP)
		req.MaxTokens = opts.MaxOutputTokens
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", toGatewayError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.GatewayError{Provider: providerName, Reason: "response missing choices"}
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", &llm.GatewayError{Provider: providerName, Reason: "response empty content"}
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":          providerName,
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})
	return text, nil
}

func toGatewayError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.GatewayError{Provider: providerName, StatusCode: apiErr.HTTPStatusCode, Reason: apiErr.Message, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.GatewayError{Provider: providerName, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &llm.GatewayError{Provider: providerName, Reason: "request failed", Err: err}
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
