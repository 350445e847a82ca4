// Package anthropic adapts the Anthropic Messages API to llm.Client.
package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/telemetry"
)

const (
	providerName = "anthropic"
	DefaultModel = "claude-sonnet-4-5-20250929"
)

// Client implements llm.Client with a single Messages.New call per prompt.
type Client struct {
	api   sdk.Client
	model string
}

// NewClient constructs a client. baseURL may be empty.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: sdk.NewClient(opts...), model: strings.TrimSpace(model)}, nil
}

// Generate concatenates the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(opts.MaxOutputTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Temperature: sdk.Float(opts.Temperature),
	}
	if opts.TopK > 0 {
		params.TopK = sdk.Int(int64(opts.TopK))
	}

	start := time.Now()
	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &llm.GatewayError{Provider: providerName, StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", &llm.GatewayError{Provider: providerName, Reason: "request failed", Err: err}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &llm.GatewayError{Provider: providerName, Reason: "response missing text content"}
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":          providerName,
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     msg.Usage.InputTokens,
		"completion_tokens": msg.Usage.OutputTokens,
	})
	return sb.String(), nil
}

var _ llm.Client = (*Client)(nil)
