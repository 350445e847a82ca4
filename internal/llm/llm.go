package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client sends one prompt to a text-generation model and returns its text.
// Implementations make exactly one attempt per call.
type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions are the sampling controls sent with each prompt.
type GenerateOptions struct {
	Temperature     float64
	MaxOutputTokens int
	TopK            int
	TopP            float64
}

var (
	// ClassificationOptions keep the medical/non-medical decision terse and stable.
	ClassificationOptions = GenerateOptions{Temperature: 0.3, MaxOutputTokens: 500, TopK: 40, TopP: 0.95}
	// ExtractionOptions leave room for a full parameter table.
	ExtractionOptions = GenerateOptions{Temperature: 0.7, MaxOutputTokens: 2048, TopK: 40, TopP: 0.95}
	// NarrativeOptions drive the patient-facing summary.
	NarrativeOptions = GenerateOptions{Temperature: 0.4, MaxOutputTokens: 1500, TopK: 40, TopP: 0.95}
)

// GatewayError reports a failed model call: transport error, non-2xx status,
// or a response without completion text.
type GatewayError struct {
	Provider   string
	StatusCode int
	Reason     string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Provider + " gateway"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err carries a GatewayError.
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// ErrNotConfigured is wrapped by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient stands in when no provider credentials are configured.
type PlaceholderClient struct{}

// Generate always fails with a GatewayError.
func (PlaceholderClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	_ = ctx
	_ = prompt
	_ = opts
	return "", &GatewayError{Provider: "none", Err: ErrNotConfigured}
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}
