// Package llm wraps the Gemini client used by the structuring and extraction stages.
package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// Generator is the subset of *genai.Models the pipeline calls.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// NewGenerator creates a Gemini client. An empty apiKey falls back to the
// environment (GOOGLE_API_KEY / GEMINI_API_KEY or Vertex AI settings).
func NewGenerator(ctx context.Context, apiKey string) (Generator, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGenerator: create genai client: %w", err)
	}
	return client.Models, nil
}

// JSONConfig asks for deterministic JSON output.
func JSONConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
}

// GenerateJSON sends contents to model and returns the cleaned JSON text.
func GenerateJSON(ctx context.Context, gen Generator, model string, contents []*genai.Content) (string, error) {
	resp, err := gen.GenerateContent(ctx, model, contents, JSONConfig())
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	raw := resp.Text()
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return CleanJSON(raw), nil
}
