// Package llm wraps the Gemini client shared by the quality gate and the
// review generator.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client is a thin wrapper over the Gemini API that returns plain text.
type Client struct {
	client *genai.Client
}

// New creates a Client authenticated with the given API key.
func New(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	return &Client{client: c}, nil
}

// Generate sends a single-turn prompt to the named model and returns the
// concatenated text parts of the response.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("llm: empty response from %s", model)
	}
	return strings.Join(parts, "\n"), nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}
