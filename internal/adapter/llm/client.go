// Package llm calls an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("llm client not configured")

// Client sends chat completion requests.
type Client struct {
	api     *upstream.Client
	baseURL string
	apiKey  string
	model   string
}

// NewClient creates a chat completions client. baseURL is the API root, for
// example https://api.openai.com/v1.
func NewClient(api *upstream.Client, baseURL, apiKey, model string) *Client {
	return &Client{
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// Complete returns the content of the first choice. An empty string with a
// nil error means the model answered with nothing.
func (c *Client) Complete(ctx context.Context, req domain.NarrativeRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.JSONOutput {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.api.PostJSON(ctx, c.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model          string                    `json:"model"`
	Messages       []domain.NarrativeMessage `json:"messages"`
	Temperature    float64                   `json:"temperature"`
	ResponseFormat *responseFormat           `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
