package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient handles Anthropic Messages API operations
type AnthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// NewAnthropicClient creates a new Messages API client.
// The HTTP client keeps the transport defaults; callers bound calls through ctx.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://api.anthropic.com/v1",
		httpClient: &http.Client{},
	}
}

// messagesRequest represents the request structure for the Messages API
type messagesRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Messages  []messagesMessage `json:"messages"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse represents the response structure from the Messages API
type messagesResponse struct {
	Content []messagesContent `json:"content"`
}

type messagesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the prompt as a single user message
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		Messages:  []messagesMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no content in response")
}
