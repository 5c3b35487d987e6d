package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrExternal marks failures of the external coaching-model call so callers
// can distinguish "the AI backend is unreachable" from bad input or internal
// bugs. Only raised when a credential is configured but the call cannot
// complete; it is never swallowed into a mock result.
var ErrExternal = errors.New("coach: external service error")

// Client calls the OpenRouter chat-completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an OpenRouter client. baseURL defaults to the public
// OpenRouter endpoint when empty.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse covers only the fields we rely on: the content text and usage
// metadata. No further response schema is assumed.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage map[string]any `json:"usage"`
}

// Complete sends a prompt and returns the model's free-text response plus
// usage metadata. All failures wrap ErrExternal.
func (c *Client) Complete(ctx context.Context, prompt string) (string, map[string]any, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: marshal request: %v", ErrExternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", nil, fmt.Errorf("%w: create request: %v", ErrExternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: send request: %v", ErrExternal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", nil, fmt.Errorf("%w: status %d: %s", ErrExternal, resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("%w: decode response: %v", ErrExternal, err)
	}
	if len(result.Choices) == 0 {
		return "", nil, fmt.Errorf("%w: empty choices", ErrExternal)
	}

	return result.Choices[0].Message.Content, result.Usage, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}
