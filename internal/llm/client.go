// Package llm provides a thin synchronous client for a remote
// chat-completion endpoint. It defines a provider-agnostic Completer
// interface with a concrete HTTP implementation and a deterministic mock
// for testing. Implementations must be stateless and thread-safe.
package llm

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

const defaultAPIURL = "https://api.aimlapi.com/v1/chat/completions"

var (
	ErrGenerationFailed = errors.New("generation request failed")
	ErrInvalidConfig    = errors.New("invalid client configuration")
)

// Message is a single role-tagged block in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Completer defines the interface for generating text from an ordered
// sequence of role-tagged messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error)
}

// Client calls a remote chat-completion endpoint with a single blocking
// request per call. No retries, no streaming.
type Client struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

// NewClient creates a completion client for the given API key and model.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// WithEndpoint overrides the completion endpoint URL. Used for tests and
// self-hosted gateways.
func (c *Client) WithEndpoint(url string) *Client {
	c.apiURL = url
	return c
}

type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// response enumerates the known shapes the endpoint may answer with.
// Decoding tries the flat output_text field first, then the chat-completion
// choices array, then the nested output items.
type response struct {
	OutputText string `json:"output_text"`
	Choices    []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Output []outputItem `json:"output"`
}

type outputItem struct {
	Type    string         `json:"type"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the messages to the endpoint and returns the generated text.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages provided", ErrInvalidConfig)
	}

	body, err := json.Marshal(request{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, string(respBody))
	}

	return extractText(respBody), nil
}

// extractText normalizes the known response shapes into plain text. If no
// shape matches, the raw body is returned untouched so callers can still
// log or display something.
func extractText(body []byte) string {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return string(body)
	}

	if r.OutputText != "" {
		return r.OutputText
	}

	if len(r.Choices) > 0 && r.Choices[0].Message.Content != "" {
		return r.Choices[0].Message.Content
	}

	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, block := range item.Content {
			if block.Type == "output_text" && block.Text != "" {
				return block.Text
			}
		}
	}

	return string(body)
}
