package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/iconidentify/scriptcast/internal/config"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client interfaces with the OpenRouter chat completion API.
type Client interface {
	// Send submits an ordered conversation to the given model and
	// returns the reply text.
	Send(ctx context.Context, messages []Message, model string) (string, error)
}

// Model describes one entry in the model catalog offered to the UI.
type Model struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Models returns the fixed catalog of selectable models.
func Models() []Model {
	return []Model{
		{ID: "google/gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash Lite (Fast)", IsDefault: true},
		{ID: "openai/gpt-3.5-turbo", Name: "GPT-3.5 Turbo (Fast)"},
		{ID: "anthropic/claude-instant-1.2", Name: "Claude Instant (Fast)"},
		{ID: "mistral/mistral-small", Name: "Mistral Small (Fast)"},
		{ID: "meta/llama-3-8b-instruct", Name: "Llama 3 8B (Medium)"},
		{ID: "xai/grok-3", Name: "Grok 3 (Slow)"},
	}
}

// HTTPClient implements Client using HTTP requests to OpenRouter.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	referer    string
	title      string
	httpClient *http.Client
}

// NewClient creates a new OpenRouter API client.
func NewClient(cfg config.OpenRouterConfig) *HTTPClient {
	return &HTTPClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		referer: cfg.Referer,
		title:   cfg.AppTitle,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Send submits the conversation and returns the reply text.
func (c *HTTPClient) Send(ctx context.Context, messages []Message, model string) (string, error) {
	chatReq := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", c.referer)
	httpReq.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return chatResp.Choices[0].Message.Content, nil
}
