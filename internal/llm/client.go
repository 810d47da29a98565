package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corey-beep/email-agent/internal/config"
)

var (
	// ErrAPICallFailed indicates the completion API call failed
	ErrAPICallFailed = errors.New("completion API call failed")
	// ErrInvalidResponse indicates an invalid response from the completion API
	ErrInvalidResponse = errors.New("invalid completion API response")
)

// Client talks to an OpenAI-compatible chat completion endpoint (for a
// local Ollama daemon, any placeholder API key works).
type Client struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
	log         *zap.Logger
}

// NewClient creates a completion client from configuration.
func NewClient(cfg config.LLMConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: log,
	}
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends a prompt (with optional system prompt) and returns the raw
// model text.
func (c *Client) Chat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var messages []ChatMessage
	if systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})

	request := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrInvalidResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Complete is the fail-closed completion surface: a transport failure
// comes back as descriptive text, never an error, so a pipeline can
// embed it into a result field instead of aborting a batch.
func (c *Client) Complete(ctx context.Context, prompt, systemPrompt string) string {
	response, err := c.Chat(ctx, prompt, systemPrompt)
	if err != nil {
		c.log.Warn("completion call failed", zap.Error(err))
		return fmt.Sprintf("Error communicating with LLM: %v", err)
	}
	return response
}

// HealthCheck reports whether the completion endpoint answers at all.
func (c *Client) HealthCheck(ctx context.Context) bool {
	response, err := c.Chat(ctx, "Say 'OK' if you're working.", "")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToUpper(response), "OK") || len(response) > 0
}
