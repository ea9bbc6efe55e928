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

	"NewsRelay/internal/config"
)

// StatusError carries the HTTP (or embedded API) status of a failed completion.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completion error %d: %s", e.Code, e.Body)
}

// IsQuotaExhausted reports whether rotating to another key may help.
func IsQuotaExhausted(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusPaymentRequired || se.Code == http.StatusTooManyRequests
}

// ChatClient calls an OpenAI-compatible chat-completions endpoint (OpenRouter by default).
type ChatClient struct {
	endpoint    string
	model       string
	referer     string
	title       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewChatClient builds a client from configuration.
func NewChatClient(cfg config.SummarizerConfig, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &ChatClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		referer:     cfg.Referer,
		title:       cfg.Title,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a single user prompt with the given key and returns the reply text.
func (c *ChatClient) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chat client is nil")
	}
	if apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chat client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if decoded.Error != nil {
		return "", &StatusError{Code: decoded.Error.Code, Body: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
