// Package llm implements app.TextGenerationClient against OpenAI-compatible chat-completions endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/app"
)

// Defaults for Config.
const (
	DefaultBaseURL      = "https://api.deepseek.com/chat/completions"
	DefaultModel        = "deepseek-chat"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 4 << 20
)

// Config holds configuration for the chat-completions client.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	HTTPClient   *http.Client

	// MaxResponseBytes <= 0 uses DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// Client posts chat-completion requests with bearer authentication.
type Client struct {
	baseURL      string
	apiKey       string
	maxRetries   int
	initialDelay time.Duration
	maxBody      int64
	http         *http.Client
}

var _ app.TextGenerationClient = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// New constructs a client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
		maxBody:      cfg.MaxResponseBytes,
		http:         httpClient,
	}
}

// Complete sends one chat completion and returns the first choice's text. A response without
// choices yields an empty string; transport failures and non-2xx answers yield *app.RemoteServiceError.
func (c *Client) Complete(ctx context.Context, req app.CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("api key is not configured: %w", app.ErrConfigInvalid)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s with the default initial delay.
			delay := c.initialDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &app.RemoteServiceError{Message: "request cancelled", Err: ctx.Err()}
			}
		}

		text, retry, err := c.do(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, &app.RemoteServiceError{Err: err}
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	_ = resp.Body.Close()
	if err != nil {
		return "", true, &app.RemoteServiceError{StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(respBody)) > c.maxBody {
		return "", false, &app.RemoteServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("response body exceeds %d bytes", c.maxBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &app.RemoteServiceError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var decoded apiError
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Error.Message != "" {
			remote.Message = decoded.Error.Message
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, remote
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", false, nil
	}
	if len(decoded.Choices) == 0 {
		return "", false, nil
	}
	return decoded.Choices[0].Message.Content, false, nil
}
