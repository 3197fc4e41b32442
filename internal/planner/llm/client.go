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

	"plan-service/internal/planner/models"
)

// ============================================================
// Completion Provider Client
// ============================================================

// maxResponseSize ограничивает тело ответа провайдера (10MB).
const maxResponseSize = 10 * 1024 * 1024

const defaultBaseURL = "https://api.openai.com/v1"

// Config настраивает клиент провайдера.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client вызывает OpenAI-совместимый chat-completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Request — один запрос на генерацию.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	JSONMode     bool
}

// Response — ответ провайдера с расходом токенов.
type Response struct {
	Content string
	Model   string
	Usage   models.TokenUsage
}

// ClientOption настраивает Client.
type ClientOption func(*Client)

// WithHTTPClient подменяет HTTP-клиент (для тестов).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // генерация плана может быть долгой
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ============================================================
// Wire format (OpenAI-compatible)
// ============================================================

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete выполняет один запрос к провайдеру.
// Ошибки классифицируются на transient/fatal с машинным кодом.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, NewFatalError(CodeProvider, fmt.Errorf("marshal request: %w", err))
	}

	url := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(CodeProvider, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// сетевые ошибки считаем временными
		return nil, NewTransientError(CodeProvider, fmt.Errorf("provider request: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(CodeProvider, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewTransientError(CodeProvider, fmt.Errorf("parse response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, NewTransientError(CodeProvider, fmt.Errorf("no choices in response"))
	}

	return &Response{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: models.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) buildRequest(req Request) chatRequest {
	out := chatRequest{
		Model:       c.cfg.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}
	if req.JSONMode {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out
}

// classifyHTTPError разбирает код и тело ошибки провайдера.
func classifyHTTPError(statusCode int, body []byte) error {
	var parsed apiError
	_ = json.Unmarshal(body, &parsed)

	msg := parsed.Error.Message
	if msg == "" {
		msg = string(body)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
	}
	err := fmt.Errorf("provider error (status %d): %s", statusCode, msg)

	switch {
	case statusCode == http.StatusTooManyRequests:
		if parsed.Error.Code == "insufficient_quota" || parsed.Error.Type == "insufficient_quota" {
			// квота исчерпана — повторы бесполезны
			return NewFatalError(CodeQuotaExceeded, err)
		}
		return NewTransientError(CodeRateLimited, err)
	case statusCode == http.StatusPaymentRequired:
		return NewFatalError(CodeQuotaExceeded, err)
	case statusCode == http.StatusBadRequest:
		if parsed.Error.Code == "context_length_exceeded" ||
			strings.Contains(msg, "maximum context length") {
			return NewFatalError(CodeContextTooLong, err)
		}
		return NewFatalError(CodeProvider, err)
	case statusCode >= 500:
		return NewTransientError(CodeProvider, err)
	default:
		return NewFatalError(CodeProvider, err)
	}
}
