package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaHost is where a local Ollama listens by default.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient is a minimal client for a local Ollama runtime's /api/chat.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	retry      RetryPolicy
}

// NewOllamaClient targets host (e.g. http://127.0.0.1:11434).
func NewOllamaClient(host string, httpTimeout time.Duration, retry RetryPolicy) *OllamaClient {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	retry = retry.withDefaults()
	if retry.BaseDelay > time.Second {
		retry.BaseDelay = 200 * time.Millisecond
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		host:       host,
		retry:      retry,
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Generate sends a non-streaming chat request and maps the reply to a GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	oreq := ollamaChatRequest{Model: req.Model, Messages: req.Messages}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		oreq.Options = map[string]any{}
		if req.Temperature > 0 {
			oreq.Options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			oreq.Options["num_predict"] = req.MaxTokens
		}
	}
	payload, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.host + "/api/chat"

	backoff := c.retry.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := c.once(ctx, endpoint, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == c.retry.MaxAttempts || !IsRetryable(err) {
			break
		}
		wait := withJitter(backoff)
		if wait > c.retry.MaxDelay {
			wait = c.retry.MaxDelay
		}
		backoff *= 2
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *OllamaClient) once(ctx context.Context, endpoint string, payload []byte) (*GenerateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Host: c.host, Err: err, Transient: isRetryableNetErr(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Ollama answers 404 for models that were never pulled.
			return nil, &ModelNotFoundError{APIError: apiErr}
		case resp.StatusCode == http.StatusBadRequest:
			return nil, &BadRequestError{APIError: apiErr}
		case resp.StatusCode >= 500:
			return nil, &ServerError{APIError: apiErr}
		}
		return nil, apiErr
	}
	var oresp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &GenerateResponse{
		Model: oresp.Model,
		Choices: []Choice{{
			Message:      Message{Role: RoleAssistant, Content: oresp.Message.Content},
			FinishReason: "stop",
		}},
		Usage: Usage{
			PromptTokens:     oresp.PromptEvalCount,
			CompletionTokens: oresp.EvalCount,
			TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
		},
		RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
	}, nil
}
