package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scabench-org/scabench/internal/config"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements Generator against the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	recorder   *UsageRecorder
	logger     *zap.Logger
	config     config.JudgeConfig

	// backoffFactory is swapped out in tests to avoid real waits.
	backoffFactory func() backoff.BackOff
}

// -- OpenAI API Request/Response Structures (Internal to this file) --

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequestPayload struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    float32             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponsePayload struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient initializes the client.
func NewOpenAIClient(cfg config.JudgeConfig, limiter *rate.Limiter, recorder *UsageRecorder, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, config.NewConfigurationError("judge.api_key", "is required for the openai provider")
	}
	if limiter == nil {
		return nil, fmt.Errorf("judge: rate limiter must not be nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("judge: usage recorder must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("judge: logger must not be nil")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	return &OpenAIClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		config:   cfg,
		limiter:  limiter,
		recorder: recorder,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.Named("judge.openai"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return backoff.WithMaxRetries(b, uint64(cfg.MaxRetries))
		},
	}, nil
}

// Model reports the configured model identifier.
func (c *OpenAIClient) Model() string { return c.config.Model }

// Generate sends the prompts to the chat completions API and returns the
// generated content with retries.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	payload := c.buildRequestPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var result *GenerationResult
	attempt := 0

	operation := func() error {
		attempt++
		if attempt > 1 {
			c.recorder.RecordRetry()
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait aborted: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		startTime := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(startTime)

		if err != nil {
			c.logger.Warn("Network error during judge request, retrying...", zap.Error(err))
			return NewTransientError(fmt.Errorf("failed to execute HTTP request: %w", err))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return NewTransientError(fmt.Errorf("failed to read response body: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var responsePayload chatResponsePayload
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}

		if len(responsePayload.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("openai API returned no choices"))
		}

		choice := responsePayload.Choices[0]
		if choice.Message.Content == "" {
			if choice.FinishReason == "content_filter" {
				return backoff.Permanent(fmt.Errorf("openai API blocked the request (Reason: %s)", choice.FinishReason))
			}
			return NewTransientError(fmt.Errorf("openai API returned empty content (Reason: %s)", choice.FinishReason))
		}

		c.logger.Info("Judge generation complete (OpenAI)",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", responsePayload.Usage.PromptTokens),
			zap.Int("completion_tokens", responsePayload.Usage.CompletionTokens),
			zap.Int("total_tokens", responsePayload.Usage.TotalTokens),
		)

		result = &GenerationResult{
			Text:             choice.Message.Content,
			PromptTokens:     responsePayload.Usage.PromptTokens,
			CompletionTokens: responsePayload.Usage.CompletionTokens,
		}
		return nil
	}

	if err = backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *OpenAIClient) buildRequestPayload(req GenerationRequest) chatRequestPayload {
	payload := chatRequestPayload{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.ForceJSON {
		payload.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}
	return payload
}

func (c *OpenAIClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("OpenAI API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("openai API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return NewTransientError(err) // Transient errors, retry.
	case http.StatusUnauthorized, http.StatusForbidden:
		return backoff.Permanent(config.NewConfigurationError("judge.api_key", "was rejected by the provider"))
	default:
		return backoff.Permanent(err) // Permanent errors.
	}
}
