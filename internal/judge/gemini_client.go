package judge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/scabench-org/scabench/internal/config"
)

// GeminiClient implements Generator against the Gemini API via the official
// SDK.
type GeminiClient struct {
	client   *genai.Client
	limiter  *rate.Limiter
	recorder *UsageRecorder
	logger   *zap.Logger
	config   config.JudgeConfig

	// backoffFactory is swapped out in tests to avoid real waits.
	backoffFactory func() backoff.BackOff
}

// NewGeminiClient initializes the client. A non-empty cfg.Endpoint overrides
// the SDK's base URL, which the tests use to point at a local server.
func NewGeminiClient(ctx context.Context, cfg config.JudgeConfig, limiter *rate.Limiter, recorder *UsageRecorder, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, config.NewConfigurationError("judge.api_key", "is required for the gemini provider")
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

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
	if cfg.Endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:   client,
		limiter:  limiter,
		recorder: recorder,
		config:   cfg,
		logger:   logger.Named("judge.gemini"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return backoff.WithMaxRetries(b, uint64(cfg.MaxRetries))
		},
	}, nil
}

// Model reports the configured model identifier.
func (c *GeminiClient) Model() string { return c.config.Model }

// Generate sends the prompts to the Gemini API and returns the generated
// content with retries.
func (c *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.config.Temperature),
		MaxOutputTokens: int32(c.config.MaxTokens),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.ForceJSON {
		genConfig.ResponseMIMEType = "application/json"
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

		startTime := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(req.UserPrompt), genConfig)
		duration := time.Since(startTime)

		if err != nil {
			return c.classifyError(err)
		}

		if len(resp.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		text := resp.Text()
		if text == "" {
			reason := resp.Candidates[0].FinishReason
			if reason == genai.FinishReasonSafety || reason == genai.FinishReasonProhibitedContent {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (Reason: %s)", reason))
			}
			return NewTransientError(fmt.Errorf("gemini API returned empty content (Reason: %s)", reason))
		}

		promptTokens, completionTokens := 0, 0
		if resp.UsageMetadata != nil {
			promptTokens = int(resp.UsageMetadata.PromptTokenCount)
			completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}

		c.logger.Info("Judge generation complete (Gemini)",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", promptTokens),
			zap.Int("completion_tokens", completionTokens),
		)

		result = &GenerationResult{
			Text:             text,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *GeminiClient) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Gemini API returned error status",
			zap.Int("status", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return NewTransientError(err) // Transient errors, retry.
		case http.StatusUnauthorized, http.StatusForbidden:
			return backoff.Permanent(config.NewConfigurationError("judge.api_key", "was rejected by the provider"))
		default:
			return backoff.Permanent(err) // Permanent errors.
		}
	}

	c.logger.Warn("Network error during judge request, retrying...", zap.Error(err))
	return NewTransientError(fmt.Errorf("failed to execute gemini request: %w", err))
}
