package judge

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scabench-org/scabench/internal/config"
)

// NewLimiter builds the rate limiter a run shares across all judgment calls.
func NewLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
}

// NewClient is a factory function that creates a judge Client based on the
// configuration. The limiter is shared by every concurrent judgment call so
// the whole run observes one global rate budget.
func NewClient(ctx context.Context, judgeCfg config.JudgeConfig, scoringCfg config.ScoringConfig, limiter *rate.Limiter, recorder *UsageRecorder, logger *zap.Logger) (Client, error) {
	switch judgeCfg.Provider {
	case config.ProviderOpenAI:
		generator, err := NewOpenAIClient(judgeCfg, limiter, recorder, logger)
		if err != nil {
			return nil, err
		}
		return NewLLMJudge(generator, recorder, logger, judgeCfg.MalformedRetries, scoringCfg.ConfidenceThreshold)
	case config.ProviderGemini:
		generator, err := NewGeminiClient(ctx, judgeCfg, limiter, recorder, logger)
		if err != nil {
			return nil, err
		}
		return NewLLMJudge(generator, recorder, logger, judgeCfg.MalformedRetries, scoringCfg.ConfidenceThreshold)
	case config.ProviderLexical:
		return NewLexicalClient(scoringCfg.ConfidenceThreshold, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported judge provider configured: '%s'. Supported: [%s, %s, %s]",
			judgeCfg.Provider, config.ProviderOpenAI, config.ProviderGemini, config.ProviderLexical)
	}
}
