package judge

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/config"
)

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core, _ := observer.New(zap.DebugLevel)
	return zap.New(core)
}

// getValidJudgeConfig returns a valid JudgeConfig for testing purposes.
func getValidJudgeConfig() config.JudgeConfig {
	return config.JudgeConfig{
		Provider:         config.ProviderOpenAI,
		Model:            "test-model",
		APIKey:           "test-api-key",
		Temperature:      0.0,
		MaxTokens:        512,
		RequestTimeout:   5 * time.Second,
		MaxRetries:       3,
		MalformedRetries: 1,
		RateLimit:        config.RateLimitConfig{RPS: 100.0, Burst: 10},
	}
}

// testLimiter returns a limiter that never blocks.
func testLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}

// sampleRequest provides a standard judgment request: one truth finding and a
// batch of two candidates carrying their original report indices.
func sampleRequest() Request {
	return Request{
		Truth: schemas.TruthVulnerability{
			FindingID:   "SB-001",
			Title:       "Reentrancy in withdraw",
			Description: "The withdraw function performs an external call before updating balances.",
			Severity:    schemas.SeverityHigh,
			Location:    "contracts/Vault.sol",
		},
		Candidates: []schemas.CandidateFinding{
			{
				Index:       2,
				Title:       "Reentrancy in withdraw path",
				Description: "External call happens before the state update.",
				Severity:    schemas.SeverityHigh,
				File:        "contracts/Vault.sol",
			},
			{
				Index:       5,
				Title:       "Missing zero address check",
				Description: "Constructor does not validate the owner address.",
				Severity:    schemas.SeverityLow,
				File:        "contracts/Vault.sol",
			},
		},
	}
}
