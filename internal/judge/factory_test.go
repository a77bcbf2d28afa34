package judge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scabench-org/scabench/internal/config"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Iterations:          3,
		BatchSize:           10,
		Concurrency:         2,
		ShortCircuitExact:   true,
		ConfidenceThreshold: 0.75,
	}
}

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter(config.RateLimitConfig{RPS: 2.0, Burst: 4})
	require.NotNil(t, limiter)
	assert.Equal(t, float64(2.0), float64(limiter.Limit()))
	assert.Equal(t, 4, limiter.Burst())
}

// Verifies the factory wires an LLM judge around the OpenAI generator.
func TestNewClient_OpenAIProvider(t *testing.T) {
	cfg := getValidJudgeConfig()
	cfg.Provider = config.ProviderOpenAI

	client, err := NewClient(context.Background(), cfg, testScoringConfig(), testLimiter(), NewUsageRecorder(), setupTestLogger(t))

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "test-model", client.Model())

	// White box: the judge must sit on top of the OpenAI generator.
	llmJudge, ok := client.(*LLMJudge)
	require.True(t, ok, "The created client should be of type *LLMJudge")
	_, ok = llmJudge.generator.(*OpenAIClient)
	assert.True(t, ok, "The generator should be an instance of *OpenAIClient")
	assert.Equal(t, cfg.MalformedRetries, llmJudge.malformedRetries)
	assert.Equal(t, 0.75, llmJudge.confidenceThreshold)
}

// Verifies the factory wires an LLM judge around the Gemini generator.
func TestNewClient_GeminiProvider(t *testing.T) {
	cfg := getValidJudgeConfig()
	cfg.Provider = config.ProviderGemini
	cfg.Model = "gemini-2.0-flash"

	client, err := NewClient(context.Background(), cfg, testScoringConfig(), testLimiter(), NewUsageRecorder(), setupTestLogger(t))

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "gemini-2.0-flash", client.Model())

	llmJudge, ok := client.(*LLMJudge)
	require.True(t, ok, "The created client should be of type *LLMJudge")
	_, ok = llmJudge.generator.(*GeminiClient)
	assert.True(t, ok, "The generator should be an instance of *GeminiClient")
}

// Verifies the lexical provider needs no API key.
func TestNewClient_LexicalProvider(t *testing.T) {
	cfg := getValidJudgeConfig()
	cfg.Provider = config.ProviderLexical
	cfg.APIKey = ""

	client, err := NewClient(context.Background(), cfg, testScoringConfig(), testLimiter(), NewUsageRecorder(), setupTestLogger(t))

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "lexical", client.Model())

	_, ok := client.(*LexicalClient)
	assert.True(t, ok, "The created client should be of type *LexicalClient")
}

// Verifies that the factory propagates constructor errors.
func TestNewClient_Failure_MissingAPIKey(t *testing.T) {
	for _, provider := range []config.JudgeProvider{config.ProviderOpenAI, config.ProviderGemini} {
		t.Run(string(provider), func(t *testing.T) {
			cfg := getValidJudgeConfig()
			cfg.Provider = provider
			cfg.APIKey = ""

			client, err := NewClient(context.Background(), cfg, testScoringConfig(), testLimiter(), NewUsageRecorder(), setupTestLogger(t))

			assert.Error(t, err)
			assert.Nil(t, client)

			var confErr *config.ConfigurationError
			require.ErrorAs(t, err, &confErr)
			assert.Equal(t, "judge.api_key", confErr.Field)
		})
	}
}

// Verifies the factory returns an error for unknown providers.
func TestNewClient_Failure_UnsupportedProvider(t *testing.T) {
	cfg := getValidJudgeConfig()
	cfg.Provider = "unsupported-provider-xyz"

	client, err := NewClient(context.Background(), cfg, testScoringConfig(), testLimiter(), NewUsageRecorder(), setupTestLogger(t))

	assert.Error(t, err, "NewClient should fail for an unsupported provider")
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "unknown or unsupported judge provider configured: 'unsupported-provider-xyz'")
	// Ensure the error message guides the user by listing supported options
	assert.Contains(t, err.Error(), string(config.ProviderOpenAI), "Error message should list supported providers")
	assert.Contains(t, err.Error(), string(config.ProviderLexical), "Error message should list supported providers")
}
