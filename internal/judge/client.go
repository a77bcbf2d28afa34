package judge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/llmutil"
)

// Request carries one truth finding and a batch of candidate findings for a
// single judgment call. Candidate indices are positions in the full
// deduplicated findings list, not batch positions.
type Request struct {
	Truth      schemas.TruthVulnerability
	Candidates []schemas.CandidateFinding
}

// Client is the capability the scoring pipeline needs from a judge backend.
// JudgeBatch returns a verdict for the batch, or one of the typed errors:
// a TransientError when the backend stayed unreachable through the retry
// budget, or a MalformedOutputError when its output never parsed into a
// valid verdict.
type Client interface {
	JudgeBatch(ctx context.Context, req Request) (*schemas.Verdict, error)
	Model() string
}

// GenerationRequest is a raw completion request against an LLM backend.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	ForceJSON    bool
}

// GenerationResult carries the model text plus token accounting.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces raw text completions. Implementations own transport
// concerns: rate limiting, exponential backoff on transient failures, and
// classifying upstream errors.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
	Model() string
}

// judgeResponse is the wire schema the model is instructed to return.
type judgeResponse struct {
	Outcome        string  `json:"outcome"`
	CandidateIndex *int    `json:"candidate_index"`
	Confidence     float64 `json:"confidence"`
	Explanation    string  `json:"explanation"`
}

// LLMJudge turns raw completions into validated verdicts. It re-asks a
// bounded number of times when the model returns unparseable output, and
// downgrades low-confidence exact matches to partial.
type LLMJudge struct {
	generator           Generator
	usage               *UsageRecorder
	logger              *zap.Logger
	malformedRetries    int
	confidenceThreshold float64
}

// NewLLMJudge wires a judge around the given generator.
func NewLLMJudge(generator Generator, usage *UsageRecorder, logger *zap.Logger, malformedRetries int, confidenceThreshold float64) (*LLMJudge, error) {
	if generator == nil {
		return nil, errors.New("judge: generator must not be nil")
	}
	if usage == nil {
		return nil, errors.New("judge: usage recorder must not be nil")
	}
	if logger == nil {
		return nil, errors.New("judge: logger must not be nil")
	}
	return &LLMJudge{
		generator:           generator,
		usage:               usage,
		logger:              logger.Named("judge"),
		malformedRetries:    malformedRetries,
		confidenceThreshold: confidenceThreshold,
	}, nil
}

// Model reports the underlying model identifier.
func (j *LLMJudge) Model() string { return j.generator.Model() }

// JudgeBatch asks the model whether any candidate in the batch matches the
// truth finding.
func (j *LLMJudge) JudgeBatch(ctx context.Context, req Request) (*schemas.Verdict, error) {
	if len(req.Candidates) == 0 {
		return &schemas.Verdict{
			Outcome:           schemas.OutcomeNoMatch,
			Explanation:       "no candidates to compare against",
			SeverityFromTruth: req.Truth.Severity,
		}, nil
	}

	genReq := GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   BuildJudgePrompt(req.Truth, req.Candidates),
		ForceJSON:    true,
	}

	var lastMalformed *MalformedOutputError
	for attempt := 0; attempt <= j.malformedRetries; attempt++ {
		result, err := j.generator.Generate(ctx, genReq)
		if err != nil {
			var transient *TransientError
			if errors.As(err, &transient) {
				j.usage.RecordTransientFailure()
			}
			return nil, err
		}
		j.usage.RecordCall(result.PromptTokens, result.CompletionTokens)

		verdict, err := j.parseVerdict(result.Text, req)
		if err == nil {
			return verdict, nil
		}

		j.usage.RecordMalformedResponse()
		lastMalformed = NewMalformedOutputError(llmutil.Truncate(result.Text, 500), err)
		j.logger.Warn("Judge returned malformed output",
			zap.Int("attempt", attempt+1),
			zap.String("truth_title", req.Truth.Title),
			zap.Error(err),
		)
	}

	return nil, lastMalformed
}

// parseVerdict extracts and validates the model's JSON answer.
func (j *LLMJudge) parseVerdict(text string, req Request) (*schemas.Verdict, error) {
	resp, err := llmutil.ParseJSONResponse[judgeResponse](text)
	if err != nil {
		return nil, err
	}

	outcome := schemas.VerdictOutcome(resp.Outcome)
	if !outcome.Valid() {
		return nil, fmt.Errorf("unknown outcome %q", resp.Outcome)
	}
	if resp.Confidence < 0.0 || resp.Confidence > 1.0 {
		return nil, fmt.Errorf("confidence %v outside [0, 1]", resp.Confidence)
	}

	verdict := &schemas.Verdict{
		Outcome:           outcome,
		Confidence:        resp.Confidence,
		Explanation:       resp.Explanation,
		SeverityFromTruth: req.Truth.Severity,
	}

	if outcome == schemas.OutcomeNoMatch {
		if verdict.Explanation == "" {
			verdict.Explanation = "no candidate matched"
		}
		return verdict, nil
	}

	// Matching outcomes must name a candidate from this batch.
	if resp.CandidateIndex == nil {
		return nil, fmt.Errorf("outcome %q without a candidate_index", resp.Outcome)
	}
	matched := findCandidate(req.Candidates, *resp.CandidateIndex)
	if matched == nil {
		return nil, fmt.Errorf("candidate_index %d is not in this batch", *resp.CandidateIndex)
	}

	idx := matched.Index
	verdict.CandidateIndex = &idx
	verdict.SeverityFromCandidate = matched.Severity

	// A claimed exact match below the confidence bar is kept, but only as
	// partial.
	if outcome == schemas.OutcomeExactMatch && resp.Confidence < j.confidenceThreshold {
		j.logger.Debug("Downgrading low-confidence exact match to partial",
			zap.Float64("confidence", resp.Confidence),
			zap.Float64("threshold", j.confidenceThreshold),
			zap.Int("candidate_index", idx),
		)
		verdict.Outcome = schemas.OutcomePartialMatch
	}

	return verdict, nil
}

func findCandidate(candidates []schemas.CandidateFinding, index int) *schemas.CandidateFinding {
	for i := range candidates {
		if candidates[i].Index == index {
			return &candidates[i]
		}
	}
	return nil
}
