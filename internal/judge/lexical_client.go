package judge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/textmatch"
)

// LexicalClient is a deterministic judge built on word-overlap scoring. It
// needs no API key and produces identical verdicts on identical input, which
// makes it the provider of choice for dry runs and tests. Its quality is well
// below an LLM judge's; treat its scores as a baseline.
type LexicalClient struct {
	matcher   *textmatch.Service
	logger    *zap.Logger
	threshold float64
}

// NewLexicalClient creates the offline judge. Scores at or above threshold
// count as exact matches; anything clearing the lexical floor counts as
// partial.
func NewLexicalClient(threshold float64, logger *zap.Logger) (*LexicalClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("judge: logger must not be nil")
	}
	return &LexicalClient{
		matcher:   textmatch.NewService(logger, textmatch.DefaultRules()),
		logger:    logger.Named("judge.lexical"),
		threshold: threshold,
	}, nil
}

// Model reports a fixed identifier since no model is involved.
func (c *LexicalClient) Model() string { return "lexical" }

// JudgeBatch scores every candidate in the batch against the truth finding
// and verdicts on the best one.
func (c *LexicalClient) JudgeBatch(ctx context.Context, req Request) (*schemas.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict := &schemas.Verdict{
		Outcome:           schemas.OutcomeNoMatch,
		SeverityFromTruth: req.Truth.Severity,
	}
	if len(req.Candidates) == 0 {
		verdict.Explanation = "no candidates to compare against"
		return verdict, nil
	}

	pos, score, ok := c.matcher.BestCandidate(req.Truth, req.Candidates)
	if !ok {
		verdict.Explanation = "no candidate cleared the lexical similarity floor"
		return verdict, nil
	}

	matched := req.Candidates[pos]
	idx := matched.Index

	verdict.Outcome = schemas.OutcomePartialMatch
	if score >= c.threshold {
		verdict.Outcome = schemas.OutcomeExactMatch
	}
	verdict.CandidateIndex = &idx
	verdict.Confidence = score
	verdict.SeverityFromCandidate = matched.Severity
	verdict.Explanation = fmt.Sprintf("lexical similarity %.2f between %q and candidate %d", score, req.Truth.Title, idx)

	return verdict, nil
}
