package scoring

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/config"
	"github.com/scabench-org/scabench/internal/judge"
)

// Comparator partitions the candidate list into fixed-size batches and runs
// the judge over them for one truth finding.
type Comparator struct {
	client       judge.Client
	batchSize    int
	shortCircuit bool
	logger       *zap.Logger
}

// NewComparator wires a comparator around the given judge client.
func NewComparator(client judge.Client, cfg config.ScoringConfig, logger *zap.Logger) (*Comparator, error) {
	if client == nil {
		return nil, errors.New("scoring: judge client must not be nil")
	}
	if logger == nil {
		return nil, errors.New("scoring: logger must not be nil")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("scoring: batch size must be at least 1, got %d", cfg.BatchSize)
	}
	return &Comparator{
		client:       client,
		batchSize:    cfg.BatchSize,
		shortCircuit: cfg.ShortCircuitExact,
		logger:       logger.Named("comparator"),
	}, nil
}

// Compare runs one full judgment pass for a single truth finding. Batches are
// visited in candidate index order; with short-circuiting enabled the first
// exact match wins, which by construction is also the earliest by index.
// With it disabled every batch is judged and the exact match with the lowest
// candidate index wins. Absent any exact match the best partial by confidence
// is returned, then no_match.
//
// A batch whose judge output never parsed degrades to no_match for that batch
// with the raw output preserved, and the pass continues. Transient judge
// failures and cancellation abort the pass. Cancellation is only observed
// between batches: an in-flight call is left to finish on its own timeout so
// its retry bookkeeping stays intact.
func (c *Comparator) Compare(ctx context.Context, truth schemas.TruthVulnerability, candidates []schemas.CandidateFinding) (*schemas.Verdict, error) {
	if len(candidates) == 0 {
		return &schemas.Verdict{
			Outcome:           schemas.OutcomeNoMatch,
			Explanation:       "no candidates to compare against",
			SeverityFromTruth: truth.Severity,
		}, nil
	}

	var bestExact, bestPartial *schemas.Verdict
	var malformedNote string

	for start := 0; start < len(candidates); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + c.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		verdict, err := c.client.JudgeBatch(context.WithoutCancel(ctx), judge.Request{Truth: truth, Candidates: batch})
		if err != nil {
			var malformed *judge.MalformedOutputError
			if errors.As(err, &malformed) {
				c.logger.Warn("Judge output failed validation; treating batch as no_match",
					zap.String("truth_id", truth.FindingID),
					zap.Int("batch_start", batch[0].Index),
					zap.Error(err),
				)
				malformedNote = fmt.Sprintf("judge output failed validation for candidates %d-%d; raw response: %s",
					batch[0].Index, batch[len(batch)-1].Index, malformed.Raw)
				continue
			}
			return nil, err
		}

		switch verdict.Outcome {
		case schemas.OutcomeExactMatch:
			if c.shortCircuit {
				return verdict, nil
			}
			if bestExact == nil || indexOf(verdict) < indexOf(bestExact) {
				bestExact = verdict
			}
		case schemas.OutcomePartialMatch:
			if betterPartial(verdict, bestPartial) {
				bestPartial = verdict
			}
		}
	}

	if bestExact != nil {
		return bestExact, nil
	}
	if bestPartial != nil {
		return bestPartial, nil
	}

	noMatch := &schemas.Verdict{
		Outcome:           schemas.OutcomeNoMatch,
		Explanation:       "no candidate matched in any batch",
		SeverityFromTruth: truth.Severity,
	}
	if malformedNote != "" {
		noMatch.Explanation = malformedNote
	}
	return noMatch, nil
}

// betterPartial prefers higher confidence, then the lower candidate index.
func betterPartial(candidate, current *schemas.Verdict) bool {
	if current == nil {
		return true
	}
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return indexOf(candidate) < indexOf(current)
}

func indexOf(v *schemas.Verdict) int {
	if v.CandidateIndex == nil {
		return -1
	}
	return *v.CandidateIndex
}
