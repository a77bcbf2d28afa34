package scoring

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/config"
	"github.com/scabench-org/scabench/internal/judge"
)

func setupTestLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, observedLogs := observer.New(zap.DebugLevel)
	return zap.New(core), observedLogs
}

func testScoringConfig(iterations, batchSize, concurrency int) config.ScoringConfig {
	return config.ScoringConfig{
		Iterations:          iterations,
		BatchSize:           batchSize,
		Concurrency:         concurrency,
		ShortCircuitExact:   true,
		ConfidenceThreshold: 0.75,
	}
}

func mkTruth(id, title string, severity schemas.Severity) schemas.TruthVulnerability {
	return schemas.TruthVulnerability{
		FindingID:   id,
		Title:       title,
		Description: "expected " + title,
		Severity:    severity,
	}
}

func mkCandidate(index int, title string, severity schemas.Severity) schemas.CandidateFinding {
	return schemas.CandidateFinding{
		Index:       index,
		Title:       title,
		Description: "reported " + title,
		Severity:    severity,
	}
}

func exactVerdict(index int, confidence float64) *schemas.Verdict {
	return &schemas.Verdict{
		Outcome:        schemas.OutcomeExactMatch,
		CandidateIndex: &index,
		Confidence:     confidence,
		Explanation:    fmt.Sprintf("same root cause as candidate %d", index),
	}
}

func partialVerdict(index int, confidence float64) *schemas.Verdict {
	return &schemas.Verdict{
		Outcome:        schemas.OutcomePartialMatch,
		CandidateIndex: &index,
		Confidence:     confidence,
		Explanation:    fmt.Sprintf("overlaps with candidate %d", index),
	}
}

func noMatchVerdict() *schemas.Verdict {
	return &schemas.Verdict{
		Outcome:     schemas.OutcomeNoMatch,
		Explanation: "no candidate matched",
	}
}

// scriptedClient satisfies judge.Client with a caller-provided decision
// function. It records every request and the context state observed at call
// time so tests can assert on batching and cancellation behavior.
type scriptedClient struct {
	mu       sync.Mutex
	decide   func(req judge.Request, call int) (*schemas.Verdict, error)
	calls    int
	requests []judge.Request
	ctxErrs  []error
}

func (c *scriptedClient) JudgeBatch(ctx context.Context, req judge.Request) (*schemas.Verdict, error) {
	c.mu.Lock()
	call := c.calls
	c.calls++
	c.requests = append(c.requests, req)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	decide := c.decide
	c.mu.Unlock()
	return decide(req, call)
}

func (c *scriptedClient) Model() string { return "scripted-judge" }

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedClient) recordedRequests() []judge.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]judge.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// batchIndices extracts the original candidate indices of one recorded batch.
func batchIndices(req judge.Request) []int {
	indices := make([]int, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		indices = append(indices, c.Index)
	}
	return indices
}
