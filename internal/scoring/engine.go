package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/config"
	"github.com/scabench-org/scabench/internal/judge"
)

// Input is one project's worth of benchmark data: the expected
// vulnerabilities and the findings a tool reported against them.
type Input struct {
	Project         string
	Vulnerabilities []schemas.TruthVulnerability
	Findings        []schemas.CandidateFinding
}

// Engine runs the full evaluation pipeline for a project: normalization,
// per-truth judging with majority voting, conflict resolution, false
// positive collection and metric calculation.
type Engine struct {
	comparator *Comparator
	cfg        config.ScoringConfig
	usage      *judge.UsageRecorder
	model      string
	logger     *zap.Logger

	// now and newRunID are swapped out in tests for deterministic reports.
	now      func() time.Time
	newRunID func() string
}

// NewEngine wires an Engine around the given judge client.
func NewEngine(client judge.Client, cfg config.ScoringConfig, usage *judge.UsageRecorder, logger *zap.Logger) (*Engine, error) {
	if usage == nil {
		return nil, errors.New("usage recorder cannot be nil")
	}
	comparator, err := NewComparator(client, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		comparator: comparator,
		cfg:        cfg,
		usage:      usage,
		model:      client.Model(),
		logger:     logger.Named("engine"),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}, nil
}

// Score evaluates one project and assembles its report. Cancelling the
// context stops new judgment work; truth findings already evaluated are
// resolved into a report flagged as incomplete, with precision and F1
// withheld because the false positive pool cannot be trusted.
func (e *Engine) Score(ctx context.Context, in Input) (*schemas.ScoreReport, error) {
	truths, warnings := NormalizeTruth(in.Vulnerabilities, e.logger)
	candidates, candidateWarnings := Normalize(in.Findings, e.logger)
	warnings = append(warnings, candidateWarnings...)

	e.logger.Info("Scoring project",
		zap.String("project", in.Project),
		zap.Int("truth_count", len(truths)),
		zap.Int("candidate_count", len(candidates)),
		zap.Int("iterations", e.cfg.Iterations))

	verdicts := make([]*ConsensusVerdict, len(truths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := range truths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cv, err := e.scoreTruth(gctx, truths[i], candidates)
			if err != nil {
				return err
			}
			verdicts[i] = cv
			return nil
		})
	}

	incomplete := false
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		incomplete = true
	}

	items := make([]TruthVerdict, 0, len(truths))
	for i, cv := range verdicts {
		if cv == nil {
			continue
		}
		items = append(items, TruthVerdict{Truth: truths[i], Verdict: *cv})
	}
	if len(items) < len(truths) {
		incomplete = true
	}

	resolution := Resolve(items, e.logger)

	var falsePositives []schemas.CandidateFinding
	if !incomplete {
		falsePositives = CollectFalsePositives(candidates, resolution, e.cfg.ExcludedSeverities)
	}

	metrics := CalculateMetrics(resolution.Assignments, len(candidates), len(falsePositives))
	if incomplete {
		metrics.Precision, metrics.F1Score = 0, 0
		warnings = append(warnings, fmt.Sprintf("run cancelled: %d of %d truth findings evaluated", len(items), len(truths)))
		e.logger.Warn("Scoring interrupted, finalizing partial results",
			zap.String("project", in.Project),
			zap.Int("evaluated", len(items)),
			zap.Int("expected", len(truths)))
	}

	byIndex := make(map[int]schemas.CandidateFinding, len(candidates))
	for _, c := range candidates {
		byIndex[c.Index] = c
	}

	return &schemas.ScoreReport{
		Project:    in.Project,
		RunID:      e.newRunID(),
		Timestamp:  e.now().UTC(),
		JudgeModel: e.model,
		Incomplete: incomplete,
		Metrics:    metrics,
		Records:    buildRecords(resolution, byIndex, falsePositives),
		Warnings:   warnings,
		Usage:      e.usage.Snapshot(),
	}, nil
}

// scoreTruth runs the configured number of judge iterations for one truth
// finding and aggregates them into a consensus. Iterations run sequentially
// inside the worker so the concurrency limit bounds simultaneous judge
// calls. A failed iteration counts as a no_match vote; context and
// configuration errors abort the whole truth finding.
func (e *Engine) scoreTruth(ctx context.Context, truth schemas.TruthVulnerability, candidates []schemas.CandidateFinding) (*ConsensusVerdict, error) {
	votes := make([]schemas.Verdict, 0, e.cfg.Iterations)
	for i := 0; i < e.cfg.Iterations; i++ {
		verdict, err := e.comparator.Compare(ctx, truth, candidates)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			var cfgErr *config.ConfigurationError
			if errors.As(err, &cfgErr) {
				return nil, err
			}
			e.logger.Warn("Vote iteration failed, counting as no_match",
				zap.String("finding_id", truth.FindingID),
				zap.Int("iteration", i),
				zap.Error(err))
			votes = append(votes, schemas.Verdict{
				Outcome:           schemas.OutcomeNoMatch,
				Explanation:       fmt.Sprintf("iteration failed: %v", err),
				SeverityFromTruth: truth.Severity,
			})
			continue
		}
		votes = append(votes, *verdict)
	}

	cv := Aggregate(votes)
	return &cv, nil
}
