// Package store persists scoring runs and their match records in
// PostgreSQL. Persistence is optional: the scoring pipeline is file-based
// and the store only comes into play when a database is configured.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// Store provides the PostgreSQL implementation of run persistence.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS scoring_runs (
    id              TEXT PRIMARY KEY,
    project         TEXT NOT NULL,
    judge_model     TEXT NOT NULL,
    started_at      TIMESTAMPTZ NOT NULL,
    incomplete      BOOLEAN NOT NULL DEFAULT FALSE,
    total_expected  INTEGER NOT NULL,
    total_found     INTEGER NOT NULL,
    true_positives  INTEGER NOT NULL,
    partial_matches INTEGER NOT NULL,
    false_negatives INTEGER NOT NULL,
    false_positives INTEGER NOT NULL,
    detection_rate  DOUBLE PRECISION NOT NULL,
    precision       DOUBLE PRECISION NOT NULL,
    f1_score        DOUBLE PRECISION NOT NULL,
    by_severity     JSONB NOT NULL DEFAULT '{}',
    warnings        JSONB NOT NULL DEFAULT '[]',
    judge_usage     JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS match_records (
    run_id                TEXT NOT NULL REFERENCES scoring_runs(id) ON DELETE CASCADE,
    position              INTEGER NOT NULL,
    is_match              BOOLEAN NOT NULL,
    is_partial_match      BOOLEAN NOT NULL,
    is_fp                 BOOLEAN NOT NULL,
    explanation           TEXT NOT NULL,
    candidate_severity    TEXT NOT NULL,
    truth_severity        TEXT NOT NULL,
    candidate_index       INTEGER,
    candidate_description TEXT,
    PRIMARY KEY (run_id, position)
);
`

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

var matchRecordColumns = []string{
	"run_id", "position", "is_match", "is_partial_match", "is_fp",
	"explanation", "candidate_severity", "truth_severity",
	"candidate_index", "candidate_description",
}

// SaveReport writes one scoring run and its match records in a single
// transaction.
func (s *Store) SaveReport(ctx context.Context, report *schemas.ScoreReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed; that is the
		// normal path, not a failure.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if err := s.insertRun(ctx, tx, report); err != nil {
		return err
	}
	if len(report.Records) > 0 {
		if err := s.copyRecords(ctx, tx, report.RunID, report.Records); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) insertRun(ctx context.Context, tx pgx.Tx, report *schemas.ScoreReport) error {
	bySeverity, err := json.Marshal(report.BySeverity)
	if err != nil {
		return fmt.Errorf("failed to encode severity breakdown: %w", err)
	}
	warnings, err := json.Marshal(report.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}
	usage, err := json.Marshal(report.Usage)
	if err != nil {
		return fmt.Errorf("failed to encode judge usage: %w", err)
	}

	query := `
        INSERT INTO scoring_runs (
            id, project, judge_model, started_at, incomplete,
            total_expected, total_found, true_positives, partial_matches,
            false_negatives, false_positives, detection_rate, precision, f1_score,
            by_severity, warnings, judge_usage
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
    `
	_, err = tx.Exec(ctx, query,
		report.RunID, report.Project, report.JudgeModel, report.Timestamp.UTC(), report.Incomplete,
		report.TotalExpected, report.TotalFound, report.TruePositives, report.PartialMatches,
		report.FalseNegatives, report.Metrics.FalsePositives, report.DetectionRate, report.Precision, report.F1Score,
		bySeverity, warnings, usage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scoring run: %w", err)
	}
	return nil
}

func (s *Store) copyRecords(ctx context.Context, tx pgx.Tx, runID string, records []schemas.MatchRecord) error {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{
			runID, i, r.IsMatch, r.IsPartialMatch, r.IsFP,
			r.Explanation, string(r.CandidateSeverity), string(r.TruthSeverity),
			r.CandidateIndex, r.CandidateDescription,
		}
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"match_records"},
		matchRecordColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy match records: %w", err)
	}
	if int(copyCount) != len(records) {
		return fmt.Errorf("mismatch in copied match record count: expected %d, got %d", len(records), copyCount)
	}
	return nil
}

// RunSummary is one persisted scoring run without its match records.
type RunSummary struct {
	RunID      string             `json:"run_id"`
	Project    string             `json:"project"`
	JudgeModel string             `json:"judge_model"`
	Timestamp  time.Time          `json:"timestamp"`
	Incomplete bool               `json:"incomplete"`
	Metrics    schemas.Metrics    `json:"metrics"`
	Usage      schemas.JudgeUsage `json:"judge_usage"`
}

// GetRunSummaries returns the most recent runs, newest first. An empty
// project matches every project.
func (s *Store) GetRunSummaries(ctx context.Context, project string, limit int) ([]RunSummary, error) {
	query := `
        SELECT id, project, judge_model, started_at, incomplete,
               total_expected, total_found, true_positives, partial_matches,
               false_negatives, false_positives, detection_rate, precision, f1_score,
               by_severity, judge_usage
        FROM scoring_runs
        WHERE $1 = '' OR project = $1
        ORDER BY started_at DESC
        LIMIT $2;
    `
	rows, err := s.pool.Query(ctx, query, project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var sum RunSummary
		var bySeverity, usage []byte

		err := rows.Scan(
			&sum.RunID, &sum.Project, &sum.JudgeModel, &sum.Timestamp, &sum.Incomplete,
			&sum.Metrics.TotalExpected, &sum.Metrics.TotalFound, &sum.Metrics.TruePositives, &sum.Metrics.PartialMatches,
			&sum.Metrics.FalseNegatives, &sum.Metrics.FalsePositives, &sum.Metrics.DetectionRate, &sum.Metrics.Precision, &sum.Metrics.F1Score,
			&bySeverity, &usage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring run row: %w", err)
		}

		if len(bySeverity) > 0 {
			if err := json.Unmarshal(bySeverity, &sum.Metrics.BySeverity); err != nil {
				return nil, fmt.Errorf("failed to decode severity breakdown for run %s: %w", sum.RunID, err)
			}
		}
		if len(usage) > 0 {
			if err := json.Unmarshal(usage, &sum.Usage); err != nil {
				return nil, fmt.Errorf("failed to decode judge usage for run %s: %w", sum.RunID, err)
			}
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return summaries, nil
}

// GetMatchesByRunID returns a run's match records in their persisted order.
func (s *Store) GetMatchesByRunID(ctx context.Context, runID string) ([]schemas.MatchRecord, error) {
	query := `
        SELECT is_match, is_partial_match, is_fp, explanation,
               candidate_severity, truth_severity, candidate_index, candidate_description
        FROM match_records
        WHERE run_id = $1
        ORDER BY position ASC;
    `
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match records: %w", err)
	}
	defer rows.Close()

	var records []schemas.MatchRecord
	for rows.Next() {
		var rec schemas.MatchRecord
		var candidateSeverity, truthSeverity string

		err := rows.Scan(
			&rec.IsMatch, &rec.IsPartialMatch, &rec.IsFP, &rec.Explanation,
			&candidateSeverity, &truthSeverity, &rec.CandidateIndex, &rec.CandidateDescription,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match record row: %w", err)
		}

		rec.CandidateSeverity = schemas.Severity(candidateSeverity)
		rec.TruthSeverity = schemas.Severity(truthSeverity)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return records, nil
}
