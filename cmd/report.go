package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/config"
	"github.com/scabench-org/scabench/internal/dataset"
	"github.com/scabench-org/scabench/internal/observability"
	"github.com/scabench-org/scabench/internal/store"
)

// runStore is the slice of the store the report command reads from.
type runStore interface {
	GetRunSummaries(ctx context.Context, project string, limit int) ([]store.RunSummary, error)
	GetMatchesByRunID(ctx context.Context, runID string) ([]schemas.MatchRecord, error)
}

// storeProvider abstracts store construction so tests can inject a mock
// instead of a live database connection.
type storeProvider interface {
	// Create initializes a runStore and returns it with a cleanup function
	// that releases the underlying connection pool.
	Create(ctx context.Context, cfg *config.Config) (runStore, func(), error)
}

// defaultStoreProvider is the production storeProvider backed by PostgreSQL.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to the configured database and wraps it in a store.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (runStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (SCABENCH_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider) *cobra.Command {
	var runID string
	var project string
	var scoresDir string
	var limit int

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Browse scoring runs persisted to the database or written to disk",
		Long: `Lists scoring runs previously saved to the database, newest first, or
prints the full match records of a single run as JSON. With --scores-dir the
summaries are built from score files on disk instead and no database is
needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			if scoresDir != "" {
				expanded, err := homedir.Expand(scoresDir)
				if err != nil {
					return fmt.Errorf("failed to expand path %q: %w", scoresDir, err)
				}
				scoresDir = expanded
			}

			return runReport(ctx, logger, cfg, provider, reportOptions{
				runID:     runID,
				project:   project,
				scoresDir: scoresDir,
				limit:     limit,
			}, cmd.OutOrStdout())
		},
	}

	reportCmd.Flags().StringVar(&runID, "run-id", "", "Print the match records of this run")
	reportCmd.Flags().StringVar(&project, "project", "", "Only list runs for this project")
	reportCmd.Flags().StringVar(&scoresDir, "scores-dir", "", "Summarize score files from this directory instead of the database")
	reportCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return reportCmd
}

// reportOptions collects the report command's flags.
type reportOptions struct {
	runID     string
	project   string
	scoresDir string
	limit     int
}

// runReport contains the core, testable logic behind the report command.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	provider storeProvider,
	opts reportOptions,
	out io.Writer,
) error {
	if opts.scoresDir != "" {
		if opts.runID != "" {
			return fmt.Errorf("--run-id reads from the database and cannot be combined with --scores-dir")
		}
		return reportFromScoreFiles(logger, opts, out)
	}

	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if opts.runID != "" {
		records, err := storeService.GetMatchesByRunID(ctx, opts.runID)
		if err != nil {
			return err
		}
		logger.Info("Retrieved match records", zap.String("run_id", opts.runID), zap.Int("count", len(records)))
		return printJSON(out, records)
	}

	summaries, err := storeService.GetRunSummaries(ctx, opts.project, opts.limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No scoring runs recorded.")
		return nil
	}
	return printJSON(out, summaries)
}

// reportFromScoreFiles rebuilds run summaries from score reports on disk.
// Files that fail to parse are skipped with a warning so one corrupt report
// cannot hide the rest.
func reportFromScoreFiles(logger *zap.Logger, opts reportOptions, out io.Writer) error {
	paths, err := dataset.DiscoverScores(opts.scoresDir)
	if err != nil {
		return err
	}

	summaries := make([]store.RunSummary, 0, len(paths))
	for _, path := range paths {
		report, err := dataset.LoadScoreReport(path)
		if err != nil {
			logger.Warn("Skipping unreadable score file", zap.String("path", path), zap.Error(err))
			continue
		}
		if opts.project != "" && report.Project != opts.project {
			continue
		}
		summaries = append(summaries, store.RunSummary{
			RunID:      report.RunID,
			Project:    report.Project,
			JudgeModel: report.JudgeModel,
			Timestamp:  report.Timestamp,
			Incomplete: report.Incomplete,
			Metrics:    report.Metrics,
			Usage:      report.Usage,
		})
		if opts.limit > 0 && len(summaries) == opts.limit {
			break
		}
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No matching score files.")
		return nil
	}
	return printJSON(out, summaries)
}

// printJSON pretty-prints v for both humans and downstream tooling.
func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
