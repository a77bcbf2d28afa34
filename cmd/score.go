package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scabench-org/scabench/api/schemas"
	"github.com/scabench-org/scabench/internal/config"
	"github.com/scabench-org/scabench/internal/dataset"
	"github.com/scabench-org/scabench/internal/judge"
	"github.com/scabench-org/scabench/internal/observability"
	"github.com/scabench-org/scabench/internal/scoring"
	"github.com/scabench-org/scabench/internal/store"
)

// scoreOptions collects the score command's flags.
type scoreOptions struct {
	benchmarkPath string
	resultsPath   string
	resultsDir    string
	project       string
	outputDir     string

	provider    string
	model       string
	iterations  int
	batchSize   int
	concurrency int
	timeout     time.Duration
}

// expandPaths resolves a leading ~ in the user supplied path flags.
func (o *scoreOptions) expandPaths() error {
	for _, p := range []*string{&o.benchmarkPath, &o.resultsPath, &o.resultsDir, &o.outputDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// applyOverrides copies explicitly set flags over the resolved configuration,
// so command-line values win over config file and environment.
func (o *scoreOptions) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Judge.Provider = config.JudgeProvider(o.provider)
	}
	if flags.Changed("model") {
		cfg.Judge.Model = o.model
	}
	if flags.Changed("iterations") {
		cfg.Scoring.Iterations = o.iterations
	}
	if flags.Changed("batch-size") {
		cfg.Scoring.BatchSize = o.batchSize
	}
	if flags.Changed("concurrency") {
		cfg.Scoring.Concurrency = o.concurrency
	}
	if flags.Changed("timeout") {
		cfg.Judge.RequestTimeout = o.timeout
	}
}

// newScoreCmd creates and configures the `score` command.
func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}

	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Scores tool findings against the benchmark ground truth",
		Long: `Loads benchmark ground truth and one or more findings files, matches every
expected vulnerability against the reported findings through repeated judge
passes, and writes one score report per project.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.resultsPath == "") == (opts.resultsDir == "") {
				return fmt.Errorf("exactly one of --results or --results-dir must be provided")
			}
			if err := opts.expandPaths(); err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			opts.applyOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runScore(ctx, logger, cfg, opts, cmd.OutOrStdout())
		},
	}

	scoreCmd.Flags().StringVar(&opts.benchmarkPath, "benchmark", "", "Path to the benchmark JSON file (required)")
	_ = scoreCmd.MarkFlagRequired("benchmark")
	scoreCmd.Flags().StringVar(&opts.resultsPath, "results", "", "Path to a single findings file")
	scoreCmd.Flags().StringVar(&opts.resultsDir, "results-dir", "", "Directory of findings files, one per project")
	scoreCmd.Flags().StringVar(&opts.project, "project", "", "Project ID override for --results, or filter for --results-dir")
	scoreCmd.Flags().StringVarP(&opts.outputDir, "output", "o", "scores", "Directory score reports are written to")

	scoreCmd.Flags().StringVar(&opts.provider, "provider", "", "Judge provider: openai, gemini, or lexical. (Overrides config/env)")
	scoreCmd.Flags().StringVar(&opts.model, "model", "", "Judge model name. (Overrides config/env)")
	scoreCmd.Flags().IntVar(&opts.iterations, "iterations", 0, "Judgment passes per truth finding. (Overrides config/env)")
	scoreCmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Candidates shown to the judge per call. (Overrides config/env)")
	scoreCmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "Concurrent truth evaluations. (Overrides config/env)")
	scoreCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Timeout per judge API call. (Overrides config/env)")

	return scoreCmd
}

// scoreTarget pairs one findings file with the project it is scored under.
type scoreTarget struct {
	Path    string
	Project string
}

// resolveTargets expands the flags into the list of findings files to score.
func resolveTargets(opts *scoreOptions) ([]scoreTarget, error) {
	if opts.resultsPath != "" {
		project := opts.project
		if project == "" {
			project = dataset.ProjectIDFromFilename(opts.resultsPath)
		}
		if project == "" {
			return nil, fmt.Errorf("cannot derive a project ID from %s; pass --project", opts.resultsPath)
		}
		return []scoreTarget{{Path: opts.resultsPath, Project: project}}, nil
	}

	files, err := dataset.DiscoverResults(opts.resultsDir)
	if err != nil {
		return nil, err
	}
	targets := make([]scoreTarget, 0, len(files))
	for _, f := range files {
		if opts.project != "" && f.ProjectID != opts.project {
			continue
		}
		targets = append(targets, scoreTarget{Path: f.Path, Project: f.ProjectID})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no result files in %s match project %q", opts.resultsDir, opts.project)
	}
	return targets, nil
}

// runScore contains the core, testable logic behind the score command.
func runScore(ctx context.Context, logger *zap.Logger, cfg *config.Config, opts *scoreOptions, out io.Writer) error {
	benchmark, err := dataset.LoadBenchmark(opts.benchmarkPath)
	if err != nil {
		return err
	}

	targets, err := resolveTargets(opts)
	if err != nil {
		return err
	}

	var runStore *store.Store
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		runStore, err = store.New(ctx, pool, logger)
		if err != nil {
			return err
		}
		if err := runStore.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	// One limiter for the whole invocation; every project and worker draws
	// from the same rate budget.
	limiter := judge.NewLimiter(cfg.Judge.RateLimit)

	var scored, skipped int
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}

		entry, ok := dataset.FindProject(benchmark, target.Project)
		if !ok {
			if opts.resultsPath != "" {
				return fmt.Errorf("project %q not found in benchmark %s", target.Project, opts.benchmarkPath)
			}
			logger.Warn("No benchmark entry for project, skipping",
				zap.String("project", target.Project),
				zap.String("path", target.Path),
			)
			skipped++
			continue
		}

		findings, err := dataset.LoadFindings(target.Path)
		if err != nil {
			return err
		}

		report, err := scoreProject(ctx, logger, cfg, limiter, target.Project, entry, findings)
		if err != nil {
			return err
		}

		outPath, err := dataset.WriteReport(opts.outputDir, report)
		if err != nil {
			return err
		}
		scored++

		if runStore != nil {
			// Persist even when the run was interrupted; the report carries
			// its incomplete flag.
			if err := runStore.SaveReport(context.WithoutCancel(ctx), report); err != nil {
				return err
			}
		}

		printSummary(out, report, outPath)
	}

	if ctx.Err() != nil {
		logger.Warn("Scoring aborted by signal",
			zap.Int("scored", scored),
			zap.Int("remaining", len(targets)-scored-skipped),
		)
		return fmt.Errorf("scoring aborted by user signal")
	}

	fmt.Fprintf(out, "\nScoring complete. %d project(s) scored, %d skipped.\n", scored, skipped)
	return nil
}

// scoreProject wires a fresh judge and engine for one project and runs the
// match. Usage counters are per project so each report carries its own totals.
func scoreProject(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	limiter *rate.Limiter,
	project string,
	entry *schemas.BenchmarkDocument,
	findings *schemas.FindingsDocument,
) (*schemas.ScoreReport, error) {
	usage := judge.NewUsageRecorder()
	client, err := judge.NewClient(ctx, cfg.Judge, cfg.Scoring, limiter, usage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize judge client: %w", err)
	}

	engine, err := scoring.NewEngine(client, cfg.Scoring, usage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scoring engine: %w", err)
	}

	return engine.Score(ctx, scoring.Input{
		Project:         project,
		Vulnerabilities: entry.Vulnerabilities,
		Findings:        findings.Findings,
	})
}

// printSummary writes the one-line console result for a scored project.
func printSummary(out io.Writer, report *schemas.ScoreReport, outPath string) {
	status := ""
	if report.Incomplete {
		status = " [incomplete]"
	}
	fmt.Fprintf(out, "%s%s: TP=%d FN=%d FP=%d detection=%.1f%% precision=%.1f%% f1=%.3f -> %s\n",
		report.Project, status,
		report.TruePositives, report.FalseNegatives, report.Metrics.FalsePositives,
		report.DetectionRate*100, report.Precision*100, report.F1Score,
		outPath,
	)
}
