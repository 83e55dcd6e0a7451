// Command deepdive runs research queries from the command line.
//
// Usage:
//
//	deepdive run "Compare Raft and Paxos for metadata services"
//	deepdive history
//	deepdive show <run-id>
//
// Credentials come from the GEMINI_API_KEY and TAVILY_API_KEY environment
// variables; everything else from flags or an optional deepdive.yaml.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"

	"github.com/petrijr/deepdive"
	"github.com/petrijr/deepdive/internal/config"
	"github.com/petrijr/deepdive/internal/llm"
	"github.com/petrijr/deepdive/internal/webtool"
	"github.com/petrijr/deepdive/pkg/api"
	"github.com/petrijr/deepdive/pkg/report"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "deepdive",
	Short: "deepdive - self-correcting research reports from a single query",
	Long: `deepdive turns a natural-language query into a Markdown research report.

It classifies the query, plans sub-queries, researches them against a web
search API, critiques its own findings, and loops back for more research
until the findings suffice or the iteration ceiling is reached.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	maxIterations int
	outPath       string
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run one research query to completion and print the report",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var (
	filterStatus string
	filterIntent string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived runs",
	Args:  cobra.NoArgs,
	RunE:  listHistory,
}

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print the archived report for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "deepdive.yaml", "path to config file")

	runCmd.Flags().IntVarP(&maxIterations, "max-iterations", "n", -1, "loop ceiling (-1 uses the configured default)")
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")

	historyCmd.Flags().StringVar(&filterStatus, "status", "", "filter by status (SUCCEEDED, FAILED)")
	historyCmd.Flags().StringVar(&filterIntent, "intent", "", "filter by intent (comparison, deep_dive, survey, tutorial)")

	rootCmd.AddCommand(runCmd, historyCmd, showCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildEngine assembles an engine from the loaded configuration.
// The returned cleanup closes the history database, if any.
func buildEngine(ctx context.Context, cfg config.Config) (deepdive.Engine, func(), error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("%s is not set", config.EnvGeminiAPIKey)
	}
	if cfg.TavilyAPIKey == "" {
		return nil, nil, fmt.Errorf("%s is not set", config.EnvTavilyAPIKey)
	}

	gen, err := llm.NewGenAIClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("create model client: %w", err)
	}

	builder := deepdive.NewPipeline().
		Classifier(llm.NewClassifier(gen)).
		Planner(llm.NewPlanner(gen, cfg.MaxSubQueries)).
		Searcher(webtool.NewClient(cfg.TavilyAPIKey, webtool.WithMaxResults(cfg.MaxResultsPerQuery))).
		Critic(llm.NewCritic(gen)).
		Renderer(report.NewRegistry()).
		Policy(cfg.Policy()).
		Observer(deepdive.NewLoggingObserver(nil))

	if cfg.HistoryPath == "" {
		eng, err := builder.Build()
		return eng, func() {}, err
	}

	db, err := sql.Open("sqlite", cfg.HistoryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open history db: %w", err)
	}
	eng, err := builder.BuildSQLite(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return eng, func() { db.Close() }, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	lin, err := deepdive.Run(ctx, eng, deepdive.Request{
		Query:         query,
		MaxIterations: maxIterations,
	})
	if err != nil {
		if lin != nil && lin.State.FailReason != "" {
			logger.Error("run failed",
				zap.String("run_id", lin.ID),
				zap.String("reason", lin.State.FailReason))
		}
		return err
	}

	logger.Info("run succeeded",
		zap.String("run_id", lin.ID),
		zap.String("intent", string(lin.State.Intent)),
		zap.Int("iterations", lin.IterationsUsed),
		zap.Int("findings", len(lin.State.Findings)))

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(lin.State.Report), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", outPath)
		return nil
	}
	fmt.Println(lin.State.Report)
	return nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.HistoryPath == "" {
		return errors.New("no history_path configured; runs are not archived across processes")
	}

	db, err := sql.Open("sqlite", cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close()

	eng, err := historyOnlyEngine(db)
	if err != nil {
		return err
	}

	recs, err := eng.ListRuns(ctx, deepdive.RunFilter{
		Status: api.Status(strings.ToUpper(filterStatus)),
		Intent: api.Intent(strings.ToLower(filterIntent)),
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	for _, r := range recs {
		fmt.Printf("%s  %-9s  %-10s  iters=%d  findings=%d  %s\n",
			r.ID, r.Status, r.Intent, r.IterationsUsed, r.FindingCount, r.Query)
	}
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.HistoryPath == "" {
		return errors.New("no history_path configured; runs are not archived across processes")
	}

	db, err := sql.Open("sqlite", cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close()

	eng, err := historyOnlyEngine(db)
	if err != nil {
		return err
	}

	rec, err := eng.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	if rec.Status == deepdive.StatusFailed {
		fmt.Printf("Run %s failed: %s\n", rec.ID, rec.FailReason)
		return nil
	}
	fmt.Println(rec.Report)
	return nil
}

// historyOnlyEngine builds an engine good enough for reading archived
// runs. The collaborators never execute because no Run is issued, but
// the engine constructor requires them, so inert stubs fill the slots.
func historyOnlyEngine(db *sql.DB) (deepdive.Engine, error) {
	return deepdive.NewPipeline().
		Classifier(inertClassifier{}).
		Planner(inertPlanner{}).
		Searcher(inertSearcher{}).
		Critic(inertCritic{}).
		BuildSQLite(db)
}

type inertClassifier struct{}

func (inertClassifier) Classify(context.Context, string) (api.Intent, error) {
	return api.IntentUnclassified, errors.New("not configured")
}

type inertPlanner struct{}

func (inertPlanner) Plan(context.Context, string, api.Intent) ([]string, error) {
	return nil, errors.New("not configured")
}

type inertSearcher struct{}

func (inertSearcher) Search(context.Context, string) ([]api.SearchResult, error) {
	return nil, errors.New("not configured")
}

type inertCritic struct{}

func (inertCritic) Critique(context.Context, []api.Finding, string, api.Intent) (api.Critique, error) {
	return api.Critique{}, errors.New("not configured")
}
