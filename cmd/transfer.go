package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"db-transfer/internal/engine"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	batchSize  int
	workers    int
	dryRun     bool
	noProgress bool
	tables     []string
)

var transferCmd = &cobra.Command{
	Use:   "transfer [source:table ...]",
	Short: "Copy source tables into ClickHouse",
	Long: `Copy the selected tables, or every table of every active source, into
ClickHouse as {source}_{table}. Tables with a single-column primary key are
copied incrementally past the destination's highest key, others are
truncated and copied in full.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		selection, err := resolveSelection(args, tables, cfg.Settings.Tables)
		if err != nil {
			return &ExitError{Code: ExitPrecondition, Err: err}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registry, err := engine.Connect(ctx, cfg.SourceSpecs(), cfg.Destination, cfg.Settings.ConnectRetries, logger)
		if err != nil {
			return &ExitError{Code: ExitPrecondition, Err: err}
		}

		out := cmd.OutOrStdout()
		progress := newProgressReporter(out, !noProgress && !dryRun, logger)
		orchestrator := engine.NewOrchestrator(registry, engine.Options{
			BatchSize:  int64(cfg.Settings.BatchSize),
			Workers:    cfg.Settings.Workers,
			OnProgress: progress.Update,
		}, logger)

		if dryRun {
			defer orchestrator.Close()
			logger.Info("dry-run: no data will be written")
			printPlans(out, orchestrator.Preview(ctx, selection))
			return nil
		}

		logger.Info("starting transfer",
			zap.Int("sources", len(registry.Sources())),
			zap.Int("batch_size", cfg.Settings.BatchSize),
			zap.Int("workers", cfg.Settings.Workers))

		progress.Start()
		summary, runErr := orchestrator.Run(ctx, selection)
		progress.Stop()

		printSummary(out, summary)

		if runErr != nil {
			return &ExitError{Code: ExitTableFailure, Err: fmt.Errorf("transfer interrupted: %w", runErr)}
		}
		if summary.Failed > 0 {
			return &ExitError{Code: ExitTableFailure, Err: fmt.Errorf("%d of %d tables failed", summary.Failed, summary.Attempted)}
		}
		return nil
	},
}

// resolveSelection applies Args/Flag > Config > All precedence. An empty
// result selects every table of every active source.
func resolveSelection(args, flagTables, configTables []string) ([]engine.TableRef, error) {
	items := append(append([]string{}, args...), flagTables...)
	if len(items) == 0 {
		items = configTables
	}
	return engine.ParseSelection(items)
}

func init() {
	RootCmd.AddCommand(transferCmd)

	transferCmd.Flags().StringSliceVarP(&tables, "tables", "t", []string{}, "Tables to transfer as source:table (comma-separated)")
	transferCmd.Flags().IntVar(&batchSize, "batch-size", engine.DefaultBatchSize, "Rows per extract/load batch (overrides config)")
	transferCmd.Flags().IntVar(&workers, "workers", 1, "Tables copied concurrently (overrides config)")
	transferCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the transfer without writing to ClickHouse")
	transferCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Log progress lines instead of drawing bars")

	// Flag > Config > Default
	viper.BindPFlag("settings.batch_size", transferCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("settings.workers", transferCmd.Flags().Lookup("workers"))
}
