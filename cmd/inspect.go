package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"db-transfer/internal/engine"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [source:table ...]",
	Short: "Show column mappings and the sync decision of each table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		selection, err := resolveSelection(args, nil, cfg.Settings.Tables)
		if err != nil {
			return &ExitError{Code: ExitPrecondition, Err: err}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registry, err := engine.Connect(ctx, cfg.SourceSpecs(), cfg.Destination, cfg.Settings.ConnectRetries, logger)
		if err != nil {
			return &ExitError{Code: ExitPrecondition, Err: err}
		}
		orchestrator := engine.NewOrchestrator(registry, engine.Options{}, logger)
		defer orchestrator.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, plan := range orchestrator.Preview(ctx, selection) {
			fmt.Fprintf(out, "\n🔎 %s\n", plan.Ref)
			if plan.Err != nil {
				failed++
				fmt.Fprintf(out, "    └ Error: %s\n", plan.Err)
				continue
			}
			printColumns(out, plan.Table)
			fmt.Fprintf(out, "Destination: %s\n", plan.Table.DestinationName())
			fmt.Fprintf(out, "Decision:    %s", plan.Decision.Mode)
			if plan.Decision.Truncate {
				fmt.Fprint(out, " (truncate first)")
			}
			if pred := plan.Decision.PredicateText(); pred != "" {
				fmt.Fprintf(out, " WHERE %s", pred)
			}
			fmt.Fprintf(out, " - %s\n", plan.Decision.Reason)
		}

		if failed > 0 {
			return &ExitError{Code: ExitTableFailure, Err: fmt.Errorf("%d tables could not be inspected", failed)}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}
