package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"citypulse/internal/config"
	"citypulse/pkg/logger"
)

var evaluateTask string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation tick and exit",
	Long: "Runs a single evaluation tick against the live city data and exits.\n" +
		"Useful for cron-style deployments and for verifying trigger configuration.",
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().
		StringVar(&evaluateTask, "task", "realtime", "task to run (realtime, cultural, all)")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	eng, st, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()

	switch evaluateTask {
	case "realtime":
		return eng.RunRealtime(ctx)
	case "cultural":
		return eng.RunCultural(ctx)
	case "all":
		if err := eng.RunRealtime(ctx); err != nil {
			return err
		}
		return eng.RunCultural(ctx)
	default:
		return fmt.Errorf("unknown task %q (want realtime, cultural, or all)", evaluateTask)
	}
}
