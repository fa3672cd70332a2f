package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/app"
	"github.com/noah-isme/wfm-timesheet/pkg/config"
	"github.com/noah-isme/wfm-timesheet/pkg/logger"
)

var (
	cfg  *config.Config
	logr *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "timesheetctl",
	Short:         "Recalculate and inspect fiscal timesheets",
	Long:          `timesheetctl runs the timesheet divider against the configured database without going through the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logr, err = logger.New(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logr != nil {
			_ = logr.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dayTypesCmd)
	rootCmd.AddCommand(calendarCmd)
}

// openApp connects to storage; commands that only validate files never call it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	return app.New(cmd.Context(), cfg, logr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
