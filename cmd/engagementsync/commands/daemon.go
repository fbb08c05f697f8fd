package commands

import (
	"github.com/spf13/cobra"
)

var daemonRunOnStart bool

func init() {
	daemonCmd.Flags().BoolVar(&daemonRunOnStart, "run-on-start", true, "Run a gated cycle immediately instead of waiting for the first tick.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Runs gated cycles on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, logger, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Daemon(cmd.Context(), daemonRunOnStart); err != nil {
			logger.Error("daemon stopped", "error", err)
			return err
		}
		return nil
	},
}
