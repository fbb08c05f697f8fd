package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"EngagementSync/internal/usecase"
)

var runForce bool

func init() {
	runCmd.Flags().BoolVarP(&runForce, "force", "f", false, "Synchronize every source even if its minimum interval has not elapsed.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--force]",
	Short: "Runs one synchronization cycle and exits with 0 (success or skipped), 2 (degraded) or 1 (failure).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, _, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		report := application.Run(cmd.Context(), runForce)
		fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatReport(report))
		exitCode = report.Status.ExitCode()
		return nil
	},
}
