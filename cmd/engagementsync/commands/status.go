package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"EngagementSync/internal/usecase"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows snapshot freshness and engagement totals without fetching anything.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, _, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		statuses, err := application.Status(cmd.Context())
		if err != nil {
			return err
		}
		return writeStatus(cmd.OutOrStdout(), statuses)
	},
}

func writeStatus(w io.Writer, statuses []usecase.SourceStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tKIND\tVIA\tGENERATED\tNEXT ELIGIBLE\tRECORDS\tESTIMATED\tDEGRADED\tTOTALS")
	for _, st := range statuses {
		next := formatStamp(st.NextEligibleAt)
		if st.Eligible {
			next = "now"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			st.Source, st.Kind, orDash(st.Label), formatStamp(st.GeneratedAt), next,
			st.Records, st.Estimated, st.Degraded, formatTotals(st.Totals))
	}
	return tw.Flush()
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTotals(totals map[string]int64) string {
	if len(totals) == 0 {
		return "-"
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, totals[name]))
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
