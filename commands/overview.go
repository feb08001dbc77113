package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func addOverview(topLevel *cobra.Command, o *options) {
	days := 0

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show grant statistics for recent days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days == 0 {
				days = o.cfg.AnalyticsDays
			}
			ov, err := o.client().AnalyticsOverview(cmd.Context(), days)
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n\n", bold.Sprintf("Last %d days", days))

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow("Grants", ov.TotalGrants)
			tbl.AddRow("Open", ov.OpenGrants)
			tbl.AddRow("Nonprofit", ov.NonprofitGrants)
			tbl.AddRow("Sent", ov.SentToN8n)
			tbl.AddRow("Total budget", fmt.Sprintf("%.0f", ov.TotalBudget))
			tbl.AddRow("Avg confidence", fmt.Sprintf("%.2f", ov.AvgConfidence))
			_, _ = fmt.Fprintln(out, tbl)

			if len(ov.GrantsBySource) == 0 {
				return nil
			}
			_, _ = fmt.Fprintln(out)
			src := uitable.New()
			src.Separator = "  "
			src.AddRow(bold.Sprint("Source"), bold.Sprint("Grants"), bold.Sprint("Budget"), bold.Sprint("Open"))
			for _, s := range ov.GrantsBySource {
				src.AddRow(s.Source, s.Count, fmt.Sprintf("%.0f", s.TotalBudget), s.OpenCount)
			}
			src.RightAlign(1)
			_, _ = fmt.Fprintln(out, src)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Window in days, 1-365 (default from config).")

	topLevel.AddCommand(cmd)
}
