package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent fix, optimize and translate runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []ledger.Run{}
				}
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					string(run.Kind),
					run.Source,
					run.Outcome,
					fmt.Sprintf("%d/%d", run.Processed, run.Total),
					fmt.Sprint(run.Tokens),
					formatRunDuration(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable("", []string{"Started", "Kind", "File", "Outcome", "Progress", "Tokens", "Duration"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func formatRunDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
