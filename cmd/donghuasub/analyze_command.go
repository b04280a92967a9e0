package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var showLocal bool

	cmd := &cobra.Command{
		Use:   "analyze <file.srt>",
		Short: "Classify every segment by reading speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cleanup, err := ctx.openSession(cmd.Context(), sessionOptions{})
			if err != nil {
				return err
			}
			defer cleanup()
			if _, _, err := loadFile(session, args[0]); err != nil {
				return err
			}
			analysis, err := session.Analyze()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, analysis)
			}

			out := cmd.OutOrStdout()
			thresholds := ctx.settings().Thresholds
			fmt.Fprintln(out, renderTable("Reading speed", []string{"Tier", "Segments"}, [][]string{
				{"Total", fmt.Sprint(analysis.TotalSegments)},
				{fmt.Sprintf("Readable (< %.0f CPS)", thresholds.IgnoreBelowCPS), fmt.Sprint(analysis.IgnoredCount)},
				{fmt.Sprintf("Local fix (%.0f-%.0f CPS)", thresholds.IgnoreBelowCPS, thresholds.AIAboveCPS), fmt.Sprint(analysis.LocalFixCount)},
				{fmt.Sprintf("AI rewrite (> %.0f CPS)", thresholds.AIAboveCPS), fmt.Sprint(analysis.AIRequiredCount)},
			}, []columnAlignment{alignLeft, alignRight}))

			if showLocal && len(analysis.LocalSuggestions) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, suggestionTable("Local fix", analysis.LocalSuggestions))
			}
			if len(analysis.AIRequiredSuggestions) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, suggestionTable("AI rewrite required", analysis.AIRequiredSuggestions))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	cmd.Flags().BoolVar(&showLocal, "local", false, "Also list segments the local fix can handle")
	return cmd
}

func suggestionTable(title string, suggestions []readability.Suggestion) string {
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{
			s.SegmentIndex,
			fmt.Sprintf("%.1f", s.CPS),
			fmt.Sprint(s.CharCount),
			fmt.Sprintf("%.2fs", s.DurationSeconds),
			s.BeforeText,
		})
	}
	return renderTable(title, []string{"#", "CPS", "Chars", "Duration", "Text"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft})
}
