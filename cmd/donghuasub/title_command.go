package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

func newTitleCommand(ctx *commandContext) *cobra.Command {
	var copyResult bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "title <chinese title>",
		Short: "Suggest a Vietnamese title, genres and translation style for a show",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cleanup, err := ctx.openSession(cmd.Context(), sessionOptions{ai: true, record: true})
			if err != nil {
				return err
			}
			defer cleanup()

			analysis, err := session.AnalyzeTitle(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if copyResult {
				if err := clipboard.WriteAll(analysis.TranslatedTitle); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warn: copy to clipboard failed: %v\n", err)
				}
			}
			if asJSON {
				return writeJSON(cmd, analysis)
			}

			rows := [][]string{
				{"Original", analysis.OriginalTitle},
				{"Vietnamese", analysis.TranslatedTitle},
			}
			if len(analysis.MainGenres) > 0 {
				rows = append(rows, []string{"Genres", strings.Join(analysis.MainGenres, ", ")})
			}
			if analysis.Tone != "" {
				rows = append(rows, []string{"Tone", analysis.Tone})
			}
			if analysis.RecommendedStyle != "" {
				rows = append(rows, []string{"Style", analysis.RecommendedStyle})
			}
			if analysis.Summary != "" {
				rows = append(rows, []string{"Summary", analysis.Summary})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable("", []string{"Field", "Value"}, rows, nil))
			if copyResult {
				fmt.Fprintln(out, "Vietnamese title copied to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyResult, "copy", false, "Copy the Vietnamese title to the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}
