package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFixCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "fix <file.srt>",
		Short: "Extend end times of moderately fast segments without AI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cleanup, err := ctx.openSession(cmd.Context(), sessionOptions{record: true})
			if err != nil {
				return err
			}
			defer cleanup()
			source, _, err := loadFile(session, args[0])
			if err != nil {
				return err
			}
			report, err := session.FixLocal(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Local fix: %d applied, %d left unchanged\n", report.Applied, report.Skipped)

			name, content, err := session.Download()
			if err != nil {
				return err
			}
			_, err = ctx.writeOutput(cmd, source, name, outputPath, content)
			return err
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: tagged name next to the source or in paths.output_dir)")
	return cmd
}
