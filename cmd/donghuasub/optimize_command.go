package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "optimize <file.srt>",
		Short: "Apply local timing fixes, then shorten the fastest lines with AI",
		Long: "optimize runs the local timing fix and then sends every segment above the AI threshold " +
			"to the configured provider in small batches. Ctrl+C stops after the batch in flight and " +
			"still writes the partial result.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cleanup, err := ctx.openSession(cmd.Context(), sessionOptions{ai: true, record: true})
			if err != nil {
				return err
			}
			defer cleanup()
			source, _, err := loadFile(session, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report, err := session.FixLocal(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Local fix: %d applied, %d left unchanged\n", report.Applied, report.Skipped)

			if _, err := session.StartOptimize(); err != nil {
				return err
			}
			final := waitForRun(cmd, session, "optimize")
			fmt.Fprintf(out, "AI rewrite: %d of %d processed, %d applied, %d failed\n",
				final.Processed, final.Total, final.Applied, final.Failed)

			name, content, err := session.Download()
			if err != nil {
				return err
			}
			if _, err := ctx.writeOutput(cmd, source, name, outputPath, content); err != nil {
				return err
			}
			return runError("optimize", final)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: tagged name next to the source or in paths.output_dir)")
	return cmd
}

// runError turns a failed run into a command error. Canceled runs are not
// errors; their partial output has already been written.
func runError(label string, st workbench.RunStatus) error {
	if st.State == ledger.OutcomeFailed {
		return fmt.Errorf("%s failed: %s", label, st.Error)
	}
	return nil
}
