package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "translate <file.srt>",
		Short: "Translate Chinese subtitles to Vietnamese",
		Long: "translate analyzes the show title once, then translates every segment that still holds " +
			"Chinese text in chunks. Segments already in Vietnamese are kept, so a [Partial] file resumes " +
			"where it stopped. Ctrl+C stops between chunks and writes the partial file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cleanup, err := ctx.openSession(cmd.Context(), sessionOptions{ai: true, record: true})
			if err != nil {
				return err
			}
			defer cleanup()
			source, loaded, err := loadFile(session, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if loaded.Resumed > 0 {
				fmt.Fprintf(out, "Resuming: %d of %d segments already translated\n", loaded.Resumed, loaded.Segments)
			}

			started, err := session.StartTranslate(title)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Title: %s\n", started.Title)
			final := waitForRun(cmd, session, "translate")
			if final.TranslatedTitle != "" {
				fmt.Fprintf(out, "Vietnamese title: %s\n", final.TranslatedTitle)
			}
			fmt.Fprintf(out, "Translated %d of %d segments (%d tokens)\n", final.Processed, final.Total, final.Tokens)

			name, content, err := session.Download()
			if err != nil {
				return err
			}
			if _, err := ctx.writeOutput(cmd, source, name, outputPath, content); err != nil {
				return err
			}
			return runError("translate", final)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Show title (default: Chinese title guessed from the file name)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: tagged name next to the source or in paths.output_dir)")
	return cmd
}
