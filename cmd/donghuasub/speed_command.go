package main

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/config"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/fileutil"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/textutil"
)

func newSpeedCommand(ctx *commandContext) *cobra.Command {
	var factor float64
	var outputPath string

	cmd := &cobra.Command{
		Use:   "speed <file.srt>",
		Short: "Rescale all timings for video played back at a different speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
				return fmt.Errorf("--factor must be a positive number, got %v", factor)
			}
			if factor == 1 {
				return fmt.Errorf("--factor 1 leaves every timing unchanged")
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			raw, err := fileutil.ReadText(source)
			if err != nil {
				return fmt.Errorf("read %s: %w", source, err)
			}
			segments := subtitles.Parse(raw)
			if len(segments) == 0 {
				return fmt.Errorf("no subtitle blocks found in %s", source)
			}
			adjusted := subtitles.AdjustSpeed(segments, factor)
			name := textutil.GenerateFileName(filepath.Base(source), false, factor)
			if _, err := ctx.writeOutput(cmd, source, name, outputPath, subtitles.Serialize(adjusted)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rescaled %d segments by %v\n", len(adjusted), factor)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&factor, "factor", "f", 1, "Playback speed factor (1.25 means 25% faster)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: [Speed-x] name next to the source or in paths.output_dir)")
	_ = cmd.MarkFlagRequired("factor")
	return cmd
}
