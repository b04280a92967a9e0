package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow    bool
		lines     int
		server    string
		component string
		runID     string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log output from the server or today's log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			bind := strings.TrimSpace(server)
			if bind == "" {
				bind = cfg.Server.Bind
			}
			client, err := logs.NewClient(bind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printed, err := logs.Stream(cmd.Context(), client, logging.DailyLogPath(cfg.Paths.LogDir, time.Now()),
				logs.Options{Lines: lines, Follow: follow, Component: component, RunID: runID},
				func(evt api.LogEvent) { fmt.Fprintln(out, logs.FormatEvent(evt)) },
				func(line string) {
					if !raw {
						line = logs.FormatLine(line)
					}
					fmt.Fprintln(out, line)
				},
			)
			if errors.Is(err, logs.ErrFiltersRequireServer) {
				return fmt.Errorf("--component and --run need a running `donghuasub serve` at %s", bind)
			}
			if err != nil {
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&server, "server", "", "Server address (defaults to server.bind)")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from this component")
	cmd.Flags().StringVar(&runID, "run", "", "Only show events for this run ID")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print log file lines without formatting")
	return cmd
}
