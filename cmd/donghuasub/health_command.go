package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
)

const healthTimeout = 30 * time.Second

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured AI provider answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := ctx.provider(cmd.Context())
			if err != nil {
				return errors.New(llm.UserMessage(err))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provider: %s\nModel: %s\n", provider.Name(), provider.Model())

			probeCtx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
			defer cancel()
			started := time.Now()
			if err := llm.HealthCheck(probeCtx, provider); err != nil {
				return fmt.Errorf("provider check failed: %s (%w)", llm.UserMessage(err), err)
			}
			fmt.Fprintf(out, "Status: ok (%s)\n", time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
}
