package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

const streamCapacity = 4096

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the subtitle workbench over HTTP",
		Long: "serve starts the HTTP API used by the browser UI. Without a working AI provider the " +
			"local analysis and fix endpoints still work; optimize and translate answer 503.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			hub := logging.NewStreamHub(streamCapacity)
			ctx.stream = hub
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openLedger(signalCtx)
			if err != nil {
				return err
			}
			defer store.Close()

			sessionOpts := []workbench.Option{workbench.WithLogger(logger), workbench.WithRecorder(store)}
			var provider llm.Provider
			if p, err := ctx.provider(signalCtx); err != nil {
				logging.WarnWithContext(logger, "AI provider unavailable; serving local features only", "provider_unavailable",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, llm.UserMessage(err)),
					logging.String(logging.FieldImpact, "optimize, translate and title requests will fail"),
				)
			} else {
				service, err := ctx.translationService(p, store)
				if err != nil {
					return err
				}
				provider = p
				sessionOpts = append(sessionOpts, workbench.WithService(service))
			}
			session := workbench.NewSession(signalCtx, ctx.settings(), sessionOpts...)

			if bind = strings.TrimSpace(bind); bind == "" {
				bind = cfg.Server.Bind
			}
			server, err := api.New(api.Options{
				Bind:     bind,
				Session:  session,
				Provider: provider,
				History:  store,
				Hub:      hub,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			if err := server.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", server.Addr())

			<-signalCtx.Done()
			server.Stop()
			logger.Info("donghuasub server shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default: server.bind)")
	return cmd
}
