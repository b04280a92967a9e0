package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the donghuasub config file",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample config",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			switch _, err := os.Stat(target); {
			case err == nil && !overwrite:
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("check %s: %w", target, err)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\nNext: set llm.api_key or export GEMINI_API_KEY, then run `donghuasub config validate`.\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/donghuasub/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget resolves the destination for config init.
func initTarget(flagValue string) (string, error) {
	if flagValue = strings.TrimSpace(flagValue); flagValue == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flagValue)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the config, create its directories and show the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			source := path
			if !exists {
				source += " (not found, defaults used)"
			}
			llm := cfg.GetLLM()
			rows := [][]string{
				{"config", source},
				{"paths.state_dir", cfg.Paths.StateDir},
				{"paths.output_dir", orDefault(cfg.Paths.OutputDir, "next to input")},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"llm.provider", llm.Provider},
				{"llm.model", llm.Model},
				{"optimizer.ai_above_cps", strconv.FormatFloat(cfg.Optimizer.AIAboveCPS, 'f', -1, 64)},
				{"translation.chunk_size", strconv.Itoa(cfg.Translation.ChunkSize)},
				{"server.bind", cfg.Server.Bind},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable("Effective settings", []string{"Key", "Value"}, rows, nil))

			keyState := "set"
			if llm.APIKey == "" {
				keyState = "missing (optimize and translate will not run)"
			}
			fmt.Fprintf(out, "AI API key: %s\nConfiguration valid\n", keyState)
			return nil
		},
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
