package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/config"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/fileutil"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/translation"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// stream is attached to the logger when set before the first logger call.
	stream     *logging.StreamHub
	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	return flagValue(c.configFlag)
}

// ensureLogger builds the process logger once. Console output goes to
// stderr and a JSON copy to the daily log file; files past retention are
// pruned on the way.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		sessionID := strings.SplitN(uuid.NewString(), "-", 2)[0]
		logger, err := logging.NewFromConfig(cfg, sessionID, c.stream)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		now := time.Now()
		logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logging.DailyLogPath(cfg.Paths.LogDir, now), now)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openLedger opens the run history store. Stale running rows from a crashed
// process are marked interrupted.
func (c *commandContext) openLedger(ctx context.Context) (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	if n, err := store.MarkInterrupted(ctx); err == nil && n > 0 {
		if logger, logErr := c.ensureLogger(); logErr == nil {
			logger.Info("marked stale runs as interrupted", logging.Int64("runs", n))
		}
	}
	return store, nil
}

// provider builds the configured AI backend with its retry policy.
func (c *commandContext) provider(ctx context.Context) (llm.Provider, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	settings := cfg.GetLLM()
	policy := llm.DefaultPolicy()
	policy.Attempts = settings.RetryAttempts
	if settings.RetryBaseDelay > 0 {
		policy.BaseDelay = settings.RetryBaseDelay
	}
	return llm.NewProvider(ctx, llm.Config{
		Provider:       settings.Provider,
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: int(settings.Timeout / time.Second),
		Retry:          policy,
		Logger:         logger,
	})
}

// translationService wires the provider to the glossary, chunking and title
// cache settings. cache may be nil.
func (c *commandContext) translationService(provider llm.Provider, cache translation.TitleCache) (*translation.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	glossary := translation.DefaultGlossary()
	if path := strings.TrimSpace(cfg.Translation.GlossaryPath); path != "" {
		glossary, err = translation.LoadGlossary(path)
		if err != nil {
			return nil, fmt.Errorf("load glossary: %w", err)
		}
	}
	opts := []translation.Option{
		translation.WithGlossary(glossary),
		translation.WithChunkSize(cfg.Translation.ChunkSize),
		translation.WithChunkDelay(time.Duration(cfg.Translation.ChunkDelayMS) * time.Millisecond),
		translation.WithLogger(logger),
	}
	if cache != nil {
		opts = append(opts, translation.WithTitleCache(cache))
	}
	return translation.NewService(provider, opts...), nil
}

func (c *commandContext) settings() workbench.Settings {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		return workbench.DefaultSettings()
	}
	return workbench.Settings{
		Thresholds: readability.Thresholds{
			IgnoreBelowCPS: cfg.Optimizer.IgnoreBelowCPS,
			AIAboveCPS:     cfg.Optimizer.AIAboveCPS,
			TargetCPS:      cfg.Optimizer.TargetCPS,
			SafeGapMS:      cfg.Optimizer.SafeGapMS,
		},
		BatchSize:     cfg.Optimizer.BatchSize,
		ContextWindow: cfg.Optimizer.ContextWindow,
	}
}

// sessionOptions selects what a command's session needs.
type sessionOptions struct {
	ai     bool
	record bool
}

// openSession builds a workbench session rooted at ctx. The returned cleanup
// closes the ledger.
func (c *commandContext) openSession(ctx context.Context, opts sessionOptions) (*workbench.Session, func(), error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	sessionOpts := []workbench.Option{workbench.WithLogger(logger)}

	var store *ledger.Store
	if opts.record {
		store, err = c.openLedger(ctx)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = store.Close() }
		sessionOpts = append(sessionOpts, workbench.WithRecorder(store))
	}
	if opts.ai {
		provider, err := c.provider(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		var cache translation.TitleCache
		if store != nil {
			cache = store
		}
		service, err := c.translationService(provider, cache)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sessionOpts = append(sessionOpts, workbench.WithService(service))
	}
	return workbench.NewSession(ctx, c.settings(), sessionOpts...), cleanup, nil
}

// loadFile reads an SRT file into session.
func loadFile(session *workbench.Session, path string) (string, workbench.LoadResult, error) {
	source, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return "", workbench.LoadResult{}, err
	}
	raw, err := fileutil.ReadText(source)
	if err != nil {
		return "", workbench.LoadResult{}, fmt.Errorf("read %s: %w", source, err)
	}
	result, err := session.Load(filepath.Base(source), raw)
	if err != nil {
		return "", workbench.LoadResult{}, err
	}
	return source, result, nil
}

// writeOutput stores content at override or, when empty, at the configured
// output location for name.
func (c *commandContext) writeOutput(cmd *cobra.Command, source, name, override, content string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	target := strings.TrimSpace(override)
	if target == "" {
		target = cfg.OutputPath(source, name)
	} else if target, err = config.ExpandPath(target); err != nil {
		return "", err
	}
	if err := fileutil.WriteFileLocked(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
	return target, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
