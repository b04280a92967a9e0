package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Missing API keys are not an
// error here; commands that need a model report them when they build one.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateOptimizer(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "auto", "gemini", "openai", "openrouter":
	default:
		return fmt.Errorf("llm.provider must be one of auto, gemini, openai, openrouter (got %q)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.RetryAttempts < 1 {
		return errors.New("llm.retry_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateOptimizer() error {
	o := c.Optimizer
	if o.IgnoreBelowCPS <= 0 {
		return errors.New("optimizer.ignore_below_cps must be positive")
	}
	if o.AIAboveCPS <= o.IgnoreBelowCPS {
		return errors.New("optimizer.ai_above_cps must be greater than optimizer.ignore_below_cps")
	}
	if o.TargetCPS <= 0 {
		return errors.New("optimizer.target_cps must be positive")
	}
	if o.SafeGapMS < 0 {
		return errors.New("optimizer.safe_gap_ms must be non-negative")
	}
	if o.BatchSize < 1 {
		return errors.New("optimizer.batch_size must be at least 1")
	}
	if o.ContextWindow < 0 {
		return errors.New("optimizer.context_window must be non-negative")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.ChunkSize < 1 {
		return errors.New("translation.chunk_size must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
