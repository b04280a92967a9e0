package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	for _, field := range []struct {
		key   string
		value *string
	}{
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"translation.glossary_path", &c.Translation.GlossaryPath},
	} {
		expanded, err := ExpandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, name := range apiKeyEnv(c.LLM.Provider, c.LLM.Model) {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryBaseDelayMS <= 0 {
		c.LLM.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	return nil
}

// apiKeyEnv lists the environment variables consulted for a provider, in
// priority order. Auto mode follows the same model-name heuristics the
// provider factory uses.
func apiKeyEnv(provider, model string) []string {
	if provider == "auto" {
		lower := strings.ToLower(model)
		switch {
		case strings.Contains(lower, "/"):
			provider = "openrouter"
		case strings.Contains(lower, "gpt"):
			provider = "openai"
		default:
			provider = "gemini"
		}
	}
	switch provider {
	case "openai":
		return []string{"OPENAI_API_KEY"}
	case "openrouter":
		return []string{"OPENROUTER_API_KEY"}
	default:
		return []string{"GEMINI_API_KEY", "API_KEY"}
	}
}

func (c *Config) normalizeTranslation() {
	if c.Translation.ChunkSize <= 0 {
		c.Translation.ChunkSize = defaultChunkSize
	}
	c.Translation.ChunkDelayMS = max(c.Translation.ChunkDelayMS, 0)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.RetentionDays = max(c.Logging.RetentionDays, 0)
}
