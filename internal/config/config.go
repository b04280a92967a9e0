package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// LLM contains model connection settings shared by translation, title
// analysis, and the rewrite oracle.
type LLM struct {
	Provider         string `toml:"provider"`
	Model            string `toml:"model"`
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	Referer          string `toml:"referer"`
	Title            string `toml:"title"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryAttempts    int    `toml:"retry_attempts"`
	RetryBaseDelayMS int    `toml:"retry_base_delay_ms"`
}

// Optimizer contains readability thresholds and AI rewrite batching.
type Optimizer struct {
	IgnoreBelowCPS float64 `toml:"ignore_below_cps"`
	AIAboveCPS     float64 `toml:"ai_above_cps"`
	TargetCPS      float64 `toml:"target_cps"`
	SafeGapMS      int64   `toml:"safe_gap_ms"`
	BatchSize      int     `toml:"batch_size"`
	ContextWindow  int     `toml:"context_window"`
}

// Translation contains chunking settings for full-file translation.
type Translation struct {
	ChunkSize    int    `toml:"chunk_size"`
	ChunkDelayMS int    `toml:"chunk_delay_ms"`
	GlossaryPath string `toml:"glossary_path"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for donghuasub.
//
// Configuration sections by subsystem:
//   - Paths: ledger state, output files, and log files
//   - LLM: provider selection and credentials
//   - Optimizer: CPS tiers and AI batch sizing
//   - Translation: chunking and glossary
//   - Server: HTTP API bind address
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	LLM         LLM         `toml:"llm"`
	Optimizer   Optimizer   `toml:"optimizer"`
	Translation Translation `toml:"translation"`
	Server      Server      `toml:"server"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the expanded per-user config location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load reads the config at path, or searches the per-user and project
// locations when path is empty. A missing file is not an error: defaults are
// returned with exists=false. Paths in the result are absolute.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config %s: %w", resolved, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, describeDecodeError(err))
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// locate picks the config file. An explicit path is used as given; otherwise
// the per-user file wins over donghuasub.toml in the working directory.
func locate(path string) (string, bool, error) {
	var candidates []string
	if strings.TrimSpace(path) != "" {
		candidates = []string{path}
	} else {
		candidates = []string{defaultConfigPath, projectConfigName}
	}

	var first string
	for _, candidate := range candidates {
		expanded, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err == nil:
			if len(candidates) == 1 {
				return "", false, fmt.Errorf("config %s is a directory", expanded)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// describeDecodeError adds the line and column go-toml reports for syntax
// errors.
func describeDecodeError(err error) error {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Errorf("line %d column %d: %w", row, col, err)
	}
	return err
}

// ExpandPath resolves a leading "~" to the home directory and returns an
// absolute, cleaned path. Empty input stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// EnsureDirectories creates the state, log and output directories. Empty
// entries are skipped; without output_dir results go next to their source.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []struct{ key, path string }{
		{"paths.state_dir", c.Paths.StateDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.output_dir", c.Paths.OutputDir},
	} {
		if strings.TrimSpace(dir.path) == "" {
			continue
		}
		if err := os.MkdirAll(dir.path, 0o755); err != nil {
			return fmt.Errorf("%s: create %q: %w", dir.key, dir.path, err)
		}
	}
	return nil
}

// LedgerPath is the run history database inside state_dir.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, ledgerFileName)
}

// OutputPath places name in output_dir, or beside source when output_dir is
// unset.
func (c *Config) OutputPath(source, name string) string {
	dir := strings.TrimSpace(c.Paths.OutputDir)
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, name)
}

// CreateSample writes the commented sample config to path, creating parent
// directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the trimmed LLM settings handed to the provider factory.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		Timeout:        time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		RetryAttempts:  c.LLM.RetryAttempts,
		RetryBaseDelay: time.Duration(c.LLM.RetryBaseDelayMS) * time.Millisecond,
	}
}
