package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "donghuasub", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "donghuasub") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.LLM.APIKey != "gem-key" {
		t.Fatalf("expected key from GEMINI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Optimizer.AIAboveCPS != 40 || cfg.Optimizer.IgnoreBelowCPS != 20 {
		t.Fatalf("unexpected optimizer thresholds: %+v", cfg.Optimizer)
	}
	if cfg.Translation.ChunkSize != 8 || cfg.Translation.ChunkDelayMS != 600 {
		t.Fatalf("unexpected translation defaults: %+v", cfg.Translation)
	}
	if !strings.HasSuffix(cfg.LedgerPath(), "donghuasub.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-env")
	configPath := filepath.Join(t.TempDir(), "donghuasub.toml")

	type payload struct {
		LLM struct {
			Model string `toml:"model"`
		} `toml:"llm"`
		Optimizer struct {
			BatchSize int `toml:"batch_size"`
		} `toml:"optimizer"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.LLM.Model = "gpt-4o-mini"
	custom.Optimizer.BatchSize = 3
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Optimizer.BatchSize != 3 {
		t.Fatalf("expected batch size 3, got %d", cfg.Optimizer.BatchSize)
	}
	if cfg.Optimizer.ContextWindow != 2 {
		t.Fatalf("expected default context window, got %d", cfg.Optimizer.ContextWindow)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("expected OPENAI_API_KEY fallback for gpt model, got %q", cfg.LLM.APIKey)
	}
	llm := cfg.GetLLM()
	if llm.Timeout.Seconds() != 60 || llm.RetryAttempts != 3 {
		t.Fatalf("unexpected llm settings: %+v", llm)
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Optimizer.AIAboveCPS = 15
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "optimizer.ai_above_cps") {
		t.Fatalf("expected ai_above_cps error, got %v", err)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "claude"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "llm.provider") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Server.Bind != config.Default().Server.Bind {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
}

func TestOutputPath(t *testing.T) {
	cfg := config.Default()
	if got := cfg.OutputPath("/subs/ep1.srt", "ep1 [Translated].srt"); got != filepath.Join("/subs", "ep1 [Translated].srt") {
		t.Fatalf("unexpected sibling path: %q", got)
	}
	cfg.Paths.OutputDir = "/out"
	if got := cfg.OutputPath("/subs/ep1.srt", "x.srt"); got != filepath.Join("/out", "x.srt") {
		t.Fatalf("unexpected output dir path: %q", got)
	}
}

func TestLoadFindsProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("donghuasub.toml", []byte("[optimizer]\nbatch_size = 7\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "donghuasub.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Optimizer.BatchSize != 7 {
		t.Fatalf("expected batch size 7, got %d", cfg.Optimizer.BatchSize)
	}
}

func TestLoadReportsSyntaxPosition(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[llm]\nmodel = \n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/subs")
	if err != nil || got != filepath.Join(home, "subs") {
		t.Fatalf("ExpandPath(~/subs) = %q, %v", got, err)
	}
	if got, err := config.ExpandPath(""); err != nil || got != "" {
		t.Fatalf("ExpandPath(\"\") = %q, %v", got, err)
	}
}

func TestOutputPathAndEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(root, "state")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.OutputDir = ""

	source := filepath.Join(root, "in", "ep1.srt")
	if got := cfg.OutputPath(source, "[Translated] ep1.srt"); got != filepath.Join(root, "in", "[Translated] ep1.srt") {
		t.Fatalf("expected output beside source, got %q", got)
	}
	if got := cfg.LedgerPath(); got != filepath.Join(root, "state", "donghuasub.db") {
		t.Fatalf("unexpected ledger path %q", got)
	}

	cfg.Paths.OutputDir = filepath.Join(root, "out")
	if got := cfg.OutputPath(source, "x.srt"); got != filepath.Join(root, "out", "x.srt") {
		t.Fatalf("expected output_dir routing, got %q", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
