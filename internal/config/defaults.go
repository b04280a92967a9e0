package config

const (
	defaultConfigPath        = "~/.config/donghuasub/config.toml"
	projectConfigName        = "donghuasub.toml"
	ledgerFileName           = "donghuasub.db"
	defaultStateDir          = "~/.local/share/donghuasub"
	defaultLogDir            = "~/.local/share/donghuasub/logs"
	defaultLLMProvider       = "auto"
	defaultLLMModel          = "gemini-3-flash-preview"
	defaultLLMReferer        = "https://github.com/vietkynl99/Donghua-subtitle-translator-AI"
	defaultLLMTitle          = "donghuasub"
	defaultLLMTimeoutSeconds = 60
	defaultRetryAttempts     = 3
	defaultRetryBaseDelayMS  = 2000
	defaultIgnoreBelowCPS    = 20
	defaultAIAboveCPS        = 40
	defaultTargetCPS         = 20
	defaultSafeGapMS         = 50
	defaultBatchSize         = 5
	defaultContextWindow     = 2
	defaultChunkSize         = 8
	defaultChunkDelayMS      = 600
	defaultServerBind        = "127.0.0.1:7490"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		LLM: LLM{
			Provider:         defaultLLMProvider,
			Model:            defaultLLMModel,
			Referer:          defaultLLMReferer,
			Title:            defaultLLMTitle,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			RetryAttempts:    defaultRetryAttempts,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
		},
		Optimizer: Optimizer{
			IgnoreBelowCPS: defaultIgnoreBelowCPS,
			AIAboveCPS:     defaultAIAboveCPS,
			TargetCPS:      defaultTargetCPS,
			SafeGapMS:      defaultSafeGapMS,
			BatchSize:      defaultBatchSize,
			ContextWindow:  defaultContextWindow,
		},
		Translation: Translation{
			ChunkSize:    defaultChunkSize,
			ChunkDelayMS: defaultChunkDelayMS,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
