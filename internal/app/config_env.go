package app

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = os.Getenv("SYSTEM_PROMPT")
	}

	if cfg.JudgeURL == "" {
		cfg.JudgeURL = os.Getenv("JUDGE_URL")
	}
	if cfg.JudgeLanguage == "" {
		cfg.JudgeLanguage = os.Getenv("JUDGE_LANGUAGE")
	}

	if cfg.ServeAddr == "" {
		cfg.ServeAddr = os.Getenv("SERVE_ADDR")
	}
	if cfg.WatchInterval == 0 {
		if d, err := time.ParseDuration(os.Getenv("WATCH_INTERVAL")); err == nil && d > 0 {
			cfg.WatchInterval = d
		}
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	if cfg.CacheMaxAge == 0 {
		if d, err := time.ParseDuration(os.Getenv("CACHE_MAX_AGE")); err == nil && d > 0 {
			cfg.CacheMaxAge = d
		}
	}

	if cfg.MemoSize == 0 {
		if n, err := strconv.Atoi(os.Getenv("MEMO_SIZE")); err == nil && n > 0 {
			cfg.MemoSize = n
		}
	}
}
