package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL", "OPENAI_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMVisionModel, "LLM_VISION_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.Listen, "LISTEN")

	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	setInt := func(dst *int, key string) {
		if *dst != 0 {
			return
		}
		if n, ok := envInt(key); ok {
			*dst = n
		}
	}
	setInt(&cfg.MinInstructionChars, "MIN_INSTRUCTION_CHARS")
	setInt(&cfg.MaxAttributionWords, "MAX_ATTRIBUTION_WORDS")
	setInt(&cfg.MaxInputChars, "MAX_INPUT_CHARS")
	if cfg.MaxImageBytes == 0 {
		if n, ok := envInt("MAX_IMAGE_BYTES"); ok {
			cfg.MaxImageBytes = int64(n)
		}
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.Summaries, "SUMMARIES")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.AllowPrivateHosts, "ALLOW_PRIVATE_HOSTS")
}

// envDuration accepts Go durations ("15s") and bare seconds ("15").
func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
