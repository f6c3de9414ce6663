package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Input: exactly one of URL, InputPath (saved HTML) or ImagePath.
	URL        string
	InputPath  string
	ImagePath  string
	OutputPath string
	// OutputDir receives derived file names when OutputPath is empty and
	// the format is not written to stdout.
	OutputDir string
	Format    string

	// LLM
	LLMBaseURL     string
	LLMModel       string
	LLMVisionModel string
	LLMAPIKey      string
	LLMTimeout     time.Duration

	// Fetch
	FetchTimeout      time.Duration
	UserAgent         string
	AllowPrivateHosts bool

	// Extraction
	MinInstructionChars int
	MaxAttributionWords int
	MaxInputChars       int
	MaxImageBytes       int64
	Summaries           bool
	// Servings rescales ingredient amounts when positive.
	Servings int

	// Server
	Listen string

	// Behavior
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheMaxBytes    int64
	CacheMaxEntries  int
	Verbose          bool
}

// ApplyDefaults fills settings still unset after flags, the config file and
// the environment have been applied.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
}
