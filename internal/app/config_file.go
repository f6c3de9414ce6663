package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/gorecipe/internal/render"
)

// Defaults shared by the CLI flags and the config file overlay.
const (
	DefaultCacheDir = ".gorecipe-cache"
	DefaultListen   = ":8080"
	DefaultFormat   = "markdown"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Output    string `yaml:"output" json:"output"`
	OutputDir string `yaml:"outputDir" json:"outputDir"`
	Format    string `yaml:"format" json:"format"`

	LLM struct {
		BaseURL     string        `yaml:"base" json:"base"`
		Model       string        `yaml:"model" json:"model"`
		VisionModel string        `yaml:"visionModel" json:"visionModel"`
		APIKey      string        `yaml:"key" json:"key"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	Fetch struct {
		Timeout           time.Duration `yaml:"timeout" json:"timeout"`
		UserAgent         string        `yaml:"userAgent" json:"userAgent"`
		AllowPrivateHosts bool          `yaml:"allowPrivateHosts" json:"allowPrivateHosts"`
	} `yaml:"fetch" json:"fetch"`

	Extract struct {
		MinInstructionChars int   `yaml:"minInstructionChars" json:"minInstructionChars"`
		MaxAttributionWords int   `yaml:"maxAttributionWords" json:"maxAttributionWords"`
		MaxInputChars       int   `yaml:"maxInputChars" json:"maxInputChars"`
		MaxImageBytes       int64 `yaml:"maxImageBytes" json:"maxImageBytes"`
		Summaries           bool  `yaml:"summaries" json:"summaries"`
	} `yaml:"extract" json:"extract"`

	Server struct {
		Listen string `yaml:"listen" json:"listen"`
	} `yaml:"server" json:"server"`

	Verbose bool `yaml:"verbose" json:"verbose"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
	} `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already
// have been parsed; this lets the file supply defaults while preserving
// explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputDir == "" && fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
	}
	if (cfg.Format == "" || cfg.Format == DefaultFormat) && fc.Format != "" {
		cfg.Format = fc.Format
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMVisionModel == "" && fc.LLM.VisionModel != "" {
		cfg.LLMVisionModel = fc.LLM.VisionModel
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.LLMTimeout == 0 && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}

	if cfg.FetchTimeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if cfg.UserAgent == "" && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if !cfg.AllowPrivateHosts && fc.Fetch.AllowPrivateHosts {
		cfg.AllowPrivateHosts = true
	}

	if cfg.MinInstructionChars == 0 && fc.Extract.MinInstructionChars > 0 {
		cfg.MinInstructionChars = fc.Extract.MinInstructionChars
	}
	if cfg.MaxAttributionWords == 0 && fc.Extract.MaxAttributionWords > 0 {
		cfg.MaxAttributionWords = fc.Extract.MaxAttributionWords
	}
	if cfg.MaxInputChars == 0 && fc.Extract.MaxInputChars > 0 {
		cfg.MaxInputChars = fc.Extract.MaxInputChars
	}
	if cfg.MaxImageBytes == 0 && fc.Extract.MaxImageBytes > 0 {
		cfg.MaxImageBytes = fc.Extract.MaxImageBytes
	}
	if !cfg.Summaries && fc.Extract.Summaries {
		cfg.Summaries = true
	}

	if (cfg.Listen == "" || cfg.Listen == DefaultListen) && fc.Server.Listen != "" {
		cfg.Listen = fc.Server.Listen
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 {
		cfg.CacheMaxEntries = fc.Cache.MaxEntries
	}
}

// ValidateConfig checks a one-shot extraction config. Serve mode uses
// ValidateServeConfig instead.
func ValidateConfig(cfg Config) error {
	inputs := 0
	for _, s := range []string{cfg.URL, cfg.InputPath, cfg.ImagePath} {
		if strings.TrimSpace(s) != "" {
			inputs++
		}
	}
	if inputs == 0 {
		return errors.New("config: one of url, input or image is required")
	}
	if inputs > 1 {
		return errors.New("config: url, input and image are mutually exclusive")
	}
	if strings.TrimSpace(cfg.ImagePath) != "" && strings.TrimSpace(cfg.LLMModel) == "" && strings.TrimSpace(cfg.LLMVisionModel) == "" {
		return errors.New("config: image extraction requires llm.visionModel or llm.model (or set LLM_VISION_MODEL)")
	}
	return validateCommon(cfg)
}

// ValidateServeConfig checks settings used by the HTTP server.
func ValidateServeConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Listen) == "" {
		return errors.New("config: server.listen is required")
	}
	return validateCommon(cfg)
}

func validateCommon(cfg Config) error {
	if _, err := render.ParseFormat(cfg.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.MinInstructionChars < 0 || cfg.MaxAttributionWords < 0 || cfg.MaxInputChars < 0 ||
		cfg.MaxImageBytes < 0 || cfg.Servings < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.FetchTimeout < 0 || cfg.LLMTimeout < 0 {
		return errors.New("config: negative timeouts are not allowed")
	}
	return nil
}
