package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/app"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	args := os.Args[1:]
	serve := len(args) > 0 && args[0] == "serve"
	if serve {
		args = args[1:]
	}

	fs := flag.NewFlagSet("gorecipe", flag.ExitOnError)
	var (
		cfg         app.Config
		configPath  string
		envFiles    string
		showVersion bool
	)
	fs.StringVar(&cfg.URL, "url", "", "Recipe page URL (may also be given as the first argument)")
	fs.StringVar(&cfg.InputPath, "input", "", "Path to a saved HTML page")
	fs.StringVar(&cfg.ImagePath, "image", "", "Path to a photo or scan of a recipe")
	fs.StringVar(&cfg.OutputPath, "output", "", "Output file path; '-' or empty writes to stdout")
	fs.StringVar(&cfg.OutputDir, "output.dir", "", "Directory for derived output file names")
	fs.StringVar(&cfg.Format, "format", "", "Output format: markdown, json, yaml or pdf")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", "", "Model name for text extraction; empty disables the inference tier")
	fs.StringVar(&cfg.LLMVisionModel, "llm.vision", "", "Model name for image extraction (defaults to llm.model)")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", "", "API key for the OpenAI-compatible server")
	fs.DurationVar(&cfg.LLMTimeout, "llm.timeout", 0, "Timeout for one inference request (default 60s)")
	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", 0, "Timeout for page retrieval (default 10s)")
	fs.StringVar(&cfg.UserAgent, "fetch.ua", "", "User-Agent for page retrieval")
	fs.BoolVar(&cfg.AllowPrivateHosts, "fetch.allowPrivate", false, "Allow fetching loopback and private network hosts")
	fs.IntVar(&cfg.Servings, "servings", 0, "Rescale ingredient amounts to this many servings")
	fs.BoolVar(&cfg.Summaries, "summaries", false, "Generate a one-sentence summary with the LLM")
	fs.IntVar(&cfg.MinInstructionChars, "min.instructionChars", 0, "Drop instruction fragments this short or shorter (default 10)")
	fs.IntVar(&cfg.MaxAttributionWords, "max.attributionWords", 0, "Longest fragment treated as a bare author name (default 3)")
	fs.IntVar(&cfg.MaxInputChars, "max.inputChars", 0, "Cap on page text sent to the LLM (default 15000)")
	fs.Int64Var(&cfg.MaxImageBytes, "max.imageBytes", 0, "Largest accepted image upload in bytes (default 10MB)")
	fs.StringVar(&cfg.Listen, "listen", "", "Listen address in serve mode (default :8080)")
	fs.StringVar(&cfg.CacheDir, "cache.dir", "", "Cache directory path (default .gorecipe-cache)")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.Int64Var(&cfg.CacheMaxBytes, "cache.maxBytes", 0, "Evict oldest cache entries above this total size; 0 disables")
	fs.IntVar(&cfg.CacheMaxEntries, "cache.maxEntries", 0, "Evict oldest cache entries above this count; 0 disables")
	fs.StringVar(&configPath, "config", os.Getenv("GORECIPE_CONFIG"), "Path to a YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files; later files override earlier ones")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(args)

	if showVersion {
		fmt.Printf("gorecipe %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}
	if cfg.URL == "" && fs.NArg() > 0 {
		cfg.URL = fs.Arg(0)
	}

	if err := loadConfig(&cfg, configPath, envFiles); err != nil {
		log.Error().Err(err).Msg("config")
		os.Exit(1)
	}
	if serve {
		// Structured JSON logs for the long-running server
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if serve {
		if err := app.ValidateServeConfig(cfg); err != nil {
			log.Error().Err(err).Msg("invalid config")
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runServe(ctx, cfg); err != nil {
			log.Error().Err(err).Msg("serve failed")
			os.Exit(1)
		}
		return
	}

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid config")
		fs.Usage()
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		os.Exit(exitCode(err))
	}
}

// loadConfig layers dotenv files, the config file and the environment
// beneath the parsed flags.
func loadConfig(cfg *app.Config, configPath, envFiles string) error {
	if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(cfg, fc)
	}
	app.ApplyEnvToConfig(cfg)
	app.ApplyDefaults(cfg)
	return nil
}

// exitCode maps failures to the exit code policy: 2 when the page simply
// holds no recipe, 3 for any other extraction failure, 1 otherwise.
func exitCode(err error) int {
	var re *recipe.Error
	if !errors.As(err, &re) {
		log.Error().Err(err).Msg("run failed")
		return 1
	}
	ev := log.Error().Str("code", re.Code()).Str("kind", re.Kind.String())
	if re.RetryAfter != 0 {
		ev = ev.Int64("retry_after", re.RetryAfter)
	}
	ev.Msg(re.Error())
	if re.Kind == recipe.KindNotARecipePage {
		return 2
	}
	return 3
}

func run(cfg app.Config) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}

func runServe(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Serve(ctx)
}
