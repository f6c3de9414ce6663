package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/aiextract"
	"github.com/hyperifyio/gorecipe/internal/api"
	"github.com/hyperifyio/gorecipe/internal/cache"
	"github.com/hyperifyio/gorecipe/internal/extract"
	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/llm"
	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/render"
	"github.com/hyperifyio/gorecipe/internal/scale"
)

// DefaultLLMTimeout bounds a single inference request.
const DefaultLLMTimeout = 60 * time.Second

// shutdownGrace is how long Serve waits for in-flight requests.
const shutdownGrace = 10 * time.Second

type App struct {
	cfg       Config
	provider  *llm.OpenAIProvider
	pipeline  *extract.Pipeline
	fetcher   *fetch.Client
	llmHTTP   *http.Client
	httpCache *cache.HTTPCache
	// Stdout receives output when no output path is configured.
	Stdout io.Writer
}

func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg, Stdout: os.Stdout}

	if cfg.CacheDir != "" {
		// Apply cache invalidation controls; errors never fail startup
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			_, _ = cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
			_, _ = cache.PurgeLLMCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		if cfg.CacheMaxBytes > 0 || cfg.CacheMaxEntries > 0 {
			if n, err := cache.EnforceLimits(cfg.CacheDir, cfg.CacheMaxBytes, cfg.CacheMaxEntries); err != nil {
				log.Warn().Err(err).Msg("cache limit enforcement failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("cache entries evicted")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	th := normalize.DefaultThresholds()
	if cfg.MinInstructionChars > 0 {
		th.MinInstructionChars = cfg.MinInstructionChars
	}
	if cfg.MaxAttributionWords > 0 {
		th.MaxAttributionWords = cfg.MaxAttributionWords
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = fetch.DefaultUserAgent
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        newHighThroughputHTTPClient(0),
		UserAgent:         ua,
		MaxAttempts:       1,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             a.httpCache,
		AllowPrivateHosts: cfg.AllowPrivateHosts,
		RedirectMaxHops:   5,
		MaxConcurrent:     8,
	}
	a.pipeline = &extract.Pipeline{
		Fetcher:       a.fetcher,
		Thresholds:    th,
		Summaries:     cfg.Summaries,
		FetchTimeout:  cfg.FetchTimeout,
		MaxImageBytes: cfg.MaxImageBytes,
	}

	if strings.TrimSpace(cfg.LLMModel) == "" && strings.TrimSpace(cfg.LLMVisionModel) == "" {
		log.Info().Msg("no LLM model configured; inference tier disabled")
		return a, nil
	}

	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	a.llmHTTP = newHighThroughputHTTPClient(timeout)
	a.provider = llm.NewOpenAI(llm.Config{
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		HTTPClient: a.llmHTTP,
	})
	ai := &aiextract.Extractor{
		Client:        a.provider,
		Model:         cfg.LLMModel,
		VisionModel:   cfg.LLMVisionModel,
		MaxInputChars: cfg.MaxInputChars,
		Thresholds:    th,
	}
	if cfg.CacheDir != "" {
		ai.Cache = &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	a.pipeline.AI = ai

	// Quick connectivity check by listing models. Best-effort: extraction
	// surfaces real failures through its error codes.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := a.provider.ListModels(pctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
	} else if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
	return a, nil
}

// Close releases pooled connections held by the fetch and LLM clients.
func (a *App) Close() {
	a.fetcher.CloseIdleConnections()
	if a.llmHTTP != nil {
		a.llmHTTP.CloseIdleConnections()
	}
}

// Run performs a single extraction and writes the result. A failed
// extraction is returned as a *recipe.Error.
func (a *App) Run(ctx context.Context) error {
	format, err := render.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	var res recipe.ExtractionResult
	source := ""
	switch {
	case a.cfg.URL != "":
		source = a.cfg.URL
		res = a.pipeline.ExtractURL(ctx, a.cfg.URL)
	case a.cfg.InputPath != "":
		source = a.cfg.InputPath
		raw, err := os.ReadFile(a.cfg.InputPath)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		res = a.pipeline.Extract(ctx, raw, "")
	case a.cfg.ImagePath != "":
		source = a.cfg.ImagePath
		data, err := os.ReadFile(a.cfg.ImagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		res = a.pipeline.ExtractImage(ctx, "", data)
	default:
		return errors.New("nothing to extract")
	}
	if !res.OK() {
		return res.Err
	}

	r := res.Recipe
	if a.cfg.Servings > 0 {
		r = scale.Recipe(r, a.cfg.Servings)
	}
	prov := render.Provenance{Method: res.Method, Model: a.cfg.LLMModel}
	if a.cfg.ImagePath != "" && a.cfg.LLMVisionModel != "" {
		prov.Model = a.cfg.LLMVisionModel
	}

	out := a.cfg.OutputPath
	if out == "" && (a.cfg.OutputDir != "" || format == render.FormatPDF) {
		out = deriveOutputPath(a.cfg.OutputDir, r.Title, source, format)
	}
	if out == "" || out == "-" {
		return render.Write(a.Stdout, format, r, prov)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := render.Write(f, format, r, prov); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", out).Str("method", string(res.Method)).Msg("wrote recipe")
	return nil
}

// Handler returns the HTTP API bound to the app's pipeline.
func (a *App) Handler() http.Handler {
	s := &api.Server{
		Pipeline:      a.pipeline,
		MaxImageBytes: a.cfg.MaxImageBytes,
		Version:       BuildVersion,
		Commit:        BuildCommit,
	}
	return s.Handler()
}

// Serve runs the HTTP API until ctx is canceled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	addr := a.cfg.Listen
	if addr == "" {
		addr = DefaultListen
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", BuildVersion).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
