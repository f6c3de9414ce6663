package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/render"
)

const headingPage = `<!doctype html><html><head><title>Soup</title></head><body>
<h1>Tomato Soup</h1>
<h2>Ingredients</h2>
<ul><li>2 cups tomatoes</li><li>1 onion</li></ul>
<h2>Instructions</h2>
<ol><li>Chop the onion and the tomatoes.</li><li>Simmer everything for twenty minutes.</li></ol>
</body></html>`

const structuredPage = `<!doctype html><html><head><title>Pancakes</title>
<script type="application/ld+json">{
  "@context": "https://schema.org",
  "@type": "Recipe",
  "name": "Fluffy Pancakes",
  "recipeYield": "4 servings",
  "recipeIngredient": ["1 cup flour", "2 eggs"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Whisk the flour and eggs together."},
    {"@type": "HowToStep", "text": "Cook on a hot griddle until golden."}
  ]
}</script></head><body><p>Story about pancakes.</p></body></html>`

const prosePage = `<!doctype html><html><head><title>Blog</title></head><body>
<article><p>My grandmother always made this on Sundays. You take two cups of water and a pinch of salt, bring it to a boil, then stir in the oats and wait until thick.</p></article>
</body></html>`

func pageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// stubLLM implements the OpenAI-compatible endpoints the app uses: a model
// list for the preflight and chat completions returning a fixed recipe.
func stubLLM(t *testing.T, model string, calls *int32) *httptest.Server {
	t.Helper()
	reply := `{"title":"Sunday Oats","author":null,"ingredients":[{"groupName":"Main","ingredients":[{"amount":"2","units":"cups","ingredient":"water"},{"amount":"1","units":"pinch","ingredient":"salt"}]}],"instructions":[{"title":"Boil","detail":"Bring the salted water to a boil."},{"title":"Cook","detail":"Stir in the oats and cook until thick.","timeMinutes":5}]}`
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, cfg Config) (*App, *bytes.Buffer) {
	t.Helper()
	cfg.AllowPrivateHosts = true
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)
	var out bytes.Buffer
	a.Stdout = &out
	return a, &out
}

func TestRun_HeuristicFromURL(t *testing.T) {
	page := pageServer(t, headingPage)
	a, out := newTestApp(t, Config{URL: page.URL + "/soup", Format: "json"})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got["method"] != string(recipe.MethodHeuristic) || got["sourceUrl"] != page.URL+"/soup" {
		t.Fatalf("unexpected output: %v", got)
	}
}

func TestRun_InferenceFallback(t *testing.T) {
	var calls int32
	llm := stubLLM(t, "test-model", &calls)
	page := pageServer(t, prosePage)
	a, out := newTestApp(t, Config{URL: page.URL, LLMBaseURL: llm.URL + "/v1", LLMModel: "test-model", LLMAPIKey: "k"})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	md := out.String()
	for _, want := range []string{"# Sunday Oats", "- 2 cups water", "**Cook**", "_(5 min)_", "method=ai", "model=test-model"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one completion call, got %d", calls)
	}
}

func TestRun_InferenceCacheServesRepeat(t *testing.T) {
	var calls int32
	llm := stubLLM(t, "test-model", &calls)
	page := pageServer(t, prosePage)
	cfg := Config{URL: page.URL, LLMBaseURL: llm.URL + "/v1", LLMModel: "test-model", CacheDir: t.TempDir()}
	for i := 0; i < 2; i++ {
		a, _ := newTestApp(t, cfg)
		if err := a.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("second run should be served from cache, got %d calls", calls)
	}
}

func TestRun_NoRecipeReturnsTypedError(t *testing.T) {
	page := pageServer(t, prosePage)
	a, out := newTestApp(t, Config{URL: page.URL})
	err := a.Run(context.Background())
	var re *recipe.Error
	if !errors.As(err, &re) || re.Code() != recipe.CodeNoRecipeFound {
		t.Fatalf("expected no-recipe error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be written on failure")
	}
}

func TestRun_InvalidURLCode(t *testing.T) {
	a, _ := newTestApp(t, Config{URL: "ftp://example.com/soup"})
	err := a.Run(context.Background())
	var re *recipe.Error
	if !errors.As(err, &re) || re.Code() != recipe.CodeInvalidURL {
		t.Fatalf("expected invalid URL code, got %v", err)
	}
}

func TestRun_InputFile(t *testing.T) {
	in := filepath.Join(t.TempDir(), "pancakes.html")
	if err := os.WriteFile(in, []byte(structuredPage), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	a, out := newTestApp(t, Config{InputPath: in, Format: "yaml"})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	y := out.String()
	if !strings.Contains(y, "title: Fluffy Pancakes") || !strings.Contains(y, "servings: 4") {
		t.Fatalf("unexpected yaml:\n%s", y)
	}
}

func TestRun_ScalesServings(t *testing.T) {
	var calls int32
	llm := stubLLM(t, "test-model", &calls)
	in := filepath.Join(t.TempDir(), "oats.html")
	if err := os.WriteFile(in, []byte(prosePage), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	a, out := newTestApp(t, Config{InputPath: in, LLMBaseURL: llm.URL + "/v1", LLMModel: "test-model", Servings: 2})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	md := out.String()
	// unknown original servings count as one
	if !strings.Contains(md, "Servings: 2") || !strings.Contains(md, "- 4 cups water") || !strings.Contains(md, "- 2 pinch salt") {
		t.Fatalf("expected doubled amounts:\n%s", md)
	}
}

func TestRun_PDFDerivesOutputPath(t *testing.T) {
	page := pageServer(t, headingPage)
	dir := t.TempDir()
	a, out := newTestApp(t, Config{URL: page.URL, Format: "pdf", OutputDir: dir})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("pdf must not be written to stdout")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "tomato-soup-*.pdf"))
	if len(matches) != 1 {
		t.Fatalf("expected one derived pdf, got %v", matches)
	}
}

func TestClose_DropsIdleFetchConnections(t *testing.T) {
	closed := make(chan struct{}, 1)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(headingPage))
	}))
	srv.Config.ConnState = func(_ net.Conn, st http.ConnState) {
		if st == http.StateClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	a, _ := newTestApp(t, Config{URL: srv.URL})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.Close()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("keep-alive connection still open after Close")
	}
}

func TestHandler_ServesAPI(t *testing.T) {
	page := pageServer(t, structuredPage)
	a, _ := newTestApp(t, Config{})
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/parseRecipe", "application/json", strings.NewReader(`{"url":"`+page.URL+`"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || got["title"] != "Fluffy Pancakes" || got["servings"] != float64(4) {
		t.Fatalf("unexpected response %d: %v", resp.StatusCode, got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t, Config{Listen: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestSlugifyAndDeriveOutputPath(t *testing.T) {
	if got := slugify("  Grandma's Best Apple Pie! "); got != "grandma-s-best-apple-pie" {
		t.Fatalf("slugify=%q", got)
	}
	if got := slugify("???"); got != "recipe" {
		t.Fatalf("empty slug should fall back, got %q", got)
	}
	a := deriveOutputPath("out", "Pie", "https://a.example/pie", render.FormatPDF)
	b := deriveOutputPath("out", "Pie", "https://b.example/pie", render.FormatPDF)
	if a == b || !strings.HasPrefix(a, filepath.Join("out", "pie-")) {
		t.Fatalf("unexpected paths %q %q", a, b)
	}
}
