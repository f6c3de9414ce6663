package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperifyio/gorecipe/internal/clean"
	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

const structuredPage = `<!doctype html><html><head><title>Pancakes</title>
<script type="application/ld+json">{
  "@context": "https://schema.org",
  "@type": "Recipe",
  "name": "Fluffy Pancakes",
  "recipeIngredient": ["1 1/2 cups flour", "2 eggs"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Whisk the flour and eggs together."},
    {"@type": "HowToStep", "text": "Cook on a hot griddle until golden."}
  ]
}</script></head><body><p>Story about pancakes.</p></body></html>`

const headingPage = `<!doctype html><html><head><title>Soup</title></head><body>
<h1>Tomato Soup</h1>
<h2>Ingredients</h2>
<ul><li>2 cups tomatoes</li><li>1 onion</li></ul>
<h2>Instructions</h2>
<ol><li>Chop the onion and the tomatoes.</li><li>Simmer everything for twenty minutes.</li></ol>
</body></html>`

const proseOnlyPage = `<!doctype html><html><head><title>Blog</title></head><body>
<article><p>` + "We went to the market and talked about food for a long while. " + `</p></article>
</body></html>`

type fakeAI struct {
	docCalls     int
	imageCalls   int
	summaryCalls int
	recipe       *recipe.ParsedRecipe
	err          error
	summary      string
	lastMIME     string
}

func (f *fakeAI) FromDocument(ctx context.Context, doc clean.Document, sourceURL string) (*recipe.ParsedRecipe, error) {
	f.docCalls++
	return f.recipe, f.err
}

func (f *fakeAI) FromImage(ctx context.Context, mime string, data []byte) (*recipe.ParsedRecipe, error) {
	f.imageCalls++
	f.lastMIME = mime
	return f.recipe, f.err
}

func (f *fakeAI) Summarize(ctx context.Context, r *recipe.ParsedRecipe) (string, error) {
	f.summaryCalls++
	return f.summary, nil
}

func aiRecipe() *recipe.ParsedRecipe {
	return &recipe.ParsedRecipe{
		Title:        "Model Soup",
		Ingredients:  []recipe.IngredientGroup{{GroupName: "Main", Ingredients: []recipe.Ingredient{{Name: "water"}}}},
		Instructions: []recipe.InstructionStep{{Title: "Step 1", Detail: "Boil the water."}},
	}
}

func TestExtract_StructuredDataShortCircuits(t *testing.T) {
	ai := &fakeAI{recipe: aiRecipe()}
	p := &Pipeline{AI: ai}
	res := p.Extract(context.Background(), []byte(structuredPage), "https://example.com/p")
	if !res.OK() || res.Method != recipe.MethodStructuredData {
		t.Fatalf("expected structured-data success, got %+v", res)
	}
	if res.Recipe.Title != "Fluffy Pancakes" || res.Recipe.SourceURL != "https://example.com/p" {
		t.Fatalf("unexpected recipe: %+v", res.Recipe)
	}
	if ai.docCalls != 0 {
		t.Fatalf("AI must not run when structured data succeeds")
	}
}

func TestExtract_FallsBackToHeuristic(t *testing.T) {
	ai := &fakeAI{recipe: aiRecipe()}
	p := &Pipeline{AI: ai}
	res := p.Extract(context.Background(), []byte(headingPage), "")
	if !res.OK() || res.Method != recipe.MethodHeuristic {
		t.Fatalf("expected heuristic success, got %+v", res)
	}
	got := res.Recipe.Ingredients[0].Ingredients
	if len(got) != 2 || got[0].Name != "2 cups tomatoes" || got[1].Name != "1 onion" {
		t.Fatalf("unexpected ingredients: %+v", got)
	}
	if len(res.Recipe.Instructions) != 2 || res.Recipe.Instructions[1].Title != "Step 2" {
		t.Fatalf("unexpected instructions: %+v", res.Recipe.Instructions)
	}
	if ai.docCalls != 0 {
		t.Fatalf("AI must not run when heuristics succeed")
	}
}

func TestExtract_HeuristicOnCookieCategoryPost(t *testing.T) {
	page := `<!doctype html><html><body>
<article class="post type-post category-cookies tag-cookies">
<h1>Butter Cookies</h1>
<h2>Ingredients</h2>
<ul><li>1 cup butter</li><li>2 cups flour</li></ul>
<h2>Instructions</h2>
<ol><li>Cream the butter until pale.</li><li>Fold in the flour and bake.</li></ol>
</article></body></html>`
	res := (&Pipeline{}).Extract(context.Background(), []byte(page), "")
	if !res.OK() || res.Method != recipe.MethodHeuristic {
		t.Fatalf("expected heuristic success, got %+v", res)
	}
	got := res.Recipe.Ingredients[0].Ingredients
	if len(got) != 2 || got[0].Name != "1 cup butter" || got[1].Name != "2 cups flour" {
		t.Fatalf("unexpected ingredients: %+v", got)
	}
}

func TestExtract_FallsBackToAI(t *testing.T) {
	ai := &fakeAI{recipe: aiRecipe(), summary: "A simple soup."}
	p := &Pipeline{AI: ai, Summaries: true}
	res := p.Extract(context.Background(), []byte(proseOnlyPage), "")
	if !res.OK() || res.Method != recipe.MethodAI {
		t.Fatalf("expected ai success, got %+v", res)
	}
	if ai.docCalls != 1 || ai.summaryCalls != 1 || res.Recipe.Summary != "A simple soup." {
		t.Fatalf("unexpected calls doc=%d summary=%d recipe=%+v", ai.docCalls, ai.summaryCalls, res.Recipe)
	}
}

func TestExtract_NoAIReportsNotARecipe(t *testing.T) {
	p := &Pipeline{}
	res := p.Extract(context.Background(), []byte(proseOnlyPage), "")
	if res.OK() || res.Method != recipe.MethodNone || res.Err.Kind != recipe.KindNotARecipePage {
		t.Fatalf("expected NotARecipePage, got %+v", res)
	}
}

func TestExtract_RateLimitRetryAfterPassesThrough(t *testing.T) {
	rl := recipe.NewError(recipe.KindInferenceRateLimited, "rate limited", nil)
	rl.RetryAfter = 1700000000
	p := &Pipeline{AI: &fakeAI{err: rl}}
	res := p.Extract(context.Background(), []byte(proseOnlyPage), "")
	if res.OK() || res.Err.Kind != recipe.KindInferenceRateLimited {
		t.Fatalf("expected rate limit, got %+v", res)
	}
	if res.Err.RetryAfter != 1700000000 {
		t.Fatalf("retryAfter changed: %d", res.Err.RetryAfter)
	}
	if res.Err.Code() != recipe.CodeRateLimit {
		t.Fatalf("unexpected code %s", res.Err.Code())
	}
}

func TestExtract_IncompleteAIResultIsDiscarded(t *testing.T) {
	partial := aiRecipe()
	partial.Instructions = nil
	p := &Pipeline{AI: &fakeAI{recipe: partial}}
	res := p.Extract(context.Background(), []byte(proseOnlyPage), "")
	if res.OK() || res.Err.Kind != recipe.KindNotARecipePage {
		t.Fatalf("expected NotARecipePage, got %+v", res)
	}
}

func TestExtract_EmptyDocumentIsUnsupported(t *testing.T) {
	p := &Pipeline{}
	res := p.Extract(context.Background(), []byte("   "), "")
	if res.OK() || res.Err.Kind != recipe.KindUnsupportedDocument {
		t.Fatalf("expected UnsupportedDocument, got %+v", res)
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ai := &fakeAI{recipe: aiRecipe()}
	res := (&Pipeline{AI: ai}).Extract(ctx, []byte(proseOnlyPage), "")
	if res.OK() || ai.docCalls != 0 {
		t.Fatalf("expected canceled extraction without inference, got %+v", res)
	}
}

type stubFetcher struct {
	body []byte
	err  error
}

func (s stubFetcher) Get(ctx context.Context, url string) ([]byte, string, error) {
	return s.body, "text/html", s.err
}

func TestExtractURL(t *testing.T) {
	p := &Pipeline{Fetcher: stubFetcher{body: []byte(headingPage)}}
	res := p.ExtractURL(context.Background(), "https://example.com/soup")
	if !res.OK() || res.Recipe.SourceURL != "https://example.com/soup" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExtractURL_Errors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		err  error
		code string
	}{
		{"invalid scheme", "ftp://example.com", nil, recipe.CodeInvalidURL},
		{"no host", "https://", nil, recipe.CodeInvalidURL},
		{"timeout", "https://example.com", context.DeadlineExceeded, recipe.CodeTimeout},
		{"transport", "https://example.com", errors.New("connection refused"), recipe.CodeFetchFailed},
		{"not html", "https://example.com", fetch.ErrUnsupportedContent, recipe.CodeUnsupportedDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Pipeline{Fetcher: stubFetcher{err: tc.err}}
			res := p.ExtractURL(context.Background(), tc.url)
			if res.OK() || res.Err.Code() != tc.code {
				t.Fatalf("expected %s, got %+v", tc.code, res.Err)
			}
		})
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestExtractImage(t *testing.T) {
	ai := &fakeAI{recipe: aiRecipe()}
	p := &Pipeline{AI: ai}
	res := p.ExtractImage(context.Background(), "image/png", pngHeader)
	if !res.OK() || res.Method != recipe.MethodAI {
		t.Fatalf("unexpected result: %+v", res)
	}
	if ai.lastMIME != "image/png" {
		t.Fatalf("expected sniffed MIME, got %q", ai.lastMIME)
	}
}

func TestExtractImage_RejectsBadMedia(t *testing.T) {
	ai := &fakeAI{recipe: aiRecipe()}
	p := &Pipeline{AI: ai, MaxImageBytes: 64}

	res := p.ExtractImage(context.Background(), "", []byte(strings.Repeat("x", 65)))
	if res.OK() || res.Err.Code() != recipe.CodeFileTooLarge {
		t.Fatalf("expected too large, got %+v", res.Err)
	}
	res = p.ExtractImage(context.Background(), "", []byte("just some text"))
	if res.OK() || res.Err.Code() != recipe.CodeInvalidFileType {
		t.Fatalf("expected invalid type, got %+v", res.Err)
	}
	res = p.ExtractImage(context.Background(), "application/pdf", pngHeader)
	if res.OK() || res.Err.Code() != recipe.CodeInvalidFileType {
		t.Fatalf("expected declared type rejected, got %+v", res.Err)
	}
	if ai.imageCalls != 0 {
		t.Fatalf("vision model must not run for rejected media")
	}
}

func TestImageType(t *testing.T) {
	if mt, ok := ImageType("", pngHeader); !ok || mt != "image/png" {
		t.Fatalf("png not detected: %q %v", mt, ok)
	}
	if _, ok := ImageType("text/plain; charset=utf-8", pngHeader); ok {
		t.Fatalf("declared text type should be rejected")
	}
}
