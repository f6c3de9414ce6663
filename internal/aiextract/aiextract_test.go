package aiextract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/gorecipe/internal/cache"
	"github.com/hyperifyio/gorecipe/internal/clean"
	"github.com/hyperifyio/gorecipe/internal/llm"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

type capturingClient struct {
	lastReq openai.ChatCompletionRequest
	calls   int
	reply   string
	err     error
	// retryAfter is reported through the context capture before err returns.
	retryAfter int64
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.lastReq = req
	c.calls++
	if c.err != nil {
		llm.RecordRetryAfter(ctx, c.retryAfter)
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

const validReply = `{
  "title": "Tomato Soup",
  "author": "Jane Smith",
  "ingredients": [
    {"groupName": "Soup", "ingredients": [
      {"amount": "2", "units": "cups", "ingredient": "tomatoes"},
      {"amount": "", "units": "", "ingredient": "salt to taste"}
    ]}
  ],
  "instructions": [
    {"title": "Step 1", "detail": "Chop the tomatoes roughly.", "timeMinutes": 0},
    {"title": "Simmer", "detail": "Simmer for twenty minutes.", "timeMinutes": 20, "tips": "Stir often"},
    "By Jane Smith"
  ]
}`

func mustDoc(t *testing.T) clean.Document {
	t.Helper()
	doc, err := clean.FromString(`<h1>Tomato Soup</h1><p>` + strings.Repeat("A warm and simple soup. ", 10) + `</p>`)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	return doc
}

func TestFromDocument_ParsesAndNormalizes(t *testing.T) {
	cc := &capturingClient{reply: "Here you go:\n```json\n" + validReply + "\n```"}
	e := &Extractor{Client: cc, Model: "test-model"}
	r, err := e.FromDocument(context.Background(), mustDoc(t), "https://example.com/soup")
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if r.Title != "Tomato Soup" || r.Author != "Jane Smith" {
		t.Fatalf("unexpected header: %+v", r)
	}
	if len(r.Ingredients) != 1 || r.Ingredients[0].GroupName != "Soup" || len(r.Ingredients[0].Ingredients) != 2 {
		t.Fatalf("unexpected groups: %+v", r.Ingredients)
	}
	if len(r.Instructions) != 2 {
		t.Fatalf("expected attribution step dropped, got %+v", r.Instructions)
	}
	if r.Instructions[0].Title != "Step 1" || r.Instructions[1].Title != "Simmer" {
		t.Fatalf("unexpected titles: %+v", r.Instructions)
	}
	if r.Instructions[0].TimeMinutes != nil {
		t.Fatalf("zero time should be dropped")
	}
	if r.Instructions[1].TimeMinutes == nil || *r.Instructions[1].TimeMinutes != 20 || r.Instructions[1].Tip != "Stir often" {
		t.Fatalf("unexpected step metadata: %+v", r.Instructions[1])
	}

	req := cc.lastReq
	if req.Temperature != 0.1 || req.MaxTokens != ReservedOutputTokens {
		t.Fatalf("unexpected sampling: temp=%v max=%d", req.Temperature, req.MaxTokens)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected JSON response format")
	}
	if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "# Tomato Soup") {
		t.Fatalf("expected markdown body in user message; got:\n%s", req.Messages[1].Content)
	}
	if !strings.Contains(req.Messages[1].Content, "https://example.com/soup") {
		t.Fatalf("expected page URL in user message")
	}
}

func TestFromDocument_TruncatesInput(t *testing.T) {
	cc := &capturingClient{reply: validReply}
	e := &Extractor{Client: cc, Model: "test-model", MaxInputChars: 50}
	doc, err := clean.FromString("<p>" + strings.Repeat("word ", 500) + "</p>")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if _, err := e.FromDocument(context.Background(), doc, ""); err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	user := cc.lastReq.Messages[1].Content
	body := user[strings.Index(user, "\n\n")+2:]
	if len([]rune(body)) > 50 {
		t.Fatalf("expected body truncated to 50 runes, got %d", len([]rune(body)))
	}
}

func TestFromDocument_Sentinel(t *testing.T) {
	cc := &capturingClient{reply: `{"title": "No recipe found", "ingredients": null, "instructions": null}`}
	e := &Extractor{Client: cc, Model: "m"}
	_, err := e.FromDocument(context.Background(), mustDoc(t), "")
	var re *recipe.Error
	if !errors.As(err, &re) || re.Kind != recipe.KindNotARecipePage {
		t.Fatalf("expected NotARecipePage, got %v", err)
	}
}

func TestFromDocument_MalformedOutput(t *testing.T) {
	cases := map[string]string{
		"prose":      "I could not find anything useful.",
		"bad json":   `{"title": "Soup", "ingredients": [}`,
		"wrong type": `{"title": "Soup", "ingredients": "flour", "instructions": []}`,
		"missing":    `{"title": "Soup"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			e := &Extractor{Client: &capturingClient{reply: reply}, Model: "m"}
			_, err := e.FromDocument(context.Background(), mustDoc(t), "")
			var re *recipe.Error
			if !errors.As(err, &re) || re.Kind != recipe.KindInferenceMalformedOutput {
				t.Fatalf("expected InferenceMalformedOutput, got %v", err)
			}
			if re.Code() != recipe.CodeAIParseFailed {
				t.Fatalf("unexpected code %s", re.Code())
			}
		})
	}
}

func TestFromDocument_EmptyRecipeIsNotARecipe(t *testing.T) {
	e := &Extractor{Client: &capturingClient{reply: `{"title": "Soup", "ingredients": [], "instructions": []}`}, Model: "m"}
	_, err := e.FromDocument(context.Background(), mustDoc(t), "")
	var re *recipe.Error
	if !errors.As(err, &re) || re.Kind != recipe.KindNotARecipePage {
		t.Fatalf("expected NotARecipePage, got %v", err)
	}
}

func TestFromDocument_RateLimitPassesRetryAfterThrough(t *testing.T) {
	cc := &capturingClient{
		err:        &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
		retryAfter: 1700000000123,
	}
	e := &Extractor{Client: cc, Model: "m"}
	_, err := e.FromDocument(context.Background(), mustDoc(t), "")
	var re *recipe.Error
	if !errors.As(err, &re) || re.Kind != recipe.KindInferenceRateLimited {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if re.RetryAfter != 1700000000123 {
		t.Fatalf("retryAfter rewritten: %d", re.RetryAfter)
	}
}

func TestFromDocument_NotConfigured(t *testing.T) {
	var e *Extractor
	_, err := e.FromDocument(context.Background(), clean.Document{}, "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	var re *recipe.Error
	if !errors.As(err, &re) || re.Kind != recipe.KindInferenceUnavailable {
		t.Fatalf("expected InferenceUnavailable, got %v", err)
	}
}

func TestFromDocument_UsesCache(t *testing.T) {
	lc := &cache.LLMCache{Dir: t.TempDir()}
	cc := &capturingClient{reply: validReply}
	e := &Extractor{Client: cc, Model: "m", Cache: lc}
	doc := mustDoc(t)
	for i := 0; i < 2; i++ {
		if _, err := e.FromDocument(context.Background(), doc, ""); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if cc.calls != 1 {
		t.Fatalf("expected second run served from cache, got %d calls", cc.calls)
	}
}

func TestFromDocument_DoesNotCacheFailures(t *testing.T) {
	lc := &cache.LLMCache{Dir: t.TempDir()}
	cc := &capturingClient{reply: "nothing"}
	e := &Extractor{Client: cc, Model: "m", Cache: lc}
	doc := mustDoc(t)
	_, _ = e.FromDocument(context.Background(), doc, "")
	_, _ = e.FromDocument(context.Background(), doc, "")
	if cc.calls != 2 {
		t.Fatalf("expected malformed reply not cached, got %d calls", cc.calls)
	}
}

func TestFromImage_UsesVisionModelAndDataURL(t *testing.T) {
	cc := &capturingClient{reply: validReply}
	e := &Extractor{Client: cc, Model: "text", VisionModel: "vision"}
	r, err := e.FromImage(context.Background(), "image/png", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if r.Title != "Tomato Soup" {
		t.Fatalf("unexpected title %q", r.Title)
	}
	if cc.lastReq.Model != "vision" {
		t.Fatalf("expected vision model, got %q", cc.lastReq.Model)
	}
	parts := cc.lastReq.Messages[0].MultiContent
	if len(parts) != 2 || parts[1].ImageURL == nil || !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("unexpected message parts: %+v", parts)
	}
}

func TestSummarize(t *testing.T) {
	cc := &capturingClient{reply: `"A bright tomato soup with fresh herbs. Perfect for winter."`}
	e := &Extractor{Client: cc, Model: "m"}
	r := &recipe.ParsedRecipe{
		Title:        "Tomato Soup",
		Ingredients:  []recipe.IngredientGroup{{GroupName: "Main", Ingredients: []recipe.Ingredient{{Name: "tomatoes"}}}},
		Instructions: []recipe.InstructionStep{{Title: "Step 1", Detail: "Cook the tomatoes."}},
	}
	got, err := e.Summarize(context.Background(), r)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "A bright tomato soup with fresh herbs." {
		t.Fatalf("unexpected summary %q", got)
	}
	if cc.lastReq.Temperature != 0.7 || cc.lastReq.MaxTokens != summaryMaxTokens {
		t.Fatalf("unexpected sampling settings")
	}
	if !strings.Contains(cc.lastReq.Messages[1].Content, "tomatoes") {
		t.Fatalf("expected ingredients in prompt")
	}
}

func TestTidySummary(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"Creamy pasta":           "Creamy pasta.",
		"'Quick curry!' Extra":   "Quick curry!",
		"  Simple bread. More. ": "Simple bread.",
	}
	for in, want := range cases {
		if got := tidySummary(in); got != want {
			t.Fatalf("tidySummary(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFinalContent(t *testing.T) {
	if got := finalContent("<think>hmm</think>{\"a\":1}"); got != `{"a":1}` {
		t.Fatalf("think block not stripped: %q", got)
	}
	if got := finalContent("analysis\n```final\n{\"b\":2}\n```"); got != `{"b":2}` {
		t.Fatalf("final fence not used: %q", got)
	}
	if got := finalContent("<final>{}</final>"); got != "{}" {
		t.Fatalf("final tag not used: %q", got)
	}
}
