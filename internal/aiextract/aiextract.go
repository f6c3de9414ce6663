// Package aiextract is the last-resort extraction tier: it sends a bounded
// rendition of the cleaned page (or an image) to an OpenAI-compatible model
// under a strict JSON contract and converts the reply into a recipe.
package aiextract

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/gorecipe/internal/budget"
	"github.com/hyperifyio/gorecipe/internal/cache"
	"github.com/hyperifyio/gorecipe/internal/clean"
	"github.com/hyperifyio/gorecipe/internal/llm"
	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

const (
	// DefaultMaxInputChars caps page content sent to the model.
	DefaultMaxInputChars = 15000
	// ReservedOutputTokens is both the completion limit and the budget
	// reservation for the reply.
	ReservedOutputTokens = 4000
	summaryMaxTokens     = 100
)

// ErrNotConfigured is returned when no client or model is set.
var ErrNotConfigured = errors.New("ai extractor not configured")

// Extractor calls the inference service. The zero value is unusable; Client
// and Model are required, everything else has defaults.
type Extractor struct {
	Client llm.Client
	Model  string
	// VisionModel serves FromImage; empty falls back to Model.
	VisionModel string
	Cache       *cache.LLMCache
	// MaxInputChars caps the Markdown prompt body; zero uses
	// DefaultMaxInputChars further limited by the model's context window.
	MaxInputChars int
	Thresholds    normalize.Thresholds
}

var converter = md.NewConverter(
	md.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

func (e *Extractor) configured(model string) error {
	if e == nil || e.Client == nil || strings.TrimSpace(model) == "" {
		return recipe.NewError(recipe.KindInferenceUnavailable, "inference is not configured", ErrNotConfigured)
	}
	return nil
}

// FromDocument extracts a recipe from a cleaned page. sourceURL resolves
// relative links in the Markdown rendition and may be empty.
func (e *Extractor) FromDocument(ctx context.Context, doc clean.Document, sourceURL string) (*recipe.ParsedRecipe, error) {
	if err := e.configured(e.Model); err != nil {
		return nil, err
	}
	body, err := toMarkdown(doc.HTML, sourceURL)
	if err != nil {
		log.Debug().Err(err).Msg("markdown conversion failed; using plain text")
		body = doc.Text()
	}
	if strings.TrimSpace(body) == "" {
		return nil, recipe.NewError(recipe.KindUnsupportedDocument, "document has no content to send", clean.ErrEmptyContent)
	}
	limit := e.MaxInputChars
	if limit <= 0 {
		limit = DefaultMaxInputChars
	}
	limit = budget.MaxInputChars(e.Model, documentSystemPrompt, ReservedOutputTokens, limit)
	user := documentUserPrompt(budget.Truncate(body, limit), sourceURL)

	req := openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: documentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:    0.1,
		MaxTokens:      ReservedOutputTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	return e.extract(ctx, req, cache.KeyFrom(e.Model, documentSystemPrompt, user))
}

// FromImage extracts a recipe from an image payload using the vision model.
func (e *Extractor) FromImage(ctx context.Context, mime string, data []byte) (*recipe.ParsedRecipe, error) {
	model := e.visionModel()
	if err := e.configured(model); err != nil {
		return nil, err
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: imagePrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   ReservedOutputTokens,
	}
	return e.extract(ctx, req, cache.KeyFrom(model, imagePrompt, dataURL))
}

// extract runs the request and interprets the reply. Only replies that
// yield a recipe are cached.
func (e *Extractor) extract(ctx context.Context, req openai.ChatCompletionRequest, key string) (*recipe.ParsedRecipe, error) {
	content, err := e.complete(ctx, req, key)
	if err != nil {
		return nil, err
	}
	r, err := e.interpret(content)
	if err != nil {
		return nil, err
	}
	e.remember(ctx, key, content)
	return r, nil
}

var firstSentence = regexp.MustCompile(`^[^.!?]+[.!?]`)

// Summarize asks for a one-sentence summary. Callers treat failures as
// "no summary"; the error is returned only for logging.
func (e *Extractor) Summarize(ctx context.Context, r *recipe.ParsedRecipe) (string, error) {
	if err := e.configured(e.Model); err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	user := summaryUserPrompt(r)
	req := openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   summaryMaxTokens,
	}
	key := cache.KeyFrom(e.Model, summarySystemPrompt, user)
	content, err := e.complete(ctx, req, key)
	if err != nil {
		return "", err
	}
	summary := tidySummary(finalContent(content))
	if summary != "" {
		e.remember(ctx, key, content)
	}
	return summary, nil
}

func tidySummary(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	if s == "" {
		return ""
	}
	if m := firstSentence.FindString(s); m != "" {
		return strings.TrimSpace(m)
	}
	return s + "."
}

func (e *Extractor) visionModel() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.VisionModel) != "" {
		return e.VisionModel
	}
	return e.Model
}

// complete runs one chat completion, consulting the response cache first.
// Inference errors come back classified.
func (e *Extractor) complete(ctx context.Context, req openai.ChatCompletionRequest, key string) (string, error) {
	if e.Cache != nil {
		if raw, ok, _ := e.Cache.Get(ctx, key); ok && len(raw) > 0 {
			log.Debug().Str("model", req.Model).Msg("llm cache hit")
			return string(raw), nil
		}
	}
	ctx, retryAfter := llm.WithRetryAfterCapture(ctx)
	resp, err := e.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		cerr := llm.Classify(err, retryAfter())
		log.Warn().Err(err).Str("model", req.Model).Str("kind", cerr.Kind.String()).Msg("inference failed")
		return "", cerr
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", recipe.NewError(recipe.KindInferenceMalformedOutput, "inference returned no content", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *Extractor) remember(ctx context.Context, key, content string) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Save(ctx, key, []byte(content)); err != nil {
		log.Debug().Err(err).Msg("llm cache save failed")
	}
}

// interpret maps a reply to a recipe or a typed error. A reply that decodes
// but fails the gate means the model found nothing usable on the page.
func (e *Extractor) interpret(content string) (*recipe.ParsedRecipe, error) {
	r, err := parseReply(content, e.Thresholds)
	switch {
	case errors.Is(err, errSentinel):
		return nil, recipe.NewError(recipe.KindNotARecipePage, "no recipe found", err)
	case err != nil:
		return nil, recipe.NewError(recipe.KindInferenceMalformedOutput, "AI parsing failed", err)
	}
	if verr := recipe.Validate(r); verr != nil {
		return nil, recipe.NewError(recipe.KindNotARecipePage, "no recipe found", verr)
	}
	return r, nil
}

func toMarkdown(html, sourceURL string) (string, error) {
	if sourceURL != "" {
		return converter.ConvertString(html, md.WithDomain(sourceURL))
	}
	return converter.ConvertString(html)
}
