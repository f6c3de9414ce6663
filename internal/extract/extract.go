// Package extract is the extraction orchestrator. It tries structured data,
// then DOM heuristics, then inference, and returns the first recipe that
// passes the validation gate. Partial results are never merged.
package extract

import (
	"context"
	"errors"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/clean"
	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// DefaultMaxImageBytes caps uploaded images.
const DefaultMaxImageBytes = 10 << 20

// DefaultFetchTimeout bounds page retrieval.
const DefaultFetchTimeout = 10 * time.Second

// ImageTypes lists the accepted image MIME types.
var ImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Fetcher retrieves a page. *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Pipeline runs the extraction tiers. It holds no per-request state and is
// safe for concurrent use.
type Pipeline struct {
	Fetcher Fetcher
	// AI enables the inference tier, image extraction and summaries; nil
	// disables all three.
	AI         AI
	Thresholds normalize.Thresholds
	// Summaries requests a one-sentence summary for every extracted recipe.
	Summaries     bool
	FetchTimeout  time.Duration
	MaxImageBytes int64
}

func (p *Pipeline) tiers() []Extractor {
	tiers := []Extractor{
		StructuredData{Thresholds: p.Thresholds},
		Heuristic{Thresholds: p.Thresholds},
	}
	if p.AI != nil {
		tiers = append(tiers, Inference{AI: p.AI})
	}
	return tiers
}

// Extract runs the tiers over a raw document. sourceURL is recorded on the
// recipe and may be empty.
func (p *Pipeline) Extract(ctx context.Context, raw []byte, sourceURL string) recipe.ExtractionResult {
	page := Page{Raw: raw, SourceURL: sourceURL}
	cleaned := false
	final := recipe.NewError(recipe.KindNotARecipePage, "no recipe found", nil)

	for _, tier := range p.tiers() {
		if err := ctx.Err(); err != nil {
			return recipe.Failure(canceled(err))
		}
		if tier.Method() != recipe.MethodStructuredData && !cleaned {
			doc, err := clean.Clean(raw)
			if err != nil {
				if errors.Is(err, clean.ErrEmptyContent) {
					log.Debug().Msg("preprocessing left no content")
					return recipe.Failure(recipe.NewError(recipe.KindUnsupportedDocument, "document has no readable content", err))
				}
				return recipe.Failure(recipe.NewError(recipe.KindUnsupportedDocument, "document could not be parsed", err))
			}
			page.Doc = doc
			cleaned = true
		}
		r, err := tier.Extract(ctx, page)
		if err != nil {
			rerr := recipe.AsError(err)
			log.Debug().Str("tier", string(tier.Method())).Str("kind", rerr.Kind.String()).Msg("tier failed")
			final = recipe.MoreSpecific(final, rerr)
			continue
		}
		if verr := recipe.Validate(r); verr != nil {
			log.Debug().Str("tier", string(tier.Method())).Err(verr).Msg("tier result rejected")
			continue
		}
		log.Info().Str("method", string(tier.Method())).Str("title", r.Title).Msg("recipe extracted")
		if sourceURL != "" {
			r.SourceURL = sourceURL
		}
		p.summarize(ctx, r)
		return recipe.Success(tier.Method(), r)
	}
	log.Info().Str("code", final.Code()).Msg("extraction failed")
	return recipe.Failure(final)
}

// ExtractURL fetches a page and extracts from it.
func (p *Pipeline) ExtractURL(ctx context.Context, rawURL string) recipe.ExtractionResult {
	if _, err := fetch.ValidateURL(rawURL); err != nil {
		e := recipe.NewError(recipe.KindTransportFailure, "Invalid URL format", err)
		e.BadURL = true
		return recipe.Failure(e)
	}
	if p.Fetcher == nil {
		return recipe.Failure(recipe.NewError(recipe.KindTransportFailure, "no fetcher configured", nil))
	}
	timeout := p.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	body, _, err := p.Fetcher.Get(fctx, rawURL)
	cancel()
	if err != nil {
		return recipe.Failure(fetchError(ctx, err, timeout))
	}
	if len(body) == 0 {
		return recipe.Failure(recipe.NewError(recipe.KindUnsupportedDocument, "fetched page is empty", clean.ErrEmptyContent))
	}
	return p.Extract(ctx, body, rawURL)
}

func fetchError(ctx context.Context, err error, timeout time.Duration) *recipe.Error {
	switch {
	case ctx.Err() != nil:
		return canceled(ctx.Err())
	case errors.Is(err, fetch.ErrUnsupportedContent):
		return recipe.NewError(recipe.KindUnsupportedDocument, "page is not an HTML document", err)
	case fetch.IsTimeout(err):
		e := recipe.NewError(recipe.KindTransportFailure, "request timed out after "+timeout.String(), err)
		e.Timeout = true
		return e
	default:
		return recipe.NewError(recipe.KindTransportFailure, "failed to fetch URL", err)
	}
}

// ExtractImage validates an uploaded image and extracts a recipe from it with
// the vision model. declared is the client-supplied MIME type and may be
// empty; the content is sniffed either way.
func (p *Pipeline) ExtractImage(ctx context.Context, declared string, data []byte) recipe.ExtractionResult {
	limit := p.MaxImageBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	if int64(len(data)) > limit {
		e := recipe.NewError(recipe.KindInvalidInputMedia, "image exceeds size limit", nil)
		e.TooLarge = true
		return recipe.Failure(e)
	}
	mt, ok := ImageType(declared, data)
	if !ok {
		return recipe.Failure(recipe.NewError(recipe.KindInvalidInputMedia, "unsupported image type "+mt, nil))
	}
	if p.AI == nil {
		return recipe.Failure(recipe.NewError(recipe.KindInferenceUnavailable, "image extraction requires an inference service", nil))
	}
	r, err := p.AI.FromImage(ctx, mt, data)
	if err != nil {
		rerr := recipe.AsError(err)
		log.Info().Str("code", rerr.Code()).Msg("image extraction failed")
		return recipe.Failure(rerr)
	}
	if verr := recipe.Validate(r); verr != nil {
		return recipe.Failure(recipe.NewError(recipe.KindNotARecipePage, "no recipe found in image", verr))
	}
	log.Info().Str("method", string(recipe.MethodAI)).Str("title", r.Title).Msg("recipe extracted from image")
	p.summarize(ctx, r)
	return recipe.Success(recipe.MethodAI, r)
}

// ImageType sniffs data and reports its MIME type and whether it is an
// accepted image. A declared non-image type is rejected even when the
// content sniffs as an image.
func ImageType(declared string, data []byte) (string, bool) {
	if d := declaredType(declared); d != "" && !strings.HasPrefix(d, "image/") {
		return d, false
	}
	detected := mimetype.Detect(data)
	for _, t := range ImageTypes {
		if detected.Is(t) {
			return t, true
		}
	}
	return detected.String(), false
}

func declaredType(s string) string {
	t, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return t
}

func (p *Pipeline) summarize(ctx context.Context, r *recipe.ParsedRecipe) {
	if !p.Summaries || p.AI == nil || r.Summary != "" {
		return
	}
	s, err := p.AI.Summarize(ctx, r)
	if err != nil {
		log.Debug().Err(err).Msg("summary skipped")
		return
	}
	r.Summary = s
}

func canceled(err error) *recipe.Error {
	return recipe.NewError(recipe.KindUnknown, "extraction canceled", err)
}
