package extract

import (
	"context"

	"github.com/hyperifyio/gorecipe/internal/clean"
	"github.com/hyperifyio/gorecipe/internal/heuristic"
	"github.com/hyperifyio/gorecipe/internal/jsonld"
	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Page is what a tier sees: the raw bytes and, once preprocessing has run,
// the cleaned document.
type Page struct {
	Raw       []byte
	Doc       clean.Document
	SourceURL string
}

// Extractor is one extraction tier. Implementations return a nil recipe and
// a nil error when they simply found nothing; errors are reserved for
// failures the caller should surface.
type Extractor interface {
	Method() recipe.Method
	Extract(ctx context.Context, p Page) (*recipe.ParsedRecipe, error)
}

// AI is the inference-backed capability the last tier and the image path
// depend on. *aiextract.Extractor satisfies it.
type AI interface {
	FromDocument(ctx context.Context, doc clean.Document, sourceURL string) (*recipe.ParsedRecipe, error)
	FromImage(ctx context.Context, mime string, data []byte) (*recipe.ParsedRecipe, error)
	Summarize(ctx context.Context, r *recipe.ParsedRecipe) (string, error)
}

// StructuredData reads embedded JSON-LD from the raw page.
type StructuredData struct {
	Thresholds normalize.Thresholds
}

func (StructuredData) Method() recipe.Method { return recipe.MethodStructuredData }

func (s StructuredData) Extract(_ context.Context, p Page) (*recipe.ParsedRecipe, error) {
	return jsonld.Extract(p.Raw, jsonld.Options{Thresholds: s.Thresholds}), nil
}

// Heuristic runs selector strategies over the cleaned page.
type Heuristic struct {
	Thresholds normalize.Thresholds
}

func (Heuristic) Method() recipe.Method { return recipe.MethodHeuristic }

func (h Heuristic) Extract(_ context.Context, p Page) (*recipe.ParsedRecipe, error) {
	f := heuristic.Extract(p.Doc, heuristic.Options{Thresholds: h.Thresholds})
	return heuristic.ToRecipe(f), nil
}

// Inference delegates the cleaned page to a model.
type Inference struct {
	AI AI
}

func (Inference) Method() recipe.Method { return recipe.MethodAI }

func (i Inference) Extract(ctx context.Context, p Page) (*recipe.ParsedRecipe, error) {
	return i.AI.FromDocument(ctx, p.Doc, p.SourceURL)
}
