// Package heuristic extracts recipe fields from a cleaned page with ranked
// CSS selector strategies and a heading-based fallback. It performs no I/O.
package heuristic

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gorecipe/internal/clean"
	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Fields is the raw outcome of the heuristic pass.
type Fields struct {
	Title        string
	Ingredients  []string
	Instructions []string
}

// Options tunes instruction filtering.
type Options struct {
	Thresholds normalize.Thresholds
}

var titleSelectors = []string{
	`h1[itemprop="name"]`,
	`[itemprop="name"]`,
	`.entry-title`,
	`.post-title`,
	`.recipe-header h1`,
	`.single-post h1`,
	`.post-header h1`,
	`.entry-header h1`,
	`.recipe-title`,
	`.recipe-name`,
	`.recipe-header h2`,
	`.recipe-heading`,
	`.wprm-recipe-name`,
	`.wprm-recipe-title`,
	`h1[data-testid="recipe-title"]`,
	`[data-testid="recipe-title"]`,
	`.recipe-header__title`,
	`h1`,
	`.title`,
	`.heading`,
	`[class*="title"]`,
	`[class*="heading"]`,
}

var ingredientSelectors = []string{
	`[itemprop="ingredients"]`,
	`[itemprop="recipeIngredient"]`,
	`[data-testid="ingredient-item"]`,
	`.ingredients-item-name`,
	`.recipe-ingredients li`,
	`.ingredients li`,
	`.recipe-ingredients-list li`,
	`.ingredients-list li`,
	`.recipe-ingredient`,
	`.ingredient-item`,
	`.wprm-recipe-ingredients-container li.wprm-recipe-ingredient`,
	`.wprm-recipe-ingredient`,
	`.wprm-recipe-ingredients li`,
	`.recipe-ingredients__list li`,
	`[class*="ingredient"] li`,
	`li[class*="ingredient"]`,
}

var instructionSelectors = []string{
	`[itemprop="recipeInstructions"] li`,
	`[itemprop="recipeInstructions"]`,
	`[itemprop="instructions"]`,
	`[data-testid="instruction-step"] p`,
	`[data-testid="instruction-step"]`,
	`.instructions-section-item p`,
	`.instructions-section-item`,
	`.recipe-instructions li`,
	`.instructions li`,
	`.recipe-instructions-list li`,
	`.instructions-list li`,
	`.recipe-instruction`,
	`.instruction-item`,
	`.recipe-steps li`,
	`.recipe-method li`,
	`.wprm-recipe-instructions-container .wprm-recipe-instruction-text`,
	`.wprm-recipe-instruction-text`,
	`.wprm-recipe-instructions li`,
	`.recipe-method__list li`,
	`.method-list li`,
	`[class*="instruction"] p`,
	`[class*="step"] p`,
	`[class*="method"] p`,
	`.method li`,
	`.steps li`,
}

var (
	upperHeader = regexp.MustCompile(`^[A-Z\s]+:$`)
	skipLinks   = []string{"skip to", "jump to"}
)

// TitleStrategies returns the ranked title strategies.
func TitleStrategies() []Strategy {
	keep := func(_ *goquery.Selection, text string) bool {
		if runes(text) <= 3 {
			return false
		}
		lower := strings.ToLower(text)
		for _, p := range skipLinks {
			if strings.HasPrefix(lower, p) {
				return false
			}
		}
		return true
	}
	out := make([]Strategy, 0, len(titleSelectors))
	for _, sel := range titleSelectors {
		st := Selector(sel, keep)
		run := st.Run
		// only the first match of a title selector counts
		st.Run = func(root *goquery.Selection) []string {
			if got := run(root); len(got) > 0 {
				return got[:1]
			}
			return nil
		}
		out = append(out, st)
	}
	return out
}

// IngredientStrategies returns the ranked ingredient strategies.
func IngredientStrategies() []Strategy {
	keep := func(_ *goquery.Selection, text string) bool {
		lower := strings.ToLower(text)
		if lower == "ingredients" || lower == "for the" || upperHeader.MatchString(text) {
			return false
		}
		return runes(text) > 2
	}
	out := make([]Strategy, 0, len(ingredientSelectors)+1)
	for _, sel := range ingredientSelectors {
		out = append(out, Selector(sel, keep))
	}
	return append(out, Heading([]string{"ingredients"}, keep))
}

// InstructionStrategies returns the ranked instruction strategies.
func InstructionStrategies(th normalize.Thresholds) []Strategy {
	keep := func(s *goquery.Selection, text string) bool {
		switch strings.ToLower(text) {
		case "directions", "instructions", "steps", "method":
			return false
		}
		if s.Closest(attributionParents).Length() > 0 {
			return false
		}
		return normalize.KeepInstruction(text, th)
	}
	out := make([]Strategy, 0, len(instructionSelectors)+1)
	for _, sel := range instructionSelectors {
		out = append(out, Selector(sel, keep))
	}
	return append(out, Heading([]string{"instructions", "directions", "steps", "method"}, keep))
}

// Extract runs every field's strategies over the cleaned page.
func Extract(doc clean.Document, opts Options) Fields {
	tree := doc.Tree()
	if tree == nil {
		return Fields{Title: doc.Title}
	}
	root := tree.Selection
	var f Fields
	var by string
	if titles, _ := First(root, TitleStrategies()); len(titles) > 0 {
		f.Title = titles[0]
	} else {
		f.Title = doc.Title
	}
	f.Ingredients, by = First(root, IngredientStrategies())
	log.Debug().Str("strategy", by).Int("count", len(f.Ingredients)).Msg("heuristic ingredients")
	f.Instructions, by = First(root, InstructionStrategies(opts.Thresholds))
	log.Debug().Str("strategy", by).Int("count", len(f.Instructions)).Msg("heuristic instructions")
	return f
}

// ToRecipe turns heuristic fields into a canonical recipe with a single
// "Main" ingredient group. Completeness is left to the validation gate.
func ToRecipe(f Fields) *recipe.ParsedRecipe {
	r := &recipe.ParsedRecipe{Title: f.Title, Instructions: normalize.TextSteps(f.Instructions)}
	if len(f.Ingredients) > 0 {
		items := make([]recipe.Ingredient, 0, len(f.Ingredients))
		for _, s := range f.Ingredients {
			items = append(items, recipe.Ingredient{Name: s})
		}
		r.Ingredients = []recipe.IngredientGroup{{GroupName: recipe.DefaultGroupName, Ingredients: items}}
	}
	return r
}
