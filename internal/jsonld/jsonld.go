// Package jsonld extracts recipes from embedded schema.org JSON-LD payloads.
// It must run on the raw page: the preprocessor strips script elements.
package jsonld

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Options tunes instruction filtering.
type Options struct {
	Thresholds normalize.Thresholds
}

// minTitleRunes is the shortest title accepted from a payload, exclusive.
const minTitleRunes = 3

// Extract returns the first complete Recipe found in the page's JSON-LD
// blocks, or nil when there is none.
func Extract(raw []byte, opts Options) *recipe.ParsedRecipe {
	for _, obj := range Candidates(raw) {
		if r := fromObject(obj, opts); r != nil {
			return r
		}
	}
	return nil
}

// Candidates returns every object typed Recipe across all JSON-LD blocks in
// document order. Blocks that fail to decode are skipped.
func Candidates(raw []byte) []map[string]any {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	var out []map[string]any
	doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(typ), "application/ld+json") {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &payload); err != nil {
			return
		}
		collect(payload, &out, 0)
	})
	return out
}

// maxDepth bounds the walk through nested graphs and arrays.
const maxDepth = 4

func collect(v any, out *[]map[string]any, depth int) {
	if depth > maxDepth {
		return
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			collect(item, out, depth+1)
		}
	case map[string]any:
		if isRecipe(t["@type"]) {
			*out = append(*out, t)
			return
		}
		if g, ok := t["@graph"]; ok {
			collect(g, out, depth+1)
		}
		if m, ok := t["mainEntity"]; ok {
			collect(m, out, depth+1)
		}
	}
}

func isRecipe(v any) bool {
	switch t := v.(type) {
	case string:
		return isRecipeType(t)
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && isRecipeType(s) {
				return true
			}
		}
	}
	return false
}

func isRecipeType(s string) bool {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	return s == "Recipe"
}

func fromObject(obj map[string]any, opts Options) *recipe.ParsedRecipe {
	title := text(obj["name"])
	if utf8.RuneCountInString(title) <= minTitleRunes {
		return nil
	}
	ingredients := ingredientList(obj)
	if len(ingredients) == 0 {
		return nil
	}
	raw := Instructions(obj["recipeInstructions"], opts.Thresholds)
	steps := normalize.Steps(raw)
	if len(steps) == 0 {
		return nil
	}
	return &recipe.ParsedRecipe{
		Title:        title,
		Author:       Author(obj),
		SourceURL:    text(obj["url"]),
		Summary:      text(obj["description"]),
		Cuisine:      stringList(obj["recipeCuisine"], ","),
		Servings:     Servings(obj["recipeYield"]),
		Ingredients:  []recipe.IngredientGroup{{GroupName: recipe.DefaultGroupName, Ingredients: ingredients}},
		Instructions: steps,
	}
}

func ingredientList(obj map[string]any) []recipe.Ingredient {
	v, ok := obj["recipeIngredient"]
	if !ok {
		v = obj["ingredients"]
	}
	var out []recipe.Ingredient
	for _, s := range stringList(v, "\n") {
		out = append(out, recipe.Ingredient{Name: s})
	}
	return out
}

// text returns a cleaned string value, or "" for anything else.
func text(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return normalize.CleanText(html.UnescapeString(s))
}

// stringList accepts a sep-delimited string or an array of strings and
// returns the non-empty cleaned entries.
func stringList(v any, sep string) []string {
	switch t := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(t, sep) {
			if s := text(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, x := range t {
			if s := text(x); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
