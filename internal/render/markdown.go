package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Markdown renders a recipe card. Group headings are omitted when the
// recipe has a single default group.
func Markdown(r *recipe.ParsedRecipe, p Provenance) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(r.Title)
	b.WriteString("\n\n")
	if r.Author != "" {
		fmt.Fprintf(&b, "_By %s_\n\n", r.Author)
	}
	if r.Summary != "" {
		fmt.Fprintf(&b, "> %s\n\n", r.Summary)
	}
	var facts []string
	if r.Servings > 0 {
		facts = append(facts, "Servings: "+strconv.Itoa(r.Servings))
	}
	if len(r.Cuisine) > 0 {
		facts = append(facts, "Cuisine: "+strings.Join(r.Cuisine, ", "))
	}
	if len(facts) > 0 {
		b.WriteString(strings.Join(facts, " | "))
		b.WriteString("\n\n")
	}

	b.WriteString("## Ingredients\n")
	showGroups := len(r.Ingredients) > 1 ||
		(len(r.Ingredients) == 1 && r.Ingredients[0].GroupName != recipe.DefaultGroupName)
	for _, g := range r.Ingredients {
		if showGroups {
			fmt.Fprintf(&b, "\n### %s\n", g.GroupName)
		}
		b.WriteString("\n")
		for _, ing := range g.Ingredients {
			b.WriteString("- ")
			b.WriteString(IngredientLine(ing))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Instructions\n\n")
	for i, s := range r.Instructions {
		fmt.Fprintf(&b, "%d. **%s**: %s", i+1, s.Title, s.Detail)
		if s.TimeMinutes != nil {
			fmt.Fprintf(&b, " _(%s min)_", strconv.FormatFloat(*s.TimeMinutes, 'f', -1, 64))
		}
		b.WriteString("\n")
		if s.Tip != "" {
			fmt.Fprintf(&b, "   Tip: %s\n", s.Tip)
		}
	}

	return appendProvenanceFooter(b.String(), r.SourceURL, p)
}

// IngredientLine joins amount, units and name with single spaces.
func IngredientLine(ing recipe.Ingredient) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{ing.Amount, ing.Units, ing.Name} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// appendProvenanceFooter records where the recipe came from and how it was
// extracted, for auditing re-runs.
func appendProvenanceFooter(markdown, sourceURL string, p Provenance) string {
	var b strings.Builder
	b.WriteString(markdown)
	b.WriteString("\n---\n")
	b.WriteString("Extracted: method=")
	b.WriteString(string(p.Method))
	if sourceURL != "" {
		b.WriteString("; source=[")
		b.WriteString(sourceURL)
		b.WriteString("](")
		b.WriteString(sourceURL)
		b.WriteString(")")
	}
	if p.Method == recipe.MethodAI && strings.TrimSpace(p.Model) != "" {
		b.WriteString("; model=")
		b.WriteString(strings.TrimSpace(p.Model))
	}
	b.WriteString("\n")
	return b.String()
}
