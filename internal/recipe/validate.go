package recipe

import (
	"errors"
	"strings"
)

// NoRecipeSentinel is the title inference models return when a page holds no recipe.
const NoRecipeSentinel = "No recipe found"

var (
	ErrMissingTitle        = errors.New("recipe has no title")
	ErrMissingIngredients  = errors.New("recipe has no ingredients")
	ErrMissingInstructions = errors.New("recipe has no instructions")
)

// Validate is the acceptance gate applied after every tier and at pipeline
// exit: a non-empty title, at least one group holding at least one
// ingredient, and at least one instruction step with detail.
func Validate(r *ParsedRecipe) error {
	if r == nil {
		return ErrMissingTitle
	}
	title := strings.TrimSpace(r.Title)
	if title == "" || strings.EqualFold(title, NoRecipeSentinel) {
		return ErrMissingTitle
	}
	hasIngredient := false
	for _, g := range r.Ingredients {
		for _, ing := range g.Ingredients {
			if strings.TrimSpace(ing.Name) != "" {
				hasIngredient = true
				break
			}
		}
		if hasIngredient {
			break
		}
	}
	if !hasIngredient {
		return ErrMissingIngredients
	}
	for _, s := range r.Instructions {
		if strings.TrimSpace(s.Detail) != "" {
			return nil
		}
	}
	return ErrMissingInstructions
}
