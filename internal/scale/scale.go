package scale

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// rangeRe splits "2-3", "2 – 3" and "2 to 3", keeping the separator with its
// surrounding whitespace so it can be reused verbatim.
var rangeRe = regexp.MustCompile(`^(.+?)(\s*[-–—]\s*|\s+(?i:to)\s+)(.+)$`)

// Factor returns max(1, servings) / max(1, original).
func Factor(original, servings int) *big.Rat {
	return big.NewRat(int64(max(1, servings)), int64(max(1, original)))
}

var one = big.NewRat(1, 1)

// ScaleAmount multiplies a display amount by factor. Ranges scale each bound
// independently. Text that is not numeric, and any factor of exactly 1,
// return the input unchanged.
func ScaleAmount(s string, factor *big.Rat) string {
	if strings.TrimSpace(s) == "" || factor == nil || factor.Cmp(one) == 0 {
		return s
	}
	if v, ok := ParseAmount(s); ok {
		return FormatRat(v.Mul(v, factor))
	}
	if m := rangeRe.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		lo, okLo := ParseAmount(m[1])
		hi, okHi := ParseAmount(m[3])
		if okLo && okHi {
			return FormatRat(lo.Mul(lo, factor)) + m[2] + FormatRat(hi.Mul(hi, factor))
		}
	}
	return s
}

// Groups returns a scaled copy of groups. The input is never modified.
func Groups(groups []recipe.IngredientGroup, factor *big.Rat) []recipe.IngredientGroup {
	out := make([]recipe.IngredientGroup, len(groups))
	for i, g := range groups {
		items := make([]recipe.Ingredient, len(g.Ingredients))
		for j, ing := range g.Ingredients {
			ing.Amount = ScaleAmount(ing.Amount, factor)
			items[j] = ing
		}
		out[i] = recipe.IngredientGroup{GroupName: g.GroupName, Ingredients: items}
	}
	return out
}

// Recipe returns a copy of r rescaled to servings. An unknown original
// serving count is treated as one.
func Recipe(r *recipe.ParsedRecipe, servings int) *recipe.ParsedRecipe {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Ingredients = Groups(r.Ingredients, Factor(r.Servings, servings))
	cp.Servings = max(1, servings)
	return &cp
}
