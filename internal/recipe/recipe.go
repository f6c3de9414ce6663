package recipe

// Method identifies which extraction tier produced a recipe.
type Method string

const (
	MethodStructuredData Method = "structured-data"
	MethodHeuristic      Method = "heuristic"
	MethodAI             Method = "ai"
	MethodNone           Method = "none"
)

// DefaultGroupName is used when the source does not name its ingredient groups.
const DefaultGroupName = "Main"

// Ingredient keeps the amount as display text; it is only parsed when a
// caller asks for a different serving count.
type Ingredient struct {
	Amount string `json:"amount" yaml:"amount"`
	Units  string `json:"units" yaml:"units"`
	Name   string `json:"ingredient" yaml:"ingredient"`
}

// IngredientGroup preserves recipes with sub-components ("Sauce", "Filling").
// Order is significant and follows the source.
type IngredientGroup struct {
	GroupName   string       `json:"groupName" yaml:"groupName"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
}

// InstructionStep is one ordered cooking step. Title falls back to a
// positional "Step N" label and is never synthesized from Detail.
type InstructionStep struct {
	Title              string   `json:"title" yaml:"title"`
	Detail             string   `json:"detail" yaml:"detail"`
	TimeMinutes        *float64 `json:"timeMinutes,omitempty" yaml:"timeMinutes,omitempty"`
	RelatedIngredients []string `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
	Tip                string   `json:"tips,omitempty" yaml:"tips,omitempty"`
}

// ParsedRecipe is the canonical shape every tier converges to.
type ParsedRecipe struct {
	Title        string            `json:"title" yaml:"title"`
	Author       string            `json:"author,omitempty" yaml:"author,omitempty"`
	SourceURL    string            `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	Summary      string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Cuisine      []string          `json:"cuisine,omitempty" yaml:"cuisine,omitempty"`
	Servings     int               `json:"servings,omitempty" yaml:"servings,omitempty"`
	Ingredients  []IngredientGroup `json:"ingredients" yaml:"ingredients"`
	Instructions []InstructionStep `json:"instructions" yaml:"instructions"`
}

// IngredientCount returns the number of ingredients across all groups.
func (r *ParsedRecipe) IngredientCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, g := range r.Ingredients {
		n += len(g.Ingredients)
	}
	return n
}

// ExtractionResult is the tagged outcome of one extraction request.
// Exactly one of Recipe or Err is set.
type ExtractionResult struct {
	Method Method
	Recipe *ParsedRecipe
	Err    *Error
}

// OK reports whether the result carries a validated recipe.
func (r ExtractionResult) OK() bool {
	return r.Recipe != nil && r.Err == nil
}

// Success builds a successful result.
func Success(m Method, r *ParsedRecipe) ExtractionResult {
	return ExtractionResult{Method: m, Recipe: r}
}

// Failure builds a failed result; the method is always MethodNone.
func Failure(err *Error) ExtractionResult {
	return ExtractionResult{Method: MethodNone, Err: err}
}
