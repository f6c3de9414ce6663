package recipe

import (
	"errors"
	"fmt"
	"testing"
)

func validRecipe() *ParsedRecipe {
	return &ParsedRecipe{
		Title: "Tomato Soup",
		Ingredients: []IngredientGroup{{
			GroupName:   DefaultGroupName,
			Ingredients: []Ingredient{{Amount: "2", Units: "cups", Name: "tomatoes"}},
		}},
		Instructions: []InstructionStep{{Title: "Step 1", Detail: "Simmer the tomatoes for 20 minutes."}},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validRecipe()); err != nil {
		t.Fatalf("expected valid recipe, got %v", err)
	}

	r := validRecipe()
	r.Title = "  "
	if err := Validate(r); !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}

	r = validRecipe()
	r.Title = "No recipe found"
	if err := Validate(r); !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected sentinel title to be rejected, got %v", err)
	}

	r = validRecipe()
	r.Ingredients = []IngredientGroup{{GroupName: "Main"}}
	if err := Validate(r); !errors.Is(err, ErrMissingIngredients) {
		t.Fatalf("expected ErrMissingIngredients, got %v", err)
	}

	r = validRecipe()
	r.Instructions = nil
	if err := Validate(r); !errors.Is(err, ErrMissingInstructions) {
		t.Fatalf("expected ErrMissingInstructions, got %v", err)
	}

	if err := Validate(nil); err == nil {
		t.Fatalf("expected nil recipe to fail")
	}
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		err  *Error
		code string
	}{
		{&Error{Kind: KindNotARecipePage}, CodeNoRecipeFound},
		{&Error{Kind: KindTransportFailure}, CodeFetchFailed},
		{&Error{Kind: KindTransportFailure, Timeout: true}, CodeTimeout},
		{&Error{Kind: KindTransportFailure, BadURL: true}, CodeInvalidURL},
		{&Error{Kind: KindInferenceRateLimited, RetryAfter: 1700000000}, CodeRateLimit},
		{&Error{Kind: KindInvalidInputMedia, TooLarge: true}, CodeFileTooLarge},
		{&Error{Kind: KindInvalidInputMedia}, CodeInvalidFileType},
		{&Error{Kind: KindUnknown}, CodeUnknown},
	}
	for _, c := range cases {
		if got := c.err.Code(); got != c.code {
			t.Fatalf("%s: expected %s, got %s", c.err.Kind, c.code, got)
		}
	}
}

func TestMoreSpecific_PrefersRateLimit(t *testing.T) {
	notFound := &Error{Kind: KindNotARecipePage}
	limited := &Error{Kind: KindInferenceRateLimited, RetryAfter: 1700000000}
	if got := MoreSpecific(notFound, limited); got != limited {
		t.Fatalf("expected rate limit error to win")
	}
	if got := MoreSpecific(limited, notFound); got != limited {
		t.Fatalf("expected rate limit error to be kept")
	}
	if got := MoreSpecific(nil, notFound); got != notFound {
		t.Fatalf("expected non-nil error")
	}
}

func TestAsError_WrapsAndUnwraps(t *testing.T) {
	base := NewError(KindTransportFailure, "fetch failed", errors.New("dial tcp"))
	wrapped := fmt.Errorf("extract: %w", base)
	if got := AsError(wrapped); got != base {
		t.Fatalf("expected to recover typed error")
	}
	if got := AsError(errors.New("boom")); got.Kind != KindUnknown {
		t.Fatalf("expected unknown kind, got %s", got.Kind)
	}
}
