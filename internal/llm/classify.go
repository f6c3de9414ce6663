package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Classify maps an inference error to the recipe error taxonomy. retryAfter
// is attached unchanged to rate-limit errors.
func Classify(err error, retryAfter int64) *recipe.Error {
	if err == nil {
		return nil
	}
	var re *recipe.Error
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return recipe.NewError(recipe.KindInferenceUnavailable, "inference request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return recipe.NewError(recipe.KindUnknown, "inference request canceled", err)
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Type == "insufficient_quota" || apiErr.Code == "insufficient_quota" {
			return recipe.NewError(recipe.KindInferenceUnavailable, "inference quota exceeded", err)
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		e := recipe.NewError(recipe.KindInferenceRateLimited, "inference rate limit reached", err)
		e.RetryAfter = retryAfter
		return e
	}
	return recipe.NewError(recipe.KindInferenceUnavailable, "inference service unavailable", err)
}
