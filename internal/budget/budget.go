// Package budget sizes inference prompts against a model's context window
// using a conservative characters-per-token estimate.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// charsPerToken is deliberately low so estimates err on the large side.
const charsPerToken = 4.0

// EstimateTokensFromChars converts a character count into an estimated token
// count. The result is at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / charsPerToken))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, s := range sizeSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return 8192
}

// HeadroomTokens is the safety margin subtracted from the context window for
// tokenizer drift and message framing: 5% of the window, at least 512.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	return max(dyn, 512)
}

// RemainingContext computes the input token budget left after reserving
// output tokens, headroom and the fixed prompt. Never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - max(reservedForOutput, 0) - promptTokens
	return max(remaining, 0)
}

// MaxInputChars returns how many characters of page content fit alongside
// fixedPrompt, capped at limit when limit > 0.
func MaxInputChars(modelName, fixedPrompt string, reservedForOutput, limit int) int {
	chars := int(float64(RemainingContext(modelName, reservedForOutput, EstimateTokens(fixedPrompt))) * charsPerToken)
	if limit > 0 && chars > limit {
		return limit
	}
	return chars
}

// Truncate shortens s to at most maxChars runes, preferring to cut at the
// last line break in the final tenth of the allowance.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	cut := 0
	for i := range s {
		if cut == maxChars {
			s = s[:i]
			break
		}
		cut++
	}
	if nl := strings.LastIndexByte(s, '\n'); nl >= 0 && utf8.RuneCountInString(s[:nl]) >= maxChars*9/10 {
		s = s[:nl]
	}
	return s
}

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
	"gpt-4o":             128_000,
	"gpt-4o-mini":        128_000,
	"gpt-4-turbo":        128_000,
	"gpt-4.1":            1_000_000,
	"gpt-4.1-mini":       1_000_000,
	"gpt-3.5-turbo":      16_384,
	"llama-3":            8_192,
	"llama-3.1":          128_000,
	"llama-3.2-vision":   128_000,
	"qwen2.5-vl":         32_768,
	"openai/gpt-oss-20b": 4_096,
	"gpt-oss-20b":        4_096,
}

var sizeSuffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"512k", 512_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}
