// Package normalize converts the heterogeneous instruction shapes produced by
// the extraction tiers into canonical recipe steps, and holds the text
// predicates shared by those tiers.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// RawInstruction is either Text or Step. The unexported marker method keeps
// the set closed so Steps can switch over it exhaustively.
type RawInstruction interface {
	isRawInstruction()
}

// Text is a bare instruction string.
type Text string

// Step is a partially-structured instruction object as emitted by structured
// data or an inference model. Detail, Text and Name are candidate bodies in
// that order of preference.
type Step struct {
	Title       string
	Detail      string
	Text        string
	Name        string
	TimeMinutes *float64
	Ingredients []string
	Tip         string
}

func (Text) isRawInstruction() {}
func (Step) isRawInstruction() {}

var placeholderTitle = regexp.MustCompile(`(?i)^step\s*\d*\s*[:.)-]?$`)

// Steps converts raw instructions into InstructionSteps. Entries without a
// body are dropped; surviving entries are numbered by output position.
func Steps(raw []RawInstruction) []recipe.InstructionStep {
	out := make([]recipe.InstructionStep, 0, len(raw))
	for _, r := range raw {
		var step recipe.InstructionStep
		switch v := r.(type) {
		case Text:
			step.Detail = cleanLeading(string(v))
		case Step:
			step.Detail = cleanLeading(firstNonEmpty(v.Detail, v.Text, v.Name))
			step.Title = cleanLeading(v.Title)
			step.TimeMinutes = v.TimeMinutes
			step.RelatedIngredients = compactStrings(v.Ingredients)
			step.Tip = strings.TrimSpace(v.Tip)
		case nil:
			continue
		default:
			panic(fmt.Sprintf("normalize: unexpected instruction type %T", r))
		}
		if step.Detail == "" {
			continue
		}
		if step.Title == "" || placeholderTitle.MatchString(step.Title) {
			step.Title = fmt.Sprintf("Step %d", len(out)+1)
		}
		out = append(out, step)
	}
	return out
}

// TextSteps is a convenience for tiers that only produce strings.
func TextSteps(texts []string) []recipe.InstructionStep {
	raw := make([]RawInstruction, 0, len(texts))
	for _, t := range texts {
		raw = append(raw, Text(t))
	}
	return Steps(raw)
}

// cleanLeading trims whitespace and leading punctuation such as ". " or "- ".
func cleanLeading(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), ".:;,-–— \t"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func compactStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
