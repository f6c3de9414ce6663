package jsonld

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/gorecipe/internal/normalize"
)

// Instructions flattens recipeInstructions into raw instructions, dropping
// fragments that are too short or read like an author credit. Accepted
// shapes: a newline-delimited string, an array of strings, HowToStep
// objects, and HowToSection or ItemList wrappers nesting any of these.
func Instructions(v any, th normalize.Thresholds) []normalize.RawInstruction {
	var out []normalize.RawInstruction
	flattenInstructions(v, th, &out, 0)
	return out
}

func flattenInstructions(v any, th normalize.Thresholds, out *[]normalize.RawInstruction, depth int) {
	if depth > maxDepth {
		return
	}
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			if s := text(line); normalize.KeepInstruction(s, th) {
				*out = append(*out, normalize.Text(s))
			}
		}
	case []any:
		for _, item := range t {
			flattenInstructions(item, th, out, depth+1)
		}
	case map[string]any:
		if list, ok := t["itemListElement"]; ok {
			flattenInstructions(list, th, out, depth+1)
			return
		}
		step := stepFromObject(t)
		if normalize.KeepInstruction(firstOf(step.Text, step.Name), th) {
			*out = append(*out, step)
		}
	}
}

func stepFromObject(obj map[string]any) normalize.Step {
	step := normalize.Step{Text: text(obj["text"]), Name: text(obj["name"])}
	// a distinct name on a step with its own text is a heading
	if step.Text != "" && step.Name != "" && !strings.HasPrefix(strings.ToLower(step.Text), strings.ToLower(strings.TrimRight(step.Name, ". …"))) {
		step.Title = step.Name
	}
	return step
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Author resolves author, then publisher, then creator. Each may be a
// string, an object with a name, or an array of either.
func Author(obj map[string]any) string {
	for _, key := range []string{"author", "publisher", "creator"} {
		if name := personName(obj[key], 0); name != "" {
			return name
		}
	}
	return ""
}

func personName(v any, depth int) string {
	if depth > maxDepth {
		return ""
	}
	switch t := v.(type) {
	case string:
		return text(t)
	case map[string]any:
		return text(t["name"])
	case []any:
		for _, x := range t {
			if name := personName(x, depth+1); name != "" {
				return name
			}
		}
	}
	return ""
}

var leadingInt = regexp.MustCompile(`\d+`)

// Servings reads recipeYield as a number, a string such as "4 servings" or
// an array of those. Zero means unknown.
func Servings(v any) int {
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			return int(t)
		}
	case string:
		if m := leadingInt.FindString(t); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	case []any:
		for _, x := range t {
			if n := Servings(x); n > 0 {
				return n
			}
		}
	}
	return 0
}
