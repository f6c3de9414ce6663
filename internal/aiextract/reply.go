package aiextract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/gorecipe/internal/normalize"
	"github.com/hyperifyio/gorecipe/internal/recipe"
)

var (
	fencedFinalRe = regexp.MustCompile("(?s)```final\\r?\\n(.*?)```")
	xmlFinalRe    = regexp.MustCompile(`(?s)<final>(.*?)</final>`)
	thinkRe       = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// errNoJSON marks a reply with no JSON object in it.
var errNoJSON = errors.New("reply holds no JSON object")

// finalContent strips reasoning wrappers some models emit around the answer:
// a ```final fence or <final> tag wins, <think> blocks are dropped, and
// otherwise the whole content is used.
func finalContent(content string) string {
	if m := fencedFinalRe.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	if m := xmlFinalRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(thinkRe.ReplaceAllString(content, ""))
}

// jsonSpan returns the outermost {...} span so replies wrapped in prose or
// code fences still decode.
func jsonSpan(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}

type replyIngredient struct {
	Amount     string `json:"amount"`
	Units      string `json:"units"`
	Ingredient string `json:"ingredient"`
}

type replyGroup struct {
	GroupName   string            `json:"groupName"`
	Ingredients []replyIngredient `json:"ingredients"`
}

type replyStep struct {
	Title       string   `json:"title"`
	Detail      string   `json:"detail"`
	Text        string   `json:"text"`
	TimeMinutes *float64 `json:"timeMinutes"`
	Ingredients []string `json:"ingredients"`
	Tips        string   `json:"tips"`
}

type reply struct {
	Title        string            `json:"title"`
	Author       any               `json:"author"`
	Ingredients  []replyGroup      `json:"ingredients"`
	Instructions []json.RawMessage `json:"instructions"`
}

// errSentinel is returned when the model reports that no recipe is present.
var errSentinel = errors.New("model reported no recipe")

// parseReply turns raw assistant content into a recipe. The sentinel check
// runs before the schema so a sentinel with null arrays is still recognized.
func parseReply(content string, th normalize.Thresholds) (*recipe.ParsedRecipe, error) {
	span, err := jsonSpan(finalContent(content))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if obj, ok := generic.(map[string]any); ok {
		if title, _ := obj["title"].(string); isSentinel(title) {
			return nil, errSentinel
		}
	}
	if err := validateReply(generic); err != nil {
		return nil, err
	}
	var rep reply
	if err := json.Unmarshal([]byte(span), &rep); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return rep.toRecipe(th), nil
}

func isSentinel(title string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(recipe.NoRecipeSentinel))
}

func (rep reply) toRecipe(th normalize.Thresholds) *recipe.ParsedRecipe {
	r := &recipe.ParsedRecipe{Title: normalize.CleanText(rep.Title)}
	if author, ok := rep.Author.(string); ok {
		r.Author = normalize.CleanText(author)
	}
	for _, g := range rep.Ingredients {
		group := recipe.IngredientGroup{GroupName: normalize.CleanText(g.GroupName)}
		if group.GroupName == "" {
			group.GroupName = recipe.DefaultGroupName
		}
		for _, ing := range g.Ingredients {
			name := normalize.CleanText(ing.Ingredient)
			if name == "" {
				continue
			}
			group.Ingredients = append(group.Ingredients, recipe.Ingredient{
				Amount: normalize.CleanText(ing.Amount),
				Units:  normalize.CleanText(ing.Units),
				Name:   name,
			})
		}
		if len(group.Ingredients) > 0 {
			r.Ingredients = append(r.Ingredients, group)
		}
	}
	raw := make([]normalize.RawInstruction, 0, len(rep.Instructions))
	for _, msg := range rep.Instructions {
		if in, ok := decodeStep(msg, th); ok {
			raw = append(raw, in)
		}
	}
	r.Instructions = normalize.Steps(raw)
	return r
}

func decodeStep(msg json.RawMessage, th normalize.Thresholds) (normalize.RawInstruction, bool) {
	msg = bytes.TrimSpace(msg)
	if len(msg) > 0 && msg[0] == '"' {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, false
		}
		s = normalize.CleanText(s)
		if normalize.LooksLikeAttribution(s, th) {
			return nil, false
		}
		return normalize.Text(s), true
	}
	var st replyStep
	if err := json.Unmarshal(msg, &st); err != nil {
		return nil, false
	}
	step := normalize.Step{
		Title:       normalize.CleanText(st.Title),
		Detail:      normalize.CleanText(st.Detail),
		Text:        normalize.CleanText(st.Text),
		Ingredients: st.Ingredients,
		Tip:         normalize.CleanText(st.Tips),
	}
	if st.TimeMinutes != nil && *st.TimeMinutes > 0 {
		v := *st.TimeMinutes
		step.TimeMinutes = &v
	}
	body := step.Detail
	if body == "" {
		body = step.Text
	}
	if normalize.LooksLikeAttribution(body, th) {
		return nil, false
	}
	return step, true
}
