package heuristic

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/gorecipe/internal/normalize"
)

// Strategy extracts candidate strings from a page. Strategies are tried in
// rank order and the first one yielding anything wins.
type Strategy struct {
	Name string
	Run  func(root *goquery.Selection) []string
}

// attributionParents are containers whose text is a credit, never a step.
const attributionParents = `address, footer, [role="contentinfo"]`

// Selector builds a strategy that collects the whitespace-normalized text of
// every element matching sel and keeps the entries accepted by keep.
func Selector(sel string, keep func(s *goquery.Selection, text string) bool) Strategy {
	return Strategy{
		Name: sel,
		Run: func(root *goquery.Selection) []string {
			var out []string
			root.Find(sel).Each(func(_ int, s *goquery.Selection) {
				text := normalize.CleanText(s.Text())
				if text != "" && keep(s, text) {
					out = append(out, text)
				}
			})
			return normalize.Dedupe(out)
		},
	}
}

// Heading builds the fallback strategy: find a heading whose text equals one
// of names and read the block that follows it.
func Heading(names []string, keep func(s *goquery.Selection, text string) bool) Strategy {
	return Strategy{
		Name: "heading:" + strings.Join(names, "|"),
		Run: func(root *goquery.Selection) []string {
			var out []string
			root.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
				if !headingIs(h.Text(), names) {
					return true
				}
				out = blockItems(adjacentBlock(h), keep)
				return len(out) == 0
			})
			return out
		},
	}
}

// First runs strategies in order and returns the first non-empty result
// together with the winning strategy's name.
func First(root *goquery.Selection, strategies []Strategy) ([]string, string) {
	for _, st := range strategies {
		if got := st.Run(root); len(got) > 0 {
			return got, st.Name
		}
	}
	return nil, ""
}

var trailingPunct = regexp.MustCompile(`[\s:.]+$`)

func headingIs(text string, names []string) bool {
	t := strings.ToLower(trailingPunct.ReplaceAllString(normalize.CleanText(text), ""))
	for _, n := range names {
		if t == n {
			return true
		}
	}
	return false
}

func adjacentBlock(h *goquery.Selection) *goquery.Selection {
	if next := h.Next(); next.Length() > 0 {
		return next
	}
	if next := h.Parent().Next(); next.Length() > 0 {
		return next
	}
	return h.Parent().Find("ul, ol, p, div").First()
}

// blockItems reads list items, else paragraphs, else the block's own text.
func blockItems(block *goquery.Selection, keep func(*goquery.Selection, string) bool) []string {
	if block.Length() == 0 {
		return nil
	}
	items := block.Find("li")
	if goquery.NodeName(block) == "li" {
		items = block
	}
	if items.Length() == 0 {
		items = block.Find("p")
	}
	if items.Length() == 0 {
		items = block
	}
	var out []string
	items.Each(func(_ int, s *goquery.Selection) {
		text := normalize.CleanText(s.Text())
		if text != "" && keep(s, text) {
			out = append(out, text)
		}
	})
	return normalize.Dedupe(out)
}

func runes(s string) int { return utf8.RuneCountInString(s) }
