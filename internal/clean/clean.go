// Package clean reduces a fetched recipe page to the parts that matter for
// extraction: a title, an ingredients region, an instructions region and
// whatever body content survives noise removal.
package clean

import (
	"bytes"
	"errors"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// ErrEmptyContent is returned when nothing is left after every fallback.
var ErrEmptyContent = errors.New("clean: no content after cleaning")

// minRemainingChars is the markup length the leftover body must exceed to be
// appended after the extracted regions.
const minRemainingChars = 100

// Document is the cleaned view of a page. It is immutable once returned.
type Document struct {
	// Title is the best title candidate, possibly empty.
	Title string
	// Ingredients and Instructions hold the sanitized inner HTML of the
	// located regions, or "" when not found.
	Ingredients  string
	Instructions string
	// HTML is the composed, sanitized output.
	HTML string

	tree *goquery.Document
}

// Tree returns the page with noise removed but markup attributes intact,
// suitable for selector-driven extraction. It may be nil for a zero Document.
func (d Document) Tree() *goquery.Document { return d.tree }

// Text returns the readable text of HTML with block structure preserved as
// line breaks.
func (d Document) Text() string { return TextFromHTML(d.HTML) }

// FromString parses already-cleaned HTML back into a Document, used when a
// cached or externally cleaned page is fed to the extractors.
func FromString(s string) (Document, error) {
	tree, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return Document{}, err
	}
	return Document{HTML: s, tree: tree}, nil
}

// Clean runs the preprocessor over a raw HTML document.
func Clean(raw []byte) (Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, ErrEmptyContent
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Document{}, err
	}

	out := Document{tree: doc}
	out.Title = findTitle(doc)
	out.Ingredients = finish(findRegion(doc, ingredientMarkers, ingredientContainer, ingredientHeadings, "ul, ol, div"))
	out.Instructions = finish(findRegion(doc, instructionMarkers, instructionContainer, instructionHeadings, "ol, ul, div"))

	stripNoise(doc)

	var b strings.Builder
	if out.Title != "" {
		b.WriteString(`<h1 class="recipe-title-parsed">` + html.EscapeString(out.Title) + "</h1>\n")
	}
	if out.Ingredients != "" {
		b.WriteString("<section class=\"recipe-ingredients-parsed\">\n<h2>INGREDIENTS</h2>\n" + out.Ingredients + "\n</section>\n")
	}
	if out.Instructions != "" {
		b.WriteString("<section class=\"recipe-instructions-parsed\">\n<h2>INSTRUCTIONS</h2>\n" + out.Instructions + "\n</section>\n")
	}

	remaining := remainingContent(doc)
	composed := b.String()
	if out.Ingredients != "" || out.Instructions != "" {
		if rest := withoutRegions(remaining, out.Ingredients != "", out.Instructions != ""); len(strings.TrimSpace(rest)) > minRemainingChars {
			composed += "<section class=\"recipe-additional-content\">\n" + rest + "\n</section>\n"
		}
	} else if strings.TrimSpace(remaining) != "" {
		composed = remaining
	}

	out.HTML = finish(composed)
	if out.HTML == "" {
		out.HTML = finish(minimalClean(raw))
	}
	if out.HTML == "" {
		return Document{}, ErrEmptyContent
	}
	return out, nil
}

func findTitle(doc *goquery.Document) string {
	var title string
	doc.Find(titleSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title = strings.TrimSpace(s.Text())
		return title == ""
	})
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return collapse(title)
}

// findRegion locates a region by markers first and by a heading second.
func findRegion(doc *goquery.Document, markers []string, container string, headings []string, lists string) string {
	for _, sel := range markers {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		first := found.First()
		if goquery.NodeName(first) == "li" {
			first = first.Parent()
		}
		box := first.Closest(container)
		if box.Length() == 0 {
			box = first.Parent()
		}
		if h, err := box.Html(); err == nil && strings.TrimSpace(h) != "" {
			return h
		}
	}
	var region string
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !headingMatches(s.Text(), headings) {
			return true
		}
		next := AdjacentBlock(s, lists)
		if next.Length() == 0 {
			return true
		}
		region, _ = next.Html()
		return false
	})
	return region
}

// AdjacentBlock returns the block that structurally follows a heading: its
// next sibling, else its parent's next sibling, else the first list or
// container inside its parent.
func AdjacentBlock(heading *goquery.Selection, lists string) *goquery.Selection {
	if next := heading.Next(); next.Length() > 0 {
		return next
	}
	if next := heading.Parent().Next(); next.Length() > 0 {
		return next
	}
	return heading.Parent().Find(lists).First()
}

func headingMatches(text string, words []string) bool {
	t := strings.ToLower(collapse(text))
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

func stripNoise(doc *goquery.Document) {
	doc.Find(headerSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(ldJSONSelector).Length() == 0 {
			s.Remove()
		}
	})
	for _, sel := range noise {
		doc.Find(sel).Remove()
	}
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(recipeMarkers).Length() == 0 {
			s.Remove()
		}
	})
	doc.Find(metaWidgets).Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("widget") || s.Parent().HasClass("widget") {
			s.Remove()
		}
	})
	// headers kept for their payload still must not leak scripts
	doc.Find("script").Remove()
}

func remainingContent(doc *goquery.Document) string {
	for _, sel := range []string{"body", contentRoots, contentBuckets} {
		if h, err := doc.Find(sel).First().Html(); err == nil && strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}

// withoutRegions drops the extracted regions from the leftover body so they
// are not repeated.
func withoutRegions(body string, ingredients, instructions bool) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	rest, err := goquery.NewDocumentFromReader(strings.NewReader("<div id=\"rest\">" + body + "</div>"))
	if err != nil {
		return ""
	}
	root := rest.Find("#rest")
	if ingredients {
		for _, sel := range ingredientMarkers {
			root.Find(sel).Remove()
		}
	}
	if instructions {
		for _, sel := range instructionMarkers {
			root.Find(sel).Remove()
		}
	}
	h, _ := root.Html()
	return h
}

func minimalClean(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	doc.Find(minimalNoise).Remove()
	for _, sel := range []string{"body", "main, article"} {
		if h, err := doc.Find(sel).First().Html(); err == nil && strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	interTagWS = regexp.MustCompile(`>\s+<`)
)

// finish sanitizes the composed markup and collapses whitespace.
func finish(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = sanitizer().Sanitize(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = interTagWS.ReplaceAllString(s, "><")
	return strings.TrimSpace(s)
}

// sanitizer keeps structural markup and the attributes extractors key on, and
// drops everything executable, styling and comments.
var sanitizer = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("section", "article", "main", "header", "span", "div")
	p.AllowAttrs("class", "id", "itemprop", "itemscope", "itemtype", "role").Globally()
	p.AllowAttrs("datetime").OnElements("time")
	return p
})

func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
