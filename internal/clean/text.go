package clean

import (
	"strings"

	"golang.org/x/net/html"
)

// TextFromHTML renders markup as plain text. Headings, paragraphs and list
// items start on their own line; runs of blank lines collapse to one.
func TextFromHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	node, err := html.Parse(strings.NewReader(s))
	if err != nil || node == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, node, false)
	return normalizeLines(b.String())
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "template":
			return
		case "pre":
			inPre = true
		case "br", "hr":
			b.WriteString("\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol", "section", "div", "tr":
			endLine(b)
		}
	}
	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(data)
		}
		b.WriteString(data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre)
	}
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			endLine(b)
			b.WriteString("\n")
		case "li", "tr", "pre":
			endLine(b)
		}
	}
}

// endLine terminates the current line unless it is already terminated.
func endLine(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = collapse(line)
		if line == "" {
			if len(out) == 0 || out[len(out)-1] == "" {
				continue
			}
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
