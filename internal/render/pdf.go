package render

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

var (
	linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	itemRe = regexp.MustCompile(`^(\d+\.|-)\s+`)
)

// PDF renders the Markdown card onto A4 pages. It handles headings, list
// items and links only; it is not a Markdown layout engine.
func PDF(w io.Writer, r *recipe.ParsedRecipe, p Provenance) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title, true)
	if r.Author != "" {
		pdf.SetAuthor(r.Author, true)
	}
	// core fonts are cp1252; fractions like ½ are in range
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(Markdown(r, p)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(3)
		case s == "---":
			pdf.Ln(2)
			y := pdf.GetY()
			pdf.Line(10, y, 200, y)
			pdf.Ln(2)
		case strings.HasPrefix(s, "#"):
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 18.0
			switch i {
			case 2:
				size = 14
			case 3:
				size = 12
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, size/2+2, tr(text), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		default:
			writeLine(pdf, tr, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// writeLine writes one Markdown line, turning [text](url) into clickable
// links and list markers into a hanging indent.
func writeLine(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	s = boldRe.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("_(", "(", ")_", ")").Replace(s)
	if m := itemRe.FindString(s); m != "" {
		pdf.SetX(pdf.GetX() + 4)
		if strings.HasPrefix(m, "-") {
			s = "• " + s[len(m):]
		}
	}
	parts := linkRe.FindAllStringSubmatchIndex(s, -1)
	if len(parts) == 0 {
		pdf.MultiCell(0, 5, tr(s), "", "L", false)
		return
	}
	pos := 0
	for _, m := range parts {
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		pdf.WriteLinkString(5, tr(s[m[2]:m[3]]), s[m[4]:m[5]])
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
	pdf.Ln(6)
}
