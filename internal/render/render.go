// Package render writes extracted recipes as Markdown, JSON, YAML or a
// printable PDF card.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/gorecipe/internal/recipe"
)

// Format names an output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatPDF      Format = "pdf"
)

// ParseFormat accepts format names and common file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatPDF:
		return ".pdf"
	default:
		return ".md"
	}
}

// Provenance records how a recipe was obtained. It is printed in the
// Markdown footer and the PDF card.
type Provenance struct {
	Method recipe.Method
	Model  string
}

// Envelope is the success shape shared by the CLI JSON output and the HTTP
// API: the recipe fields flattened next to success and method.
type Envelope struct {
	Success bool `json:"success"`
	*recipe.ParsedRecipe
	Method recipe.Method `json:"method"`
}

// Write encodes r in the requested format.
func Write(w io.Writer, f Format, r *recipe.ParsedRecipe, p Provenance) error {
	if r == nil {
		return fmt.Errorf("render: nil recipe")
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Envelope{Success: true, ParsedRecipe: r, Method: p.Method})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatPDF:
		return PDF(w, r, p)
	default:
		_, err := io.WriteString(w, Markdown(r, p))
		return err
	}
}
